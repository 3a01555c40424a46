package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicConfidenceEmpty(t *testing.T) {
	assert.Zero(t, HeuristicConfidence(""))
	assert.Zero(t, HeuristicConfidence("   \n\t"))
}

func TestHeuristicConfidenceBaseOnly(t *testing.T) {
	// short latin text with no evidence at all
	got := HeuristicConfidence("hello there")
	assert.InDelta(t, 0.10, got, 0.001)
}

func TestHeuristicConfidenceArabicBonus(t *testing.T) {
	plain := HeuristicConfidence("some latin words")
	arabic := HeuristicConfidence("فاتورة قصيرة")
	assert.Greater(t, arabic, plain)
}

func TestHeuristicConfidenceDigitRun(t *testing.T) {
	without := HeuristicConfidence("ref number short")
	with := HeuristicConfidence("ref 12345678 short")
	assert.InDelta(t, 0.15, with-without, 0.001)
}

func TestHeuristicConfidenceDatePattern(t *testing.T) {
	without := HeuristicConfidence("some plain text")
	with := HeuristicConfidence("some 2024-01-15 text")
	assert.InDelta(t, 0.10, with-without, 0.001)
}

func TestHeuristicConfidenceKeywordCap(t *testing.T) {
	// five keyword families present, bonus must cap at 0.15
	text := "plain filler words here"
	stuffed := "invoice total amount contract rent plate filler"
	diff := HeuristicConfidence(stuffed) - HeuristicConfidence(text)
	assert.InDelta(t, 0.15, diff, 0.001)
}

func TestHeuristicConfidenceClamped(t *testing.T) {
	kitchen := "فاتورة إيجار عقد المبلغ المجموع لوحة مستحق invoice total amount contract rent plate 12345678 2024-01-15 | " +
		strings.Repeat("نص عربي طويل جدا لملء الصفحة ", 20)
	got := HeuristicConfidence(kitchen)
	assert.LessOrEqual(t, got, float32(1.0))
	assert.Greater(t, got, float32(0.8))
}
