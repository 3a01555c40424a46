package llm

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reLongDigits = regexp.MustCompile(`\d{8,}`)
	reDateLike   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}[/.]\d{1,2}[/.]\d{2,4}`)
	reDelimiters = regexp.MustCompile(`[:|\t]|\n`)
)

// Keyword families that indicate the text really is an invoice. Each hit is
// worth a small bonus, capped so a keyword-stuffed page cannot dominate.
var domainKeywords = []string{
	"invoice", "total", "amount", "contract", "rent", "plate",
	"فاتورة", "المجموع", "المبلغ", "عقد", "إيجار", "ايجار", "لوحة", "مستحق",
}

const (
	confBase           = 0.10
	confArabic         = 0.25
	confArabicLong     = 0.10
	confLongDigits     = 0.15
	confDate           = 0.10
	confLength         = 0.10
	confLengthLong     = 0.10
	confDelimiters     = 0.05
	confKeywordEach    = 0.05
	confKeywordCap     = 0.15
	longArabicRunChars = 40
)

// HeuristicConfidence estimates how trustworthy extracted text is, in [0,1].
// The model does not report calibrated confidence, so this accumulates
// independent evidence that the text looks like a real document: Arabic
// script, long digit runs (plates, invoice numbers), dates, overall length,
// structural delimiters, and domain vocabulary.
func HeuristicConfidence(text string) float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	score := confBase

	arabicCount := 0
	for _, r := range text {
		if unicode.Is(unicode.Arabic, r) {
			arabicCount++
		}
	}
	if arabicCount > 0 {
		score += confArabic
		if arabicCount >= longArabicRunChars {
			score += confArabicLong
		}
	}

	if reLongDigits.MatchString(text) {
		score += confLongDigits
	}
	if reDateLike.MatchString(text) {
		score += confDate
	}

	if len(text) >= 80 {
		score += confLength
	}
	if len(text) >= 300 {
		score += confLengthLong
	}

	if reDelimiters.MatchString(text) {
		score += confDelimiters
	}

	lower := strings.ToLower(text)
	keywordBonus := 0.0
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			keywordBonus += confKeywordEach
		}
	}
	if keywordBonus > confKeywordCap {
		keywordBonus = confKeywordCap
	}
	score += keywordBonus

	if score > 1 {
		score = 1
	}
	return float32(score)
}
