package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetify/invoice-scan/internal/entity"
)

func amount(v float64) *float64 { return &v }

func TestPlateScoreExact(t *testing.T) {
	assert.Equal(t, 100.0, plateScore("123456", nil, "12 34 56"))
}

func TestPlateScoreLeadingZeroVariant(t *testing.T) {
	assert.Equal(t, 95.0, plateScore("012345", nil, "12345"))
	assert.Equal(t, 95.0, plateScore("12345", nil, "0012345"))
}

func TestPlateScoreFromClues(t *testing.T) {
	assert.Equal(t, 85.0, plateScore("", []string{"999999", "012345"}, "12345"))
}

func TestPlateScoreNoSignal(t *testing.T) {
	assert.Zero(t, plateScore("", nil, "12345"))
	assert.Zero(t, plateScore("123456", nil, ""))
	assert.Zero(t, plateScore("111111", nil, "222222"))
}

func TestContextScoreAmountTolerance(t *testing.T) {
	cand := entity.Candidate{MonthlyAmount: 1000}

	within, reasons := contextScore(entity.ExtractedFields{TotalAmount: amount(1099)}, entity.ContextClues{}, cand)
	assert.Equal(t, 40.0, within)
	assert.Contains(t, reasons, "amount matches contract")

	outside, _ := contextScore(entity.ExtractedFields{TotalAmount: amount(1101)}, entity.ContextClues{}, cand)
	assert.Zero(t, outside)
}

func TestContextScoreAgreementNumber(t *testing.T) {
	cand := entity.Candidate{ContractNumber: "LTO-2024-001"}
	clues := entity.ContextClues{AgreementNumbers: []string{"lto-2024-001"}}
	got, reasons := contextScore(entity.ExtractedFields{}, clues, cand)
	assert.Equal(t, 60.0, got)
	assert.Contains(t, reasons, "agreement number match")
}

func TestScoreCandidateWeights(t *testing.T) {
	cand := entity.Candidate{
		Name:           "عصام عبدالله",
		PlateNumber:    "123456",
		ContractNumber: "C-100",
		MonthlyAmount:  1500,
	}
	fields := entity.ExtractedFields{
		CustomerName: "عصام عبدالله",
		CarNumber:    "123456",
		TotalAmount:  amount(1500),
	}
	clues := entity.ContextClues{AgreementNumbers: []string{"C-100"}}

	s := scoreCandidate(fields, clues, cand)
	assert.Equal(t, 100.0, s.Name)
	assert.Equal(t, 100.0, s.Plate)
	assert.Equal(t, 100.0, s.Context)
	assert.Equal(t, 100.0, s.Total)
	assert.Contains(t, s.Reasons, "strong name match")
	assert.Contains(t, s.Reasons, "plate number match")
}

func TestScoreCandidateNameOnly(t *testing.T) {
	cand := entity.Candidate{Name: "عصام عبدالله"}
	s := scoreCandidate(entity.ExtractedFields{CustomerName: "عصام عبدالله"}, entity.ContextClues{}, cand)
	assert.Equal(t, weightName*100, s.Total)
}
