package match

import (
	"strconv"
	"strings"

	"github.com/fleetify/invoice-scan/internal/entity"
)

// Sub-score weights. Name is the heaviest signal, plate corroborates, loose
// context clues are a tie-breaker.
const (
	weightName    = 0.5
	weightPlate   = 0.3
	weightContext = 0.2

	amountTolerance = 0.10
)

// candidateScore is the per-candidate scoring breakdown.
type candidateScore struct {
	Name    float64 // 0..100
	Plate   float64 // 0..100
	Context float64 // 0..100
	Total   float64 // 0..100 weighted
	Reasons []string
}

// scoreCandidate evaluates one candidate against the extracted fields and
// context clues.
func scoreCandidate(fields entity.ExtractedFields, clues entity.ContextClues, c entity.Candidate) candidateScore {
	var s candidateScore

	s.Name = NameScore(fields.CustomerName, c.Name)
	switch {
	case s.Name >= 90:
		s.Reasons = append(s.Reasons, "strong name match")
	case s.Name >= 70:
		s.Reasons = append(s.Reasons, "good name match")
	case s.Name >= 40:
		s.Reasons = append(s.Reasons, "partial name match")
	}

	s.Plate = plateScore(fields.CarNumber, clues.CarNumbers, c.PlateNumber)
	switch {
	case s.Plate >= 95:
		s.Reasons = append(s.Reasons, "plate number match")
	case s.Plate >= 60:
		s.Reasons = append(s.Reasons, "partial plate match")
	}

	var contextReasons []string
	s.Context, contextReasons = contextScore(fields, clues, c)
	s.Reasons = append(s.Reasons, contextReasons...)

	s.Total = weightName*s.Name + weightPlate*s.Plate + weightContext*s.Context
	if s.Total > 100 {
		s.Total = 100
	}
	return s
}

// plateScore compares the structured car_number and any plate-like clue
// tokens against the candidate's registered plate.
func plateScore(extracted string, clueNumbers []string, candidatePlate string) float64 {
	if NormalizePlate(candidatePlate) == "" {
		return 0
	}
	if extracted != "" {
		if NormalizePlate(extracted) == NormalizePlate(candidatePlate) {
			return 100
		}
		if PlatesEquivalent(extracted, candidatePlate) {
			return 95
		}
		if suffixOverlap(extracted, candidatePlate) {
			return 60
		}
	}
	for _, clue := range clueNumbers {
		if PlatesEquivalent(clue, candidatePlate) {
			return 85
		}
	}
	return 0
}

// suffixOverlap reports whether one plate's digits end with the other's,
// with at least four digits shared. Handwritten plates often drop a prefix.
func suffixOverlap(a, b string) bool {
	da := digitsOf(NormalizePlate(a))
	db := digitsOf(NormalizePlate(b))
	if len(da) < 4 || len(db) < 4 {
		return false
	}
	return strings.HasSuffix(da, db) || strings.HasSuffix(db, da)
}

// contextScore rewards overlap between loose document clues and the
// candidate's contract: agreement-number hits and amounts within tolerance
// of the contracted monthly amount.
func contextScore(fields entity.ExtractedFields, clues entity.ContextClues, c entity.Candidate) (float64, []string) {
	score := 0.0
	var reasons []string

	if c.ContractNumber != "" {
		refs := append([]string{}, clues.AgreementNumbers...)
		if fields.ContractNumber != "" {
			refs = append(refs, fields.ContractNumber)
		}
		for _, ref := range refs {
			if referencesEqual(ref, c.ContractNumber) {
				score += 60
				reasons = append(reasons, "agreement number match")
				break
			}
		}
	}

	if c.MonthlyAmount > 0 {
		amounts := append([]string{}, clues.Amounts...)
		if fields.TotalAmount != nil {
			amounts = append(amounts, strconv.FormatFloat(*fields.TotalAmount, 'f', -1, 64))
		}
		for _, raw := range amounts {
			v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
			if err != nil || v <= 0 {
				continue
			}
			diff := v - c.MonthlyAmount
			if diff < 0 {
				diff = -diff
			}
			if diff <= amountTolerance*c.MonthlyAmount {
				score += 40
				reasons = append(reasons, "amount matches contract")
				break
			}
		}
	}

	if score > 100 {
		score = 100
	}
	return score, reasons
}

// referencesEqual compares contract references ignoring case, separators
// and leading zeros in the numeric part.
func referencesEqual(a, b string) bool {
	na, nb := NormalizePlate(a), NormalizePlate(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	da := strings.TrimLeft(digitsOf(na), "0")
	db := strings.TrimLeft(digitsOf(nb), "0")
	return da != "" && da == db
}
