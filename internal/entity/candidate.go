package entity

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is a customer row, joined with its vehicle and contract, that the
// matcher considers as a potential owner of a scanned document. Candidate
// pools are always scoped to one company; a pool must never mix tenants.
type Candidate struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	Name           string    `json:"name"`    // company name or "first last", Arabic preferred
	Phone          string    `json:"phone"`
	PlateNumber    string    `json:"plate_number"`
	ContractID     uuid.UUID `json:"contract_id"`
	ContractNumber string    `json:"contract_number"`
	MonthlyAmount  float64   `json:"monthly_amount"`
	UpdatedAt      time.Time `json:"updated_at"` // recency tie-break
}

// CandidateMatch is a scored candidate. Derived transiently during matching
// and embedded into the scan's MatchingResult; never stored on its own.
type CandidateMatch struct {
	CustomerID     uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	PlateNumber    string    `json:"car_number,omitempty"`
	ContractID     uuid.UUID `json:"agreement_id"`
	ContractNumber string    `json:"contract_number,omitempty"`
	Confidence     float64   `json:"confidence"` // 0..100
	MatchReasons   []string  `json:"match_reasons"`
}

// MatchingResult holds the ranked candidates plus the aggregate confidence
// and its named sub-scores. AllMatches is sorted descending by confidence;
// BestMatch, when present, is AllMatches[0].
type MatchingResult struct {
	BestMatch         *CandidateMatch  `json:"best_match,omitempty"`
	AllMatches        []CandidateMatch `json:"all_matches"`
	TotalConfidence   float64          `json:"total_confidence"`   // 0..100
	OCRConfidence     float32          `json:"ocr_confidence"`     // 0..1, carried through
	NameSimilarity    float64          `json:"name_similarity"`    // 0..100
	CarMatchScore     float64          `json:"car_match_score"`    // 0..100
	ContextMatchScore float64          `json:"context_match_score"` // 0..100
}
