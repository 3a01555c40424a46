package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/constants"
)

// ContextClues is the bag of heuristically extracted tokens used as a
// corroborating signal during matching. It is derived from raw OCR text
// independently of the model's structured output.
type ContextClues struct {
	CarNumbers       []string `json:"car_numbers"`
	Months           []string `json:"months"`
	Amounts          []string `json:"amounts"`
	AgreementNumbers []string `json:"agreement_numbers"`
}

// ExtractedFields is the normalized field set returned by the vision model.
// All fields are optional: the model may omit anything it cannot read.
type ExtractedFields struct {
	InvoiceNumber    string                     `json:"invoice_number,omitempty"`
	InvoiceDate      string                     `json:"invoice_date,omitempty"` // YYYY-MM-DD
	CustomerName     string                     `json:"customer_name,omitempty"`
	ContractNumber   string                     `json:"contract_number,omitempty"`
	CarNumber        string                     `json:"car_number,omitempty"`
	TotalAmount      *float64                   `json:"total_amount,omitempty"`
	PaymentPeriod    string                     `json:"payment_period,omitempty"`
	Notes            string                     `json:"notes,omitempty"`
	LanguageDetected constants.DetectedLanguage `json:"language_detected,omitempty"`
	RawText          string                     `json:"raw_text,omitempty"`
	ContextClues     *ContextClues              `json:"context_clues,omitempty"`
}

// ProcessingInfo records which engine produced the extraction and how
// trustworthy the raw text looks.
type ProcessingInfo struct {
	OCREngine        constants.OCREngine        `json:"ocr_engine"`
	LanguageDetected constants.DetectedLanguage `json:"language_detected"`
	OCRConfidence    float32                    `json:"ocr_confidence"` // 0..1
}

// ScanResult is one OCR+matching attempt. Immutable once produced, except
// for the confirmation fields set by the feedback recorder.
type ScanResult struct {
	ID        uuid.UUID            `json:"id"`
	CompanyID uuid.UUID            `json:"company_id"`
	Filename  string               `json:"filename"`
	Status    constants.ScanStatus `json:"status"`

	Fields     ExtractedFields `json:"fields"`
	Matching   MatchingResult  `json:"matching"`
	Tier       constants.DecisionTier `json:"tier"`
	Processing ProcessingInfo  `json:"processing_info"`

	Improvements []string `json:"improvements,omitempty"` // preprocessing steps applied

	ConfirmedCustomerID *uuid.UUID `json:"confirmed_customer_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// RawMatches serializes the candidate list for persistence.
func (s *ScanResult) RawMatches() json.RawMessage {
	b, err := json.Marshal(s.Matching.AllMatches)
	if err != nil {
		return json.RawMessage("[]")
	}
	return b
}
