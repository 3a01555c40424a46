package entity

import (
	"time"

	"github.com/google/uuid"
)

// Feedback verdicts recorded against a scan's suggested match.
const (
	FeedbackConfirmed = "confirmed"
	FeedbackRejected  = "rejected"
	FeedbackCorrected = "corrected" // user picked a different customer
)

// MatchingFeedback is one append-only training signal: which customer the
// system suggested, what the user decided, and at what confidence. Rows are
// never updated or deleted.
type MatchingFeedback struct {
	ID                  uuid.UUID  `json:"id"`
	ScanID              uuid.UUID  `json:"scan_id"`
	CompanyID           uuid.UUID  `json:"company_id"`
	SuggestedCustomerID *uuid.UUID `json:"suggested_customer_id,omitempty"`
	ConfirmedCustomerID *uuid.UUID `json:"confirmed_customer_id,omitempty"`
	Feedback            string     `json:"feedback"`
	Confidence          float64    `json:"confidence"` // 0..100 at suggestion time
	CreatedAt           time.Time  `json:"created_at"`
}
