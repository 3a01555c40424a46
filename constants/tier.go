package constants

// DecisionTier classifies a match by how much human oversight it needs.
type DecisionTier string

const (
	TierAutoAssign   DecisionTier = "auto_assign"
	TierNeedsReview  DecisionTier = "needs_review"
	TierManualReview DecisionTier = "manual_review"
)

// Default confidence thresholds for decision tiering. Product-level tuning
// constants, overridable per call.
const (
	DefaultAutoAssignThreshold = 85.0
	DefaultReviewThreshold     = 70.0
)
