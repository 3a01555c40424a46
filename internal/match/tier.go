package match

import "github.com/fleetify/invoice-scan/constants"

// Classify maps an aggregate confidence (0..100) onto a decision tier.
// Boundaries are inclusive: confidence equal to a threshold takes the
// stronger tier.
func Classify(confidence, autoThreshold, reviewThreshold float64) constants.DecisionTier {
	if autoThreshold <= 0 {
		autoThreshold = constants.DefaultAutoAssignThreshold
	}
	if reviewThreshold <= 0 {
		reviewThreshold = constants.DefaultReviewThreshold
	}
	switch {
	case confidence >= autoThreshold:
		return constants.TierAutoAssign
	case confidence >= reviewThreshold:
		return constants.TierNeedsReview
	default:
		return constants.TierManualReview
	}
}
