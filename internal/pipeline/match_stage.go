package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/match"
	"github.com/fleetify/invoice-scan/internal/metrics"
)

// MatchStage ranks the company's candidates against the extracted fields
// and classifies the best confidence into a decision tier.
type MatchStage struct {
	Matcher         *match.Matcher
	AutoThreshold   float64
	ReviewThreshold float64
	Logger          *slog.Logger
}

func NewMatchStage(matcher *match.Matcher, autoThreshold, reviewThreshold float64, logger *slog.Logger) *MatchStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchStage{
		Matcher:         matcher,
		AutoThreshold:   autoThreshold,
		ReviewThreshold: reviewThreshold,
		Logger:          logger,
	}
}

func (m *MatchStage) Run(ctx context.Context, fields entity.ExtractedFields, companyID uuid.UUID, ocrConfidence float32) (entity.MatchingResult, constants.DecisionTier, error) {
	start := time.Now()
	defer func() { metrics.ObserveStage("match", time.Since(start)) }()

	result, err := m.Matcher.Match(ctx, fields, fields.RawText, companyID, ocrConfidence)
	if err != nil {
		return entity.MatchingResult{}, constants.TierManualReview, err
	}

	tier := match.Classify(result.TotalConfidence, m.AutoThreshold, m.ReviewThreshold)
	m.Logger.Info("pipeline.match.ok",
		"company_id", companyID,
		"candidates", len(result.AllMatches),
		"confidence", result.TotalConfidence,
		"tier", tier,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, tier, nil
}
