package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/history"
	"github.com/fleetify/invoice-scan/internal/metrics"
	"github.com/fleetify/invoice-scan/internal/repository"
)

// FeedbackRecorder applies a user's verdict on a matched scan: it moves the
// scan to its terminal status and records the verdict in the append-only
// feedback log. The status change is applied first and never rolled back; a
// failed feedback write only warns.
type FeedbackRecorder struct {
	Scans    repository.ScanRepository
	Feedback repository.FeedbackRepository
	History  *history.Ring
	Logger   *slog.Logger
}

func NewFeedbackRecorder(scans repository.ScanRepository, feedback repository.FeedbackRepository, hist *history.Ring, logger *slog.Logger) *FeedbackRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackRecorder{Scans: scans, Feedback: feedback, History: hist, Logger: logger}
}

// Verdict is the user's decision on a scan's suggested match.
type Verdict struct {
	ScanID     uuid.UUID
	Feedback   string     // confirmed | rejected | corrected
	CustomerID *uuid.UUID // required for corrected, ignored for rejected
}

// Record resolves the scan's status, then appends the feedback row. The
// returned scan reflects the new status even when the feedback write fails;
// in that case the error is ErrFeedbackWrite and the caller should surface
// it as a warning, not a failure.
func (f *FeedbackRecorder) Record(ctx context.Context, v Verdict) (*entity.ScanResult, error) {
	scan, err := f.Scans.Get(ctx, v.ScanID)
	if err != nil {
		return nil, err
	}

	status, confirmedID := resolveVerdict(scan, v)
	if err := f.Scans.Resolve(ctx, v.ScanID, status, confirmedID); err != nil {
		return nil, err
	}
	scan.Status = status
	scan.ConfirmedCustomerID = confirmedID
	f.History.Resolve(v.ScanID, status, confirmedID)
	metrics.ObserveFeedback(v.Feedback)

	fb := entity.MatchingFeedback{
		ScanID:              scan.ID,
		CompanyID:           scan.CompanyID,
		ConfirmedCustomerID: confirmedID,
		Feedback:            v.Feedback,
		Confidence:          scan.Matching.TotalConfidence,
	}
	if scan.Matching.BestMatch != nil {
		id := scan.Matching.BestMatch.CustomerID
		fb.SuggestedCustomerID = &id
	}
	if err := f.Feedback.Record(ctx, fb); err != nil {
		f.Logger.Warn("pipeline.feedback.write_failed", "scan_id", v.ScanID, "err", err)
		return scan, err
	}

	f.Logger.Info("pipeline.feedback.ok",
		"scan_id", v.ScanID,
		"feedback", v.Feedback,
		"status", status,
	)
	return scan, nil
}

// resolveVerdict maps the verdict onto the scan's terminal status and the
// customer to confirm. A confirmed verdict keeps the suggested customer; a
// corrected one substitutes the user's pick.
func resolveVerdict(scan *entity.ScanResult, v Verdict) (constants.ScanStatus, *uuid.UUID) {
	switch v.Feedback {
	case entity.FeedbackRejected:
		return constants.ScanStatusRejected, nil
	case entity.FeedbackCorrected:
		return constants.ScanStatusConfirmed, v.CustomerID
	default:
		if v.CustomerID != nil {
			return constants.ScanStatusConfirmed, v.CustomerID
		}
		if scan.Matching.BestMatch != nil {
			id := scan.Matching.BestMatch.CustomerID
			return constants.ScanStatusConfirmed, &id
		}
		return constants.ScanStatusConfirmed, nil
	}
}
