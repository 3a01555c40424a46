package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/entity"
)

// FeedbackRepository is the append-only log of match confirmations. Rows
// feed future matching improvements; nothing ever updates or deletes them.
type FeedbackRepository interface {
	Record(ctx context.Context, fb entity.MatchingFeedback) error
	ListByScan(ctx context.Context, scanID uuid.UUID) ([]entity.MatchingFeedback, error)
}

type feedbackRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewFeedbackRepository(db *sql.DB, logger *slog.Logger) FeedbackRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &feedbackRepository{db: db, logger: logger}
}

func (r *feedbackRepository) Record(ctx context.Context, fb entity.MatchingFeedback) error {
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	var suggested, confirmed any
	if fb.SuggestedCustomerID != nil {
		suggested = fb.SuggestedCustomerID.String()
	}
	if fb.ConfirmedCustomerID != nil {
		confirmed = fb.ConfirmedCustomerID.String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO matching_feedback (
			id, scan_id, company_id, suggested_customer_id, confirmed_customer_id,
			feedback, confidence, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		fb.ID.String(), fb.ScanID.String(), fb.CompanyID.String(),
		suggested, confirmed, fb.Feedback, fb.Confidence, fb.CreatedAt.Unix(),
	)
	if err != nil {
		r.logger.Error("repo.feedback.record_failed", "scan_id", fb.ScanID, "error", err)
		return errors.Join(common.ErrFeedbackWrite, err)
	}
	r.logger.Info("repo.feedback.recorded",
		"scan_id", fb.ScanID, "feedback", fb.Feedback, "confidence", fb.Confidence)
	return nil
}

func (r *feedbackRepository) ListByScan(ctx context.Context, scanID uuid.UUID) ([]entity.MatchingFeedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scan_id, company_id, suggested_customer_id, confirmed_customer_id,
		       feedback, confidence, created_at
		FROM matching_feedback WHERE scan_id = $1 ORDER BY created_at`, scanID.String())
	if err != nil {
		return nil, errors.Join(common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.MatchingFeedback
	for rows.Next() {
		var (
			fb                   entity.MatchingFeedback
			id, scan, company    string
			suggested, confirmed sql.NullString
			createdAt            int64
		)
		if err := rows.Scan(&id, &scan, &company, &suggested, &confirmed,
			&fb.Feedback, &fb.Confidence, &createdAt); err != nil {
			return nil, err
		}
		if fb.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if fb.ScanID, err = uuid.Parse(scan); err != nil {
			return nil, err
		}
		if fb.CompanyID, err = uuid.Parse(company); err != nil {
			return nil, err
		}
		if suggested.Valid {
			v, err := uuid.Parse(suggested.String)
			if err != nil {
				return nil, err
			}
			fb.SuggestedCustomerID = &v
		}
		if confirmed.Valid {
			v, err := uuid.Parse(confirmed.String)
			if err != nil {
				return nil, err
			}
			fb.ConfirmedCustomerID = &v
		}
		fb.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, fb)
	}
	return out, rows.Err()
}
