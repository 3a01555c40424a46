package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/entity"
)

// ScanRepository persists scan results and their lifecycle transitions.
type ScanRepository interface {
	Insert(ctx context.Context, scan *entity.ScanResult) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ScanResult, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]entity.ScanResult, error)
	// Resolve moves a matched scan to confirmed or rejected. It enforces
	// the lifecycle: illegal transitions fail with ErrScanStateConflict.
	Resolve(ctx context.Context, id uuid.UUID, status constants.ScanStatus, confirmedCustomerID *uuid.UUID) error
}

type scanRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewScanRepository(db *sql.DB, logger *slog.Logger) ScanRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &scanRepository{db: db, logger: logger}
}

func (r *scanRepository) Insert(ctx context.Context, scan *entity.ScanResult) error {
	if scan.ID == uuid.Nil {
		scan.ID = uuid.New()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now().UTC()
	}

	fields, err := json.Marshal(scan.Fields)
	if err != nil {
		return common.WrapError(err, "marshal fields")
	}
	improvements, err := json.Marshal(orEmpty(scan.Improvements))
	if err != nil {
		return common.WrapError(err, "marshal improvements")
	}

	var matchedCustomer, matchedContract any
	if best := scan.Matching.BestMatch; best != nil {
		matchedCustomer = best.CustomerID.String()
		matchedContract = best.ContractID.String()
	}
	var confirmed any
	if scan.ConfirmedCustomerID != nil {
		confirmed = scan.ConfirmedCustomerID.String()
	}

	const q = `
		INSERT INTO invoice_scans (
			id, company_id, filename, status, tier,
			ocr_engine, language_detected, ocr_confidence, total_confidence,
			raw_text, extracted_fields, all_matches, improvements,
			matched_customer_id, matched_contract_id, confirmed_customer_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	now := time.Now().UTC().Unix()
	_, err = r.db.ExecContext(ctx, q,
		scan.ID.String(), scan.CompanyID.String(), scan.Filename, string(scan.Status), string(scan.Tier),
		string(scan.Processing.OCREngine), string(scan.Processing.LanguageDetected),
		float64(scan.Processing.OCRConfidence), scan.Matching.TotalConfidence,
		scan.Fields.RawText, string(fields), string(scan.RawMatches()), string(improvements),
		matchedCustomer, matchedContract, confirmed,
		scan.CreatedAt.Unix(), now,
	)
	if err != nil {
		r.logger.Error("repo.scans.insert_failed", "scan_id", scan.ID, "error", err)
		return errors.Join(common.ErrDatabase, err)
	}
	return nil
}

func (r *scanRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ScanResult, error) {
	const q = selectScan + ` WHERE id = $1`
	scan, err := scanRow(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return scan, err
}

func (r *scanRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]entity.ScanResult, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = selectScan + ` WHERE company_id = $1 ORDER BY created_at DESC, id LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, companyID.String(), limit)
	if err != nil {
		return nil, errors.Join(common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.ScanResult
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *scan)
	}
	return out, rows.Err()
}

func (r *scanRepository) Resolve(ctx context.Context, id uuid.UUID, status constants.ScanStatus, confirmedCustomerID *uuid.UUID) error {
	var current string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM invoice_scans WHERE id = $1`, id.String()).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return errors.Join(common.ErrDatabase, err)
	}
	if !constants.CanTransition(constants.ScanStatus(current), status) {
		return common.ErrScanStateConflict
	}

	var confirmed any
	if confirmedCustomerID != nil {
		confirmed = confirmedCustomerID.String()
	}
	// the status guard repeats in the WHERE clause so concurrent resolves
	// cannot both win
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoice_scans SET status = $1, confirmed_customer_id = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
		string(status), confirmed, time.Now().UTC().Unix(), id.String(), current,
	)
	if err != nil {
		return errors.Join(common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrScanStateConflict
	}
	return nil
}

const selectScan = `
	SELECT id, company_id, filename, status, tier,
	       ocr_engine, language_detected, ocr_confidence, total_confidence,
	       extracted_fields, all_matches, improvements,
	       confirmed_customer_id, created_at
	FROM invoice_scans`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*entity.ScanResult, error) {
	var (
		s                        entity.ScanResult
		id, companyID            string
		status, tier             string
		engine, language         string
		ocrConfidence            float64
		fieldsJSON, matchesJSON  string
		improvementsJSON         string
		confirmed                sql.NullString
		createdAt                int64
	)
	err := row.Scan(&id, &companyID, &s.Filename, &status, &tier,
		&engine, &language, &ocrConfidence, &s.Matching.TotalConfidence,
		&fieldsJSON, &matchesJSON, &improvementsJSON,
		&confirmed, &createdAt)
	if err != nil {
		return nil, err
	}

	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if s.CompanyID, err = uuid.Parse(companyID); err != nil {
		return nil, err
	}
	s.Status = constants.ScanStatus(status)
	s.Tier = constants.DecisionTier(tier)
	s.Processing = entity.ProcessingInfo{
		OCREngine:        constants.OCREngine(engine),
		LanguageDetected: constants.DetectedLanguage(language),
		OCRConfidence:    float32(ocrConfidence),
	}
	s.Matching.OCRConfidence = float32(ocrConfidence)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()

	if err := json.Unmarshal([]byte(fieldsJSON), &s.Fields); err != nil {
		return nil, common.WrapError(err, "unmarshal fields")
	}
	if err := json.Unmarshal([]byte(matchesJSON), &s.Matching.AllMatches); err != nil {
		return nil, common.WrapError(err, "unmarshal matches")
	}
	if s.Matching.AllMatches == nil {
		s.Matching.AllMatches = []entity.CandidateMatch{}
	}
	if len(s.Matching.AllMatches) > 0 {
		s.Matching.BestMatch = &s.Matching.AllMatches[0]
	}
	if err := json.Unmarshal([]byte(improvementsJSON), &s.Improvements); err != nil {
		return nil, common.WrapError(err, "unmarshal improvements")
	}
	if confirmed.Valid {
		cid, err := uuid.Parse(confirmed.String)
		if err != nil {
			return nil, err
		}
		s.ConfirmedCustomerID = &cid
	}
	return &s, nil
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
