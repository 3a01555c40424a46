package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/internal/entity"
)

// CandidateRepository loads the matching pool for one tenant. It satisfies
// match.CandidateSource.
type CandidateRepository interface {
	CandidatesForCompany(ctx context.Context, companyID uuid.UUID) ([]entity.Candidate, error)
}

type candidateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCandidateRepository(db *sql.DB, logger *slog.Logger) CandidateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &candidateRepository{db: db, logger: logger}
}

// CandidatesForCompany returns one row per active contract of the company,
// joined with the customer and the contract's vehicle. The company filter is
// the tenant-isolation boundary: nothing outside companyID may appear.
func (r *candidateRepository) CandidatesForCompany(ctx context.Context, companyID uuid.UUID) ([]entity.Candidate, error) {
	const q = `
		SELECT cu.id, cu.name, cu.phone,
		       COALESCE(v.plate_number, ''),
		       co.id, co.contract_number, co.monthly_amount, co.updated_at
		FROM contracts co
		JOIN customers cu ON cu.id = co.customer_id AND cu.company_id = co.company_id
		LEFT JOIN vehicles v ON v.id = co.vehicle_id
		WHERE co.company_id = $1 AND co.status = 'active'
		ORDER BY co.updated_at DESC`

	rows, err := r.db.QueryContext(ctx, q, companyID.String())
	if err != nil {
		r.logger.Error("repo.candidates.query_failed", "company_id", companyID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []entity.Candidate
	for rows.Next() {
		var (
			c                        entity.Candidate
			customerID, contractID string
			updatedAt              int64
		)
		if err := rows.Scan(&customerID, &c.Name, &c.Phone, &c.PlateNumber,
			&contractID, &c.ContractNumber, &c.MonthlyAmount, &updatedAt); err != nil {
			return nil, err
		}
		if c.CustomerID, err = uuid.Parse(customerID); err != nil {
			return nil, err
		}
		if c.ContractID, err = uuid.Parse(contractID); err != nil {
			return nil, err
		}
		c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}
