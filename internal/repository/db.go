// Package repository persists scans, feedback, and the customer candidate
// pools. All queries run over database/sql so production (pgx over a pool)
// and local/dev or tests (modernc sqlite) share one code path. Timestamps
// are stored as unix seconds to stay portable across both drivers.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/fleetify/invoice-scan/internal/common"
)

// Open connects according to cfg.Driver: "postgres" builds a pgx pool and
// wraps it as *sql.DB; "sqlite" opens modernc sqlite directly (pool is nil).
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case "sqlite":
		logger.Info("db.open", "driver", "sqlite", "dsn", cfg.DSN)
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite serializes writers; a single conn avoids lock contention
		db.SetMaxOpenConns(1)
		return db, nil, nil

	case "postgres", "":
		logger.Info("db.open", "driver", "postgres")
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("db.open_failed", "error", err)
			return nil, nil, fmt.Errorf("parse dsn: %w", err)
		}
		pc.MaxConns = cfg.MaxConns
		pc.MinConns = cfg.MinConns
		pc.MaxConnLifetime = cfg.MaxConnLifetime
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		pc.ConnConfig.RuntimeParams["application_name"] = "invoice-scan"
		if cfg.StatementTimeout > 0 {
			pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
		}

		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("db.open_failed", "error", err)
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return stdlib.OpenDBFromPool(pool), pool, nil

	default:
		return nil, nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// Close shuts the connections down gracefully.
func Close(db *sql.DB, pool *pgxpool.Pool, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("db.close")
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("db.close_failed", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
}

// HealthCheck pings the database; the caller owns the deadline.
func HealthCheck(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

// Schema statements, portable between Postgres and SQLite. IDs are uuid
// strings; timestamps are unix seconds; JSON payloads are serialized text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_customers_company ON customers (company_id)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		customer_id TEXT,
		plate_number TEXT NOT NULL DEFAULT '',
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_company ON vehicles (company_id)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		vehicle_id TEXT,
		contract_number TEXT NOT NULL DEFAULT '',
		monthly_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_company ON contracts (company_id, status)`,
	`CREATE TABLE IF NOT EXISTS invoice_scans (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		tier TEXT NOT NULL DEFAULT '',
		ocr_engine TEXT NOT NULL DEFAULT '',
		language_detected TEXT NOT NULL DEFAULT '',
		ocr_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		raw_text TEXT NOT NULL DEFAULT '',
		extracted_fields TEXT NOT NULL DEFAULT '{}',
		all_matches TEXT NOT NULL DEFAULT '[]',
		improvements TEXT NOT NULL DEFAULT '[]',
		matched_customer_id TEXT,
		matched_contract_id TEXT,
		confirmed_customer_id TEXT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_scans_company ON invoice_scans (company_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS matching_feedback (
		id TEXT PRIMARY KEY,
		scan_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		suggested_customer_id TEXT,
		confirmed_customer_id TEXT,
		feedback TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matching_feedback_scan ON matching_feedback (scan_id)`,
}

// Migrate creates the schema when missing. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
