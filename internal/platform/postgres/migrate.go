package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	sql     string
}

// migrations are applied in order exactly once each. Append only; never edit
// a shipped entry.
var migrations = []migration{
	{1, `
		CREATE TABLE IF NOT EXISTS assets (
			id                BIGINT PRIMARY KEY,
			name              TEXT NOT NULL,
			category          TEXT NOT NULL,
			location          TEXT NOT NULL,
			valuation_cents   BIGINT NOT NULL CHECK (valuation_cents > 0),
			total_shares      BIGINT NOT NULL DEFAULT 0,
			share_price_cents BIGINT NOT NULL DEFAULT 0,
			document_hash     TEXT NOT NULL,
			registry_number   TEXT NOT NULL,
			active            BOOLEAN NOT NULL DEFAULT TRUE,
			tokenized         BOOLEAN NOT NULL DEFAULT FALSE,
			last_valuation_at TIMESTAMPTZ NOT NULL,
			custodian         TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL
		)`},
	{2, `
		CREATE TABLE IF NOT EXISTS compliance_records (
			address           TEXT PRIMARY KEY,
			whitelisted       BOOLEAN NOT NULL,
			kyc_expiry        TIMESTAMPTZ NOT NULL,
			kyc_document_hash TEXT NOT NULL,
			jurisdiction      TEXT NOT NULL,
			max_holding       BIGINT NOT NULL DEFAULT 0,
			updated_at        TIMESTAMPTZ NOT NULL
		)`},
	{3, `
		CREATE TABLE IF NOT EXISTS blacklist_flags (
			address    TEXT PRIMARY KEY,
			flagged    BOOLEAN NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL
		)`},
	{4, `
		CREATE TABLE IF NOT EXISTS share_balances (
			asset_id BIGINT NOT NULL,
			holder   TEXT NOT NULL,
			shares   BIGINT NOT NULL CHECK (shares >= 0),
			PRIMARY KEY (asset_id, holder)
		)`},
	{5, `
		CREATE TABLE IF NOT EXISTS holder_clocks (
			holder           TEXT PRIMARY KEY,
			last_transfer_at TIMESTAMPTZ NOT NULL
		)`},
	{6, `
		CREATE TABLE IF NOT EXISTS yield_distributions (
			asset_id     BIGINT NOT NULL,
			seq          BIGINT NOT NULL,
			amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
			declared_at  TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (asset_id, seq)
		)`},
	{7, `
		CREATE TABLE IF NOT EXISTS yield_claims (
			asset_id   BIGINT NOT NULL,
			seq        BIGINT NOT NULL,
			holder     TEXT NOT NULL,
			claimed_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (asset_id, seq, holder)
		)`},
}

// Migrate brings the schema up to the current version.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := isApplied(ctx, db, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func isApplied(ctx context.Context, db *sql.DB, version int) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = $1`, version).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return n > 0, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("apply migration %d: %w", m.version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
		return fmt.Errorf("record migration %d: %w", m.version, err)
	}
	return tx.Commit()
}
