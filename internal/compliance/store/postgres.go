package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tessera/internal/compliance/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

// Postgres persists compliance records and blacklist flags in PostgreSQL.
// Both writes are upserts: compliance state has no history.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const recordColumns = `address, whitelisted, kyc_expiry, kyc_document_hash,
	jurisdiction, max_holding, updated_at`

func (s *Postgres) UpsertRecord(ctx context.Context, record *models.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			whitelisted = EXCLUDED.whitelisted,
			kyc_expiry = EXCLUDED.kyc_expiry,
			kyc_document_hash = EXCLUDED.kyc_document_hash,
			jurisdiction = EXCLUDED.jurisdiction,
			max_holding = EXCLUDED.max_holding,
			updated_at = EXCLUDED.updated_at`,
		record.Address.String(), record.Whitelisted, record.KYCExpiry,
		record.KYCDocumentHash, record.Jurisdiction, int64(record.MaxHolding),
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert compliance record: %w", err)
	}
	return nil
}

func (s *Postgres) FindRecord(ctx context.Context, addr domain.Address) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM compliance_records WHERE address = $1`,
		addr.String())

	var (
		r          models.Record
		address    string
		maxHolding int64
	)
	err := row.Scan(&address, &r.Whitelisted, &r.KYCExpiry, &r.KYCDocumentHash,
		&r.Jurisdiction, &maxHolding, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan compliance record: %w", err)
	}
	r.Address = domain.Address(address)
	r.MaxHolding = domain.Shares(maxHolding)
	return &r, nil
}

func (s *Postgres) ListRecords(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM compliance_records ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list compliance records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var (
			r          models.Record
			address    string
			maxHolding int64
		)
		err := rows.Scan(&address, &r.Whitelisted, &r.KYCExpiry, &r.KYCDocumentHash,
			&r.Jurisdiction, &maxHolding, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan compliance record: %w", err)
		}
		r.Address = domain.Address(address)
		r.MaxHolding = domain.Shares(maxHolding)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Postgres) SetFlag(ctx context.Context, flag *models.BlacklistFlag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blacklist_flags (address, flagged, reason, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			flagged = EXCLUDED.flagged,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at`,
		flag.Address.String(), flag.Flagged, flag.Reason, flag.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert blacklist flag: %w", err)
	}
	return nil
}

func (s *Postgres) FindFlag(ctx context.Context, addr domain.Address) (*models.BlacklistFlag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT address, flagged, reason, updated_at FROM blacklist_flags WHERE address = $1`,
		addr.String())

	var (
		f       models.BlacklistFlag
		address string
	)
	err := row.Scan(&address, &f.Flagged, &f.Reason, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan blacklist flag: %w", err)
	}
	f.Address = domain.Address(address)
	return &f, nil
}
