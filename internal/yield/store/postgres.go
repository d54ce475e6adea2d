package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tessera/internal/yield/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

// Postgres persists distributions and claims in PostgreSQL. Claim relies on
// the (asset_id, seq, holder) primary key so a repeat claim surfaces as a
// unique violation, never a double payout.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, dist *models.Distribution) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append distribution: %w", err)
	}
	defer tx.Rollback()

	// Seq allocation reads MAX(seq)+1, so concurrent appends for the same
	// asset must serialize. The advisory lock also covers the first append,
	// where there is no row yet to lock.
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock($1)`, int64(dist.AssetID)); err != nil {
		return 0, fmt.Errorf("lock distribution seq: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM yield_distributions WHERE asset_id = $1`,
		int64(dist.AssetID)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocate distribution seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO yield_distributions (asset_id, seq, amount_cents, declared_at)
		VALUES ($1, $2, $3, $4)`,
		int64(dist.AssetID), seq, dist.Amount.Cents(), dist.DeclaredAt)
	if err != nil {
		return 0, fmt.Errorf("insert distribution: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append distribution: %w", err)
	}
	dist.Seq = uint64(seq)
	return dist.Seq, nil
}

func (s *Postgres) Find(ctx context.Context, assetID domain.AssetID, seq uint64) (*models.Distribution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT asset_id, seq, amount_cents, declared_at
		FROM yield_distributions WHERE asset_id = $1 AND seq = $2`,
		int64(assetID), int64(seq))
	return scanDistribution(row)
}

func (s *Postgres) ListByAsset(ctx context.Context, assetID domain.AssetID) ([]*models.Distribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, seq, amount_cents, declared_at
		FROM yield_distributions WHERE asset_id = $1 ORDER BY seq`,
		int64(assetID))
	if err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	defer rows.Close()

	var out []*models.Distribution
	for rows.Next() {
		dist, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dist)
	}
	return out, rows.Err()
}

func (s *Postgres) Claim(ctx context.Context, assetID domain.AssetID, seq uint64, holder domain.Address, at time.Time) error {
	dist, err := s.Find(ctx, assetID, seq)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO yield_claims (asset_id, seq, holder, claimed_at)
		VALUES ($1, $2, $3, $4)`,
		int64(dist.AssetID), int64(dist.Seq), holder.String(), at)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *Postgres) Unclaim(ctx context.Context, assetID domain.AssetID, seq uint64, holder domain.Address) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM yield_claims WHERE asset_id = $1 AND seq = $2 AND holder = $3`,
		int64(assetID), int64(seq), holder.String())
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	return nil
}

func (s *Postgres) IsClaimed(ctx context.Context, assetID domain.AssetID, seq uint64, holder domain.Address) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM yield_claims
		WHERE asset_id = $1 AND seq = $2 AND holder = $3`,
		int64(assetID), int64(seq), holder.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDistribution(row rowScanner) (*models.Distribution, error) {
	var (
		d       models.Distribution
		assetID int64
		seq     int64
		amount  int64
	)
	err := row.Scan(&assetID, &seq, &amount, &d.DeclaredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan distribution: %w", err)
	}
	d.AssetID = domain.AssetID(assetID)
	d.Seq = uint64(seq)
	d.Amount = domain.USDFromCents(amount)
	return &d, nil
}
