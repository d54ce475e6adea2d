package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tessera/internal/trading/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

// Postgres persists share balances and holder clocks in PostgreSQL. Transfer
// locks the source row FOR UPDATE so the balance check and debit are atomic,
// mirroring the in-memory store's semantics.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) BalanceOf(ctx context.Context, assetID domain.AssetID, holder domain.Address) (domain.Shares, error) {
	var shares int64
	err := s.db.QueryRowContext(ctx,
		`SELECT shares FROM share_balances WHERE asset_id = $1 AND holder = $2`,
		int64(assetID), holder.String()).Scan(&shares)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return domain.Shares(shares), nil
}

func (s *Postgres) Credit(ctx context.Context, assetID domain.AssetID, holder domain.Address, amount domain.Shares) error {
	if amount <= 0 {
		return sentinel.ErrInvalidState
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO share_balances (asset_id, holder, shares)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset_id, holder) DO UPDATE SET
			shares = share_balances.shares + EXCLUDED.shares`,
		int64(assetID), holder.String(), int64(amount),
	)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

func (s *Postgres) Transfer(ctx context.Context, assetID domain.AssetID, from, to domain.Address, amount domain.Shares) error {
	if amount <= 0 {
		return sentinel.ErrInvalidState
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback()

	var available int64
	err = tx.QueryRowContext(ctx,
		`SELECT shares FROM share_balances WHERE asset_id = $1 AND holder = $2 FOR UPDATE`,
		int64(assetID), from.String()).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrInvalidState
		}
		return fmt.Errorf("lock source balance: %w", err)
	}
	if available < int64(amount) {
		return sentinel.ErrInvalidState
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE share_balances SET shares = shares - $3 WHERE asset_id = $1 AND holder = $2`,
		int64(assetID), from.String(), int64(amount))
	if err != nil {
		return fmt.Errorf("debit source balance: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO share_balances (asset_id, holder, shares)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset_id, holder) DO UPDATE SET
			shares = share_balances.shares + EXCLUDED.shares`,
		int64(assetID), to.String(), int64(amount))
	if err != nil {
		return fmt.Errorf("credit destination balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

func (s *Postgres) TotalByAsset(ctx context.Context, assetID domain.AssetID) (domain.Shares, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(shares), 0) FROM share_balances WHERE asset_id = $1`,
		int64(assetID)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}
	return domain.Shares(total), nil
}

func (s *Postgres) HoldingsOf(ctx context.Context, holder domain.Address) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, shares FROM share_balances
		WHERE holder = $1 AND shares > 0 ORDER BY asset_id`,
		holder.String())
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	var out []models.Holding
	for rows.Next() {
		var (
			assetID int64
			shares  int64
		)
		if err := rows.Scan(&assetID, &shares); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, models.Holding{
			AssetID: domain.AssetID(assetID),
			Holder:  holder,
			Shares:  domain.Shares(shares),
		})
	}
	return out, rows.Err()
}

func (s *Postgres) HoldersOf(ctx context.Context, assetID domain.AssetID) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT holder, shares FROM share_balances
		WHERE asset_id = $1 AND shares > 0 ORDER BY holder`,
		int64(assetID))
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var out []models.Holding
	for rows.Next() {
		var (
			holder string
			shares int64
		)
		if err := rows.Scan(&holder, &shares); err != nil {
			return nil, fmt.Errorf("scan holder: %w", err)
		}
		out = append(out, models.Holding{
			AssetID: assetID,
			Holder:  domain.Address(holder),
			Shares:  domain.Shares(shares),
		})
	}
	return out, rows.Err()
}

func (s *Postgres) LastTransferAt(ctx context.Context, holder domain.Address) (time.Time, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT last_transfer_at FROM holder_clocks WHERE holder = $1`,
		holder.String()).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, sentinel.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("read holder clock: %w", err)
	}
	return at, nil
}

func (s *Postgres) SetLastTransferAt(ctx context.Context, holder domain.Address, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holder_clocks (holder, last_transfer_at)
		VALUES ($1, $2)
		ON CONFLICT (holder) DO UPDATE SET
			last_transfer_at = EXCLUDED.last_transfer_at`,
		holder.String(), at)
	if err != nil {
		return fmt.Errorf("set holder clock: %w", err)
	}
	return nil
}
