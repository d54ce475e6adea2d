package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tessera/internal/registry/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

// Postgres persists assets in PostgreSQL. Execute uses SELECT ... FOR UPDATE
// so the validate+mutate pair holds the row lock, mirroring the in-memory
// store's semantics.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const assetColumns = `id, name, category, location, valuation_cents, total_shares,
	share_price_cents, document_hash, registry_number, active, tokenized,
	last_valuation_at, custodian, created_at`

func (s *Postgres) Create(ctx context.Context, asset *models.Asset) (domain.AssetID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create asset: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id) + 1, 0) FROM assets`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("allocate asset id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, asset.Name, asset.Category, asset.Location, asset.Valuation.Cents(),
		int64(asset.TotalShares), asset.SharePrice.Cents(), asset.DocumentHash,
		asset.RegistryNumber, asset.Active, asset.Tokenized,
		asset.LastValuationAt, asset.Custodian.String(), asset.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert asset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create asset: %w", err)
	}
	asset.ID = domain.AssetID(id)
	return asset.ID, nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.AssetID) (*models.Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1`, int64(id))
	return scanAsset(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []*models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

func (s *Postgres) Execute(ctx context.Context, id domain.AssetID, validate func(*models.Asset) error, mutate func(*models.Asset)) (*models.Asset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin asset update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1 FOR UPDATE`, int64(id))
	asset, err := scanAsset(row)
	if err != nil {
		return nil, err
	}

	if err := validate(asset); err != nil {
		return nil, err
	}
	mutate(asset)

	_, err = tx.ExecContext(ctx, `
		UPDATE assets SET
			name = $2, category = $3, location = $4, valuation_cents = $5,
			total_shares = $6, share_price_cents = $7, document_hash = $8,
			registry_number = $9, active = $10, tokenized = $11,
			last_valuation_at = $12, custodian = $13
		WHERE id = $1`,
		int64(asset.ID), asset.Name, asset.Category, asset.Location,
		asset.Valuation.Cents(), int64(asset.TotalShares), asset.SharePrice.Cents(),
		asset.DocumentHash, asset.RegistryNumber, asset.Active, asset.Tokenized,
		asset.LastValuationAt, asset.Custodian.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("update asset %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit asset update: %w", err)
	}
	return asset, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var (
		a          models.Asset
		id         int64
		valuation  int64
		shares     int64
		sharePrice int64
		custodian  string
	)
	err := row.Scan(&id, &a.Name, &a.Category, &a.Location, &valuation, &shares,
		&sharePrice, &a.DocumentHash, &a.RegistryNumber, &a.Active, &a.Tokenized,
		&a.LastValuationAt, &custodian, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	a.ID = domain.AssetID(id)
	a.Valuation = domain.USDFromCents(valuation)
	a.TotalShares = domain.Shares(shares)
	a.SharePrice = domain.USDFromCents(sharePrice)
	a.Custodian = domain.Address(custodian)
	return &a, nil
}
