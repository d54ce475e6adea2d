// Package models defines the yield ledger's aggregates. Distributions are
// immutable once declared; claim state lives beside them, one row per holder
// per distribution.
package models

import (
	"math/big"
	"time"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Distribution is one declared yield pool for an asset. The pool never
// exhausts: every holder's claim is computed pro-rata against the full
// amount, and the floor residue is an accepted rounding loss.
type Distribution struct {
	AssetID    domain.AssetID `json:"asset_id"`
	Seq        uint64         `json:"seq"`
	Amount     domain.USD     `json:"amount_cents"`
	DeclaredAt time.Time      `json:"declared_at"`
}

// NewDistribution validates and builds a distribution. Seq is assigned by the
// store at append time.
func NewDistribution(assetID domain.AssetID, amount domain.USD, declaredAt time.Time) (*Distribution, error) {
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "distribution amount must be positive")
	}
	return &Distribution{
		AssetID:    assetID,
		Amount:     amount,
		DeclaredAt: declaredAt,
	}, nil
}

// ShareOf computes holder's pro-rata cut: floor(Amount * balance / total).
// The intermediate product can exceed int64, so the arithmetic runs in
// big.Int.
func (d *Distribution) ShareOf(balance, total domain.Shares) (domain.USD, error) {
	if total <= 0 {
		return 0, dErrors.New(dErrors.CodeInvariantViolation, "distribution against zero total shares")
	}
	if balance <= 0 {
		return 0, nil
	}
	cut := new(big.Int).Mul(big.NewInt(d.Amount.Cents()), big.NewInt(int64(balance)))
	cut.Quo(cut, big.NewInt(int64(total)))
	return domain.USDFromCents(cut.Int64()), nil
}

// Claim records that one holder collected their cut of one distribution.
type Claim struct {
	AssetID   domain.AssetID `json:"asset_id"`
	Seq       uint64         `json:"seq"`
	Holder    domain.Address `json:"holder"`
	ClaimedAt time.Time      `json:"claimed_at"`
}
