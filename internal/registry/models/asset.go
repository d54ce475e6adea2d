package models

import (
	"strings"
	"time"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Asset is the registry's aggregate for one physical asset.
//
// Invariants:
//   - Name is non-empty; Valuation is strictly positive
//   - Custodian is a non-zero address
//   - Tokenized flips false→true exactly once; there is no un-tokenize
//   - TotalShares and SharePrice stay zero until tokenization
//   - Once tokenized, SharePrice == floor(Valuation / TotalShares) after
//     every valuation change; the residual cents are permanently
//     non-representable (accepted rounding loss)
//
// Price changes are forward-only: a revaluation never reprices trades that
// already settled.
type Asset struct {
	ID              domain.AssetID `json:"id"`
	Name            string         `json:"name"`
	Category        string         `json:"category"`
	Location        string         `json:"location"`
	Valuation       domain.USD     `json:"valuation_cents"`
	TotalShares     domain.Shares  `json:"total_shares"`
	SharePrice      domain.USD     `json:"share_price_cents"`
	DocumentHash    string         `json:"document_hash"`
	RegistryNumber  string         `json:"registry_number"`
	Active          bool           `json:"active"`
	Tokenized       bool           `json:"tokenized"`
	LastValuationAt time.Time      `json:"last_valuation_at"`
	Custodian       domain.Address `json:"custodian"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewAsset validates registration input and builds an active, untokenized
// asset. The store assigns the ID.
func NewAsset(name, category, location string, valuation domain.USD, documentHash, registryNumber string, custodian domain.Address, now time.Time) (*Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "asset name cannot be empty")
	}
	if !valuation.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "valuation must be positive")
	}
	if custodian.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "custodian address is required")
	}
	return &Asset{
		Name:            name,
		Category:        strings.TrimSpace(category),
		Location:        strings.TrimSpace(location),
		Valuation:       valuation,
		DocumentHash:    documentHash,
		RegistryNumber:  registryNumber,
		Active:          true,
		LastValuationAt: now,
		Custodian:       custodian,
		CreatedAt:       now,
	}, nil
}

// CanTokenize checks the tokenization transition. Use with ApplyTokenization
// in store Execute callbacks.
func (a *Asset) CanTokenize(totalShares domain.Shares) error {
	if !a.Active {
		return dErrors.New(dErrors.CodeConflict, "asset is not active")
	}
	if a.Tokenized {
		return dErrors.New(dErrors.CodeConflict, "asset is already tokenized")
	}
	if !totalShares.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "total shares must be positive")
	}
	return nil
}

// ApplyTokenization sets the share supply and the derived share price. The
// transition is irreversible.
func (a *Asset) ApplyTokenization(totalShares domain.Shares) {
	a.TotalShares = totalShares
	a.SharePrice = domain.USD(a.Valuation.Cents() / int64(totalShares))
	a.Tokenized = true
}

// CanRevalue checks a valuation update.
func (a *Asset) CanRevalue(valuation domain.USD) error {
	if !a.Active {
		return dErrors.New(dErrors.CodeConflict, "asset is not active")
	}
	if !valuation.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "valuation must be positive")
	}
	return nil
}

// ApplyValuation records the new valuation and, once tokenized, recomputes
// the share price by the same floor-division rule.
func (a *Asset) ApplyValuation(valuation domain.USD, now time.Time) {
	a.Valuation = valuation
	a.LastValuationAt = now
	if a.Tokenized {
		a.SharePrice = domain.USD(a.Valuation.Cents() / int64(a.TotalShares))
	}
}

// CanDeactivate checks the park transition.
func (a *Asset) CanDeactivate() error {
	if !a.Active {
		return dErrors.New(dErrors.CodeConflict, "asset is already inactive")
	}
	return nil
}

// ApplyDeactivation parks the asset; trading and new distributions stop,
// reads keep working.
func (a *Asset) ApplyDeactivation() {
	a.Active = false
}

// Tradeable reports whether shares of this asset can change hands.
func (a *Asset) Tradeable() bool {
	return a.Active && a.Tokenized
}
