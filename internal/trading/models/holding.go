// Package models defines the trading engine's value types. Share balances
// themselves live in the store; these types are what crosses the service
// boundary.
package models

import (
	"time"

	"tessera/pkg/domain"
)

// Holding is one holder's position in one asset.
type Holding struct {
	AssetID domain.AssetID `json:"asset_id"`
	Holder  domain.Address `json:"holder"`
	Shares  domain.Shares  `json:"shares"`
}

// Trade is the receipt for a settled purchase or sale.
type Trade struct {
	AssetID    domain.AssetID `json:"asset_id"`
	Holder     domain.Address `json:"holder"`
	Shares     domain.Shares  `json:"shares"`
	AmountUSD  domain.USD     `json:"amount_cents"`
	SettledAt  time.Time      `json:"settled_at"`
	NewBalance domain.Shares  `json:"new_balance"`
}

// Position is one line of a portfolio summary, a holding joined with the
// asset's current pricing.
type Position struct {
	AssetID    domain.AssetID `json:"asset_id"`
	Name       string         `json:"name"`
	Shares     domain.Shares  `json:"shares"`
	SharePrice domain.USD     `json:"share_price_cents"`
	Value      domain.USD     `json:"value_cents"`
}

// Portfolio aggregates a holder's positions with their payment-token balance.
type Portfolio struct {
	Holder       domain.Address    `json:"holder"`
	Positions    []Position        `json:"positions"`
	TotalValue   domain.USD        `json:"total_value_cents"`
	TokenBalance domain.TokenUnits `json:"token_balance"`
}
