// Package paytoken is the boundary to the external payment-token
// collaborator. The token's internal ledger, staking accrual, and governance
// voting are out of scope; the engine only needs the capability surface below
// and checks every boolean result; a false aborts the whole operation.
//
//go:generate mockgen -source=paytoken.go -destination=mocks/mocks.go -package=mocks Ledger
package paytoken

import (
	"context"

	"tessera/pkg/domain"
)

// Ledger is the payment-token capability surface. Transfer spends from the
// engine's own escrow account; TransferFrom pulls previously approved value
// from another holder.
type Ledger interface {
	BalanceOf(ctx context.Context, addr domain.Address) (domain.TokenUnits, error)
	Transfer(ctx context.Context, to domain.Address, amount domain.TokenUnits) (bool, error)
	TransferFrom(ctx context.Context, from, to domain.Address, amount domain.TokenUnits) (bool, error)
}
