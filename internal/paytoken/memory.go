package paytoken

import (
	"context"
	"sync"

	"tessera/pkg/domain"
)

// Memory is an in-process token ledger for dev deployments and tests. The
// production deployment points the engine at the external token service
// instead.
type Memory struct {
	mu       sync.Mutex
	escrow   domain.Address
	balances map[domain.Address]domain.TokenUnits
}

// NewMemory builds a ledger whose Transfer spends from the given escrow
// account.
func NewMemory(escrow domain.Address) *Memory {
	return &Memory{
		escrow:   escrow,
		balances: make(map[domain.Address]domain.TokenUnits),
	}
}

// Mint credits an account out of thin air. Test and bootstrap helper only.
func (m *Memory) Mint(addr domain.Address, amount domain.TokenUnits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] += amount
}

func (m *Memory) BalanceOf(_ context.Context, addr domain.Address) (domain.TokenUnits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr], nil
}

func (m *Memory) Transfer(_ context.Context, to domain.Address, amount domain.TokenUnits) (bool, error) {
	return m.move(m.escrow, to, amount), nil
}

func (m *Memory) TransferFrom(_ context.Context, from, to domain.Address, amount domain.TokenUnits) (bool, error) {
	return m.move(from, to, amount), nil
}

func (m *Memory) move(from, to domain.Address, amount domain.TokenUnits) bool {
	if amount <= 0 || from.IsZero() || to.IsZero() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return false
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return true
}
