package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"tessera/internal/trading/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

type balanceKey struct {
	assetID domain.AssetID
	holder  domain.Address
}

// InMemory keeps share balances and holder clocks in process. Used in tests
// and single-instance dev deployments.
type InMemory struct {
	mu       sync.RWMutex
	balances map[balanceKey]domain.Shares
	clocks   map[domain.Address]time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		balances: make(map[balanceKey]domain.Shares),
		clocks:   make(map[domain.Address]time.Time),
	}
}

// BalanceOf returns holder's position in assetID. A holder without a row
// holds zero shares.
func (s *InMemory) BalanceOf(_ context.Context, assetID domain.AssetID, holder domain.Address) (domain.Shares, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[balanceKey{assetID, holder}], nil
}

// Credit adds shares to holder's position. Only tokenization mints; every
// later movement goes through Transfer.
func (s *InMemory) Credit(_ context.Context, assetID domain.AssetID, holder domain.Address, amount domain.Shares) error {
	if amount <= 0 {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey{assetID, holder}] += amount
	return nil
}

// Transfer moves shares between holders of the same asset. Returns
// sentinel.ErrInvalidState when the source balance cannot cover the amount;
// balances never go negative.
func (s *InMemory) Transfer(_ context.Context, assetID domain.AssetID, from, to domain.Address, amount domain.Shares) error {
	if amount <= 0 {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fromKey := balanceKey{assetID, from}
	if s.balances[fromKey] < amount {
		return sentinel.ErrInvalidState
	}
	s.balances[fromKey] -= amount
	s.balances[balanceKey{assetID, to}] += amount
	return nil
}

// TotalByAsset sums every holder's balance for assetID.
func (s *InMemory) TotalByAsset(_ context.Context, assetID domain.AssetID) (domain.Shares, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total domain.Shares
	for key, shares := range s.balances {
		if key.assetID == assetID {
			total += shares
		}
	}
	return total, nil
}

// HoldingsOf returns holder's non-zero positions ordered by asset ID.
func (s *InMemory) HoldingsOf(_ context.Context, holder domain.Address) ([]models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Holding
	for key, shares := range s.balances {
		if key.holder == holder && shares > 0 {
			out = append(out, models.Holding{AssetID: key.assetID, Holder: holder, Shares: shares})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

// HoldersOf returns every non-zero position in assetID ordered by address.
func (s *InMemory) HoldersOf(_ context.Context, assetID domain.AssetID) ([]models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Holding
	for key, shares := range s.balances {
		if key.assetID == assetID && shares > 0 {
			out = append(out, models.Holding{AssetID: assetID, Holder: key.holder, Shares: shares})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Holder < out[j].Holder })
	return out, nil
}

// LastTransferAt returns holder's sell-lock clock or sentinel.ErrNotFound for
// an address that never received shares.
func (s *InMemory) LastTransferAt(_ context.Context, holder domain.Address) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.clocks[holder]
	if !ok {
		return time.Time{}, sentinel.ErrNotFound
	}
	return at, nil
}

// SetLastTransferAt resets holder's sell-lock clock. Every purchase re-locks
// all of the holder's positions.
func (s *InMemory) SetLastTransferAt(_ context.Context, holder domain.Address, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clocks[holder] = at
	return nil
}
