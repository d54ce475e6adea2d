package store

import (
	"context"
	"sync"
	"time"

	"tessera/internal/yield/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

type distKey struct {
	assetID domain.AssetID
	seq     uint64
}

type claimKey struct {
	assetID domain.AssetID
	seq     uint64
	holder  domain.Address
}

// InMemory keeps distributions and claims in process. Used in tests and
// single-instance dev deployments.
type InMemory struct {
	mu            sync.RWMutex
	distributions map[distKey]*models.Distribution
	nextSeq       map[domain.AssetID]uint64
	claims        map[claimKey]time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		distributions: make(map[distKey]*models.Distribution),
		nextSeq:       make(map[domain.AssetID]uint64),
		claims:        make(map[claimKey]time.Time),
	}
}

// Append assigns the next per-asset sequence number and stores the
// distribution. The stored record is immutable.
func (s *InMemory) Append(_ context.Context, dist *models.Distribution) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.nextSeq[dist.AssetID]
	s.nextSeq[dist.AssetID] = seq + 1
	dist.Seq = seq
	stored := *dist
	s.distributions[distKey{dist.AssetID, seq}] = &stored
	return seq, nil
}

// Find returns one distribution or sentinel.ErrNotFound.
func (s *InMemory) Find(_ context.Context, assetID domain.AssetID, seq uint64) (*models.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dist, ok := s.distributions[distKey{assetID, seq}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	detached := *dist
	return &detached, nil
}

// ListByAsset returns an asset's distributions in sequence order.
func (s *InMemory) ListByAsset(_ context.Context, assetID domain.AssetID) ([]*models.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := s.nextSeq[assetID]
	out := make([]*models.Distribution, 0, next)
	for seq := uint64(0); seq < next; seq++ {
		if dist, ok := s.distributions[distKey{assetID, seq}]; ok {
			detached := *dist
			out = append(out, &detached)
		}
	}
	return out, nil
}

// Claim marks holder's cut of one distribution as collected. Returns
// sentinel.ErrAlreadyUsed on a repeat claim and sentinel.ErrNotFound when the
// distribution does not exist.
func (s *InMemory) Claim(_ context.Context, assetID domain.AssetID, seq uint64, holder domain.Address, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.distributions[distKey{assetID, seq}]; !ok {
		return sentinel.ErrNotFound
	}
	key := claimKey{assetID, seq, holder}
	if _, ok := s.claims[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.claims[key] = at
	return nil
}

// Unclaim reverses a claim mark whose payout failed.
func (s *InMemory) Unclaim(_ context.Context, assetID domain.AssetID, seq uint64, holder domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, claimKey{assetID, seq, holder})
	return nil
}

// IsClaimed reports whether holder already collected this distribution.
func (s *InMemory) IsClaimed(_ context.Context, assetID domain.AssetID, seq uint64, holder domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.claims[claimKey{assetID, seq, holder}]
	return ok, nil
}
