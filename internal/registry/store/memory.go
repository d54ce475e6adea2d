package store

import (
	"context"
	"sort"
	"sync"

	"tessera/internal/registry/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

// InMemory keeps assets in a map guarded by a RWMutex. IDs are allocated
// from a monotonic counter starting at zero.
type InMemory struct {
	mu     sync.RWMutex
	assets map[domain.AssetID]*models.Asset
	nextID domain.AssetID
}

func NewInMemory() *InMemory {
	return &InMemory{assets: make(map[domain.AssetID]*models.Asset)}
}

// Create assigns the next ID and stores the asset.
func (s *InMemory) Create(_ context.Context, asset *models.Asset) (domain.AssetID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	stored := *asset
	stored.ID = id
	s.assets[id] = &stored
	asset.ID = id
	return id, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.AssetID) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *asset
	return &copied, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		copied := *asset
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Execute atomically validates and mutates one asset. The lock is held
// across both callbacks so no other writer can interleave between the check
// and the change.
func (s *InMemory) Execute(_ context.Context, id domain.AssetID, validate func(*models.Asset) error, mutate func(*models.Asset)) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(asset); err != nil {
		return nil, err
	}
	mutate(asset)
	copied := *asset
	return &copied, nil
}
