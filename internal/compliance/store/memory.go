package store

import (
	"context"
	"sync"

	"tessera/internal/compliance/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

// InMemory keeps compliance state in process. Used in tests and
// single-instance dev deployments.
type InMemory struct {
	mu        sync.RWMutex
	records   map[domain.Address]*models.Record
	blacklist map[domain.Address]*models.BlacklistFlag
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:   make(map[domain.Address]*models.Record),
		blacklist: make(map[domain.Address]*models.BlacklistFlag),
	}
}

// UpsertRecord overwrites the record for its address.
func (s *InMemory) UpsertRecord(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *record
	s.records[record.Address] = &stored
	return nil
}

// FindRecord returns the record for addr or sentinel.ErrNotFound.
func (s *InMemory) FindRecord(_ context.Context, addr domain.Address) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	detached := *record
	return &detached, nil
}

// ListRecords returns every compliance record, unordered.
func (s *InMemory) ListRecords(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*models.Record, 0, len(s.records))
	for _, record := range s.records {
		detached := *record
		records = append(records, &detached)
	}
	return records, nil
}

// SetFlag overwrites the blacklist flag for its address.
func (s *InMemory) SetFlag(_ context.Context, flag *models.BlacklistFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *flag
	s.blacklist[flag.Address] = &stored
	return nil
}

// FindFlag returns the blacklist flag for addr or sentinel.ErrNotFound. An
// absent flag means the address was never blacklisted.
func (s *InMemory) FindFlag(_ context.Context, addr domain.Address) (*models.BlacklistFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flag, ok := s.blacklist[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	detached := *flag
	return &detached, nil
}
