// Package oracle is the boundary to the external price-oracle collaborator.
// The engine trusts the returned rate without independent staleness
// verification; only a non-positive price is treated as unusable.
package oracle

import (
	"context"
	"sync"
	"time"

	"tessera/pkg/domain"
)

// PriceSource reports the payment token's USD price.
type PriceSource interface {
	// LatestPrice returns the price of one token unit in USD cents and the
	// time the oracle last refreshed it.
	LatestPrice(ctx context.Context) (domain.USD, time.Time, error)
}

// Static serves a fixed rate, updatable out of band. It backs dev
// deployments and tests; production wires the external oracle service.
type Static struct {
	mu        sync.RWMutex
	price     domain.USD
	updatedAt time.Time
}

func NewStatic(price domain.USD, updatedAt time.Time) *Static {
	return &Static{price: price, updatedAt: updatedAt}
}

func (s *Static) LatestPrice(_ context.Context) (domain.USD, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price, s.updatedAt, nil
}

// SetPrice replaces the served rate.
func (s *Static) SetPrice(price domain.USD, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = price
	s.updatedAt = updatedAt
}
