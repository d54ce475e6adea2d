// Package ledger provides the mutual-exclusion guard that serializes public
// ledger operations. Callers are mutually distrusting and the payment-token
// collaborator may call back into the engine mid-operation, so any entry
// point that touches cross-holder invariants (total outstanding shares,
// escrow totals) runs under the engine-wide lock; single-principal writes use
// the per-principal lock.
package ledger

import (
	"sync"

	"tessera/pkg/domain"
)

// Guard serializes ledger operations. The locks are not reentrant: the lock
// is held across collaborator calls, so a collaborator that synchronously
// calls back into a guarded entry point on the same goroutine will deadlock
// rather than interleave with the settlement steps.
type Guard struct {
	engine sync.Mutex

	mu         sync.Mutex
	principals map[domain.Address]*sync.Mutex
}

func NewGuard() *Guard {
	return &Guard{principals: make(map[domain.Address]*sync.Mutex)}
}

// Do runs fn under the engine-wide lock.
func (g *Guard) Do(fn func() error) error {
	g.engine.Lock()
	defer g.engine.Unlock()
	return fn()
}

// DoPrincipal runs fn under the lock for one principal. Operations scoped to
// a single address (compliance record writes) serialize against each other
// without stalling the whole engine.
func (g *Guard) DoPrincipal(addr domain.Address, fn func() error) error {
	lock := g.principalLock(addr)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (g *Guard) principalLock(addr domain.Address) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.principals[addr]
	if !ok {
		lock = &sync.Mutex{}
		g.principals[addr] = lock
	}
	return lock
}
