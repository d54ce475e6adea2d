package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the yield ledger.
type Metrics struct {
	Distributions    prometheus.Counter
	Claims           prometheus.Counter
	ClaimsReversed   prometheus.Counter
	PaidOutCents     prometheus.Counter
	DistributedCents prometheus.Counter
}

// New creates and registers all yield metrics.
func New() *Metrics {
	return &Metrics{
		Distributions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_yield_distributions_total",
			Help: "Total number of declared distributions",
		}),
		Claims: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_yield_claims_total",
			Help: "Total number of settled claims",
		}),
		ClaimsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_yield_claims_reversed_total",
			Help: "Claims rolled back after a failed payout",
		}),
		PaidOutCents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_yield_paid_cents_total",
			Help: "Yield paid out in cents",
		}),
		DistributedCents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_yield_distributed_cents_total",
			Help: "Yield declared in cents",
		}),
	}
}
