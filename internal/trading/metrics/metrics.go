package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the trading engine.
type Metrics struct {
	Purchases      prometheus.Counter
	Sales          prometheus.Counter
	VolumeCents    *prometheus.CounterVec
	RejectedTrades *prometheus.CounterVec
}

// New creates and registers all trading metrics.
func New() *Metrics {
	return &Metrics{
		Purchases: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_trades_purchases_total",
			Help: "Total number of settled purchases",
		}),
		Sales: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_trades_sales_total",
			Help: "Total number of settled sales",
		}),
		VolumeCents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_trades_volume_cents_total",
			Help: "Settled trade volume in cents, by side",
		}, []string{"side"}),
		RejectedTrades: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_trades_rejected_total",
			Help: "Trades rejected before settlement, by reason code",
		}, []string{"code"}),
	}
}
