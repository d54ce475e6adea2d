package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the asset registry.
type Metrics struct {
	AssetsRegistered prometheus.Counter
	AssetsTokenized  prometheus.Counter
	Revaluations     prometheus.Counter
}

// New creates and registers all registry metrics.
func New() *Metrics {
	return &Metrics{
		AssetsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_assets_registered_total",
			Help: "Total number of assets registered",
		}),
		AssetsTokenized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_assets_tokenized_total",
			Help: "Total number of assets tokenized",
		}),
		Revaluations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_asset_revaluations_total",
			Help: "Total number of valuation updates",
		}),
	}
}
