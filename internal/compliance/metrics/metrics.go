package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance gate.
type Metrics struct {
	ChecksAllowed prometheus.Counter
	ChecksDenied  *prometheus.CounterVec
	RecordUpserts prometheus.Counter
}

// New creates and registers all compliance metrics.
func New() *Metrics {
	return &Metrics{
		ChecksAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_compliance_checks_allowed_total",
			Help: "Total number of transfer checks that passed",
		}),
		ChecksDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_compliance_checks_denied_total",
			Help: "Total number of transfer checks denied, by reason",
		}, []string{"reason"}),
		RecordUpserts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_compliance_record_upserts_total",
			Help: "Total number of compliance record writes",
		}),
	}
}
