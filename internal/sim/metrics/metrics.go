// Package metrics holds the Prometheus instruments for the SIM domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions       *prometheus.CounterVec
	AllocationRetries prometheus.Counter
	ImportRows        *prometheus.CounterVec
}

// New registers the SIM metrics against reg. Pass a fresh registry in tests
// to avoid duplicate registration; nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_erp_transitions_total",
			Help: "SIM lifecycle transitions by operation and outcome",
		}, []string{"operation", "outcome"}),
		AllocationRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_erp_identifier_allocation_retries_total",
			Help: "Identifier candidates regenerated after a uniqueness collision",
		}),
		ImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_erp_import_rows_total",
			Help: "CSV import rows by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncTransition(operation, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncAllocationRetry() {
	if m == nil {
		return
	}
	m.AllocationRetries.Inc()
}

func (m *Metrics) IncImportRow(result string) {
	if m == nil {
		return
	}
	m.ImportRows.WithLabelValues(result).Inc()
}
