// Package metrics exposes prometheus instrumentation for query execution.
// Collectors only observe; they never influence control flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vddb",
			Name:      "queries_total",
			Help:      "Queries executed, by operation and status.",
		}, []string{"op", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vddb",
			Name:      "query_duration_seconds",
			Help:      "Wall time per query, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// ObserveQuery records one finished query.
func (m *Metrics) ObserveQuery(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.queries.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}
