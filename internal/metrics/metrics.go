// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for SeatingOperations.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics bundles the collectors on their own registry so tests can create
// independent instances.
type Metrics struct {
	Registry          *prometheus.Registry
	SeatingOperations *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SeatingOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restaurant",
			Name:      "seating_operations_total",
			Help:      "Seat, finish and status change attempts by outcome.",
		}, []string{"operation", "outcome"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "restaurant",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.Registry.MustRegister(
		m.SeatingOperations,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSeating counts one seating operation. A nil receiver is a no-op.
func (m *Metrics) ObserveSeating(operation, outcome string) {
	if m == nil {
		return
	}
	m.SeatingOperations.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
