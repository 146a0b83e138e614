package svc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the counters of the service on a private registry, so tests
// and multiple instances don't clash on the global one.
type metrics struct {
	registry *prometheus.Registry

	operations       *prometheus.CounterVec
	commitsRewritten prometheus.Counter
	refUpdates       *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitredate_operations_total",
			Help: "Completed redate operations by outcome.",
		}, []string{"outcome"}),
		commitsRewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitredate_commits_rewritten_total",
			Help: "Replacement commits written.",
		}),
		refUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitredate_ref_updates_total",
			Help: "Ref updates by final status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(m.operations, m.commitsRewritten, m.refUpdates)

	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) observe(rec *OperationRecord) {
	m.operations.WithLabelValues(rec.Outcome).Inc()
	m.commitsRewritten.Add(float64(rec.CommitsRewritten))

	for _, ref := range rec.Refs {
		m.refUpdates.WithLabelValues(ref.Status).Inc()
	}
}
