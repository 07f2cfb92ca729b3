// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the campaign pipeline. All
// methods are safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	DispatchTasksTotal     *prometheus.CounterVec
	OutcomesTotal          *prometheus.CounterVec
	MaterializationsTotal  *prometheus.CounterVec
	AudienceSize           prometheus.Histogram
	ReconciledTotal        prometheus.Counter
	APIRequestsTotal       *prometheus.CounterVec
	APIRequestDurationSecs *prometheus.HistogramVec

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DispatchTasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_dispatch_tasks_total",
				Help: "Delivery tasks handed to the outbound queue, by result",
			},
			[]string{"result"},
		),
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_outcomes_total",
				Help: "Delivery outcomes recorded, by status",
			},
			[]string{"status"},
		),
		MaterializationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audience_materializations_total",
				Help: "Audience materializations, by result",
			},
			[]string{"result"},
		),
		AudienceSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "audience_size",
				Help:    "Number of customers in each persisted audience group",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		ReconciledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "campaign_reconciled_tasks_total",
				Help: "Stale PENDING deliveries re-enqueued by the reconciler",
			},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSecs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campaign_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.DispatchTasksTotal,
		m.OutcomesTotal,
		m.MaterializationsTotal,
		m.AudienceSize,
		m.ReconciledTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSecs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) DispatchQueued() {
	if m != nil {
		m.DispatchTasksTotal.WithLabelValues("queued").Inc()
	}
}

func (m *Metrics) DispatchFailed() {
	if m != nil {
		m.DispatchTasksTotal.WithLabelValues("failed").Inc()
	}
}

func (m *Metrics) Outcome(status string) {
	if m != nil {
		m.OutcomesTotal.WithLabelValues(status).Inc()
	}
}

// Materialized records a persisted group of the given size.
func (m *Metrics) Materialized(size int) {
	if m != nil {
		m.MaterializationsTotal.WithLabelValues("persisted").Inc()
		m.AudienceSize.Observe(float64(size))
	}
}

func (m *Metrics) MaterializedEmpty() {
	if m != nil {
		m.MaterializationsTotal.WithLabelValues("empty").Inc()
	}
}

func (m *Metrics) Reconciled(n int) {
	if m != nil {
		m.ReconciledTotal.Add(float64(n))
	}
}
