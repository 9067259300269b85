// Package metrics exposes Prometheus collectors for the evaluation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hiring_evaluator"

// Recorder is the narrow surface the pipeline reports through.
type Recorder interface {
	ObserveRequest(state string, duration time.Duration)
	ObserveCandidate(status, errorKind string)
	ObserveStage(stage string, duration time.Duration)
	ObserveBackendAttempt(provider, schema, outcome string)
}

// Manager owns a private registry so tests can create as many as they need.
type Manager struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	candidates      *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	backendAttempts *prometheus.CounterVec
}

func New() *Manager {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auto := promauto.With(registry)

	return &Manager{
		registry: registry,
		requests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Analyze requests by terminal state.",
		}, []string{"state"}),
		requestDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Wall-clock duration of analyze requests.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		candidates: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidates processed by status and error kind.",
		}, []string{"status", "error_kind"}),
		stageDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		backendAttempts: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_attempts_total",
			Help:      "Language-model calls by provider, schema and outcome.",
		}, []string{"provider", "schema", "outcome"}),
	}
}

func (m *Manager) ObserveRequest(state string, duration time.Duration) {
	m.requests.WithLabelValues(state).Inc()
	m.requestDuration.Observe(duration.Seconds())
}

func (m *Manager) ObserveCandidate(status, errorKind string) {
	m.candidates.WithLabelValues(status, errorKind).Inc()
}

func (m *Manager) ObserveStage(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *Manager) ObserveBackendAttempt(provider, schema, outcome string) {
	m.backendAttempts.WithLabelValues(provider, schema, outcome).Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ObserveRequest(string, time.Duration)         {}
func (Nop) ObserveCandidate(string, string)              {}
func (Nop) ObserveStage(string, time.Duration)           {}
func (Nop) ObserveBackendAttempt(string, string, string) {}
