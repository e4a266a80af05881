// Package metrics provides Prometheus metrics for the pick'em service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the registered collectors
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	pickSubmissions      *prometheus.CounterVec
	confidenceDemotions  prometheus.Counter
	recalculationLatency prometheus.Histogram
	scoreFailures        prometheus.Counter
	finalizedWeeks       prometheus.Counter

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for latency metrics
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithEnabled enables or disables recording
func WithEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

var globalManager = NewManager() //nolint:gochecknoglobals // process-wide metrics singleton

// NewManager creates a manager with its own registry
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pickem",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Configure replaces the global manager
func Configure(opts ...Option) {
	globalManager = NewManager(opts...)
}

// Global returns the process-wide manager
func Global() *Manager {
	return globalManager
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.pickSubmissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "picks",
		Name:      "submissions_total",
		Help:      "Pick submissions by outcome",
	}, []string{"outcome"})

	m.confidenceDemotions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "picks",
		Name:      "confidence_demotions_total",
		Help:      "Picks demoted to confidence 0 because another pick claimed their value",
	})

	m.recalculationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "scores",
		Name:      "recalculation_duration_milliseconds",
		Help:      "Duration of weekly score recalculations",
		Buckets:   m.histogramBuckets,
	})

	m.scoreFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scores",
		Name:      "user_failures_total",
		Help:      "Per-user score upserts that failed during recalculation",
	})

	m.finalizedWeeks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scores",
		Name:      "finalization_triggers_total",
		Help:      "Weekly recalculations triggered by games becoming final",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method", "status_code"})
}

// Handler exposes the manager's registry
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, used by tests
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// RecordPickSubmission counts a pick submission outcome
func RecordPickSubmission(outcome string) {
	if globalManager.enabled {
		globalManager.pickSubmissions.WithLabelValues(outcome).Inc()
	}
}

// RecordConfidenceDemotion counts a demoted pick
func RecordConfidenceDemotion() {
	if globalManager.enabled {
		globalManager.confidenceDemotions.Inc()
	}
}

// ObserveRecalculation records the duration of one weekly recompute
func ObserveRecalculation(d time.Duration) {
	if globalManager.enabled {
		globalManager.recalculationLatency.Observe(float64(d.Milliseconds()))
	}
}

// RecordScoreFailure counts a failed per-user score upsert
func RecordScoreFailure() {
	if globalManager.enabled {
		globalManager.scoreFailures.Inc()
	}
}

// RecordFinalizationTrigger counts a recompute triggered by finalized games
func RecordFinalizationTrigger() {
	if globalManager.enabled {
		globalManager.finalizedWeeks.Inc()
	}
}

// RecordHTTPRequest records one served request
func RecordHTTPRequest(route, method, statusCode string, d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(float64(d.Milliseconds()))
}
