// Package metrics records client-side Prometheus metrics for smashtrack.
//
// The CLI is short-lived, so nothing is served over HTTP; when a metrics path
// is configured the registry is written out in the text exposition format on
// exit, ready for a node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns every collector and the registry they live in.
// All methods are safe on a nil *Manager.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	sessionInvalidations prometheus.Counter
	analysisAttempts     *prometheus.CounterVec
	analysisFallbacks    prometheus.Counter
	reportWrites         prometheus.Counter
	uploadBytes          prometheus.Counter
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom latency buckets (seconds).
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// NewManager creates a Manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "smashtrack",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Outbound requests by endpoint and outcome kind.",
	}, []string{"endpoint", "outcome"})
	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Outbound request latency.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})
	m.sessionInvalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gateway",
		Name:      "session_invalidations_total",
		Help:      "Credentials cleared after a 401 response.",
	})
	m.analysisAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "analysis",
		Name:      "attempts_total",
		Help:      "Analysis submissions by mode and outcome.",
	}, []string{"mode", "outcome"})
	m.analysisFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "analysis",
		Name:      "fallbacks_total",
		Help:      "Degraded retries triggered by provider overload.",
	})
	m.reportWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "analysis",
		Name:      "report_writes_total",
		Help:      "Canonical reports written to the report store.",
	})
	m.uploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upload",
		Name:      "bytes_total",
		Help:      "Media bytes sent to the backend.",
	})

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.sessionInvalidations,
		m.analysisAttempts,
		m.analysisFallbacks,
		m.reportWrites,
		m.uploadBytes,
	)
	return m
}

// Registry exposes the underlying registry (tests, custom exporters).
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one outbound call.
func (m *Manager) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// SessionInvalidated counts a 401-driven credential clear.
func (m *Manager) SessionInvalidated() {
	if m == nil {
		return
	}
	m.sessionInvalidations.Inc()
}

// AnalysisAttempt records a submission outcome for a mode.
func (m *Manager) AnalysisAttempt(mode, outcome string) {
	if m == nil {
		return
	}
	m.analysisAttempts.WithLabelValues(mode, outcome).Inc()
}

// AnalysisFallback counts a switch to the degraded configuration.
func (m *Manager) AnalysisFallback() {
	if m == nil {
		return
	}
	m.analysisFallbacks.Inc()
}

// ReportWritten counts a report store write.
func (m *Manager) ReportWritten() {
	if m == nil {
		return
	}
	m.reportWrites.Inc()
}

// UploadedBytes adds n to the upload byte counter.
func (m *Manager) UploadedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

// WriteTextfile writes the registry to path in the Prometheus text format.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
