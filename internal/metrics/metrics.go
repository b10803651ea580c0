// Package metrics provides predictor and ingestion metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Metrics contains Prometheus metrics for predictor calls and batch ingestion.
type Metrics struct {
	registry *prometheus.Registry

	predictorCallsTotal *prometheus.CounterVec
	predictorDuration   *prometheus.HistogramVec
	batchRowsTotal      *prometheus.CounterVec
	batchRunsTotal      *prometheus.CounterVec
}

// New creates and registers metrics on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.predictorCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustlens_predictor_calls_total",
			Help: "Total number of predictor process invocations",
		},
		[]string{"command", "status"},
	)

	m.predictorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "trustlens_predictor_duration_seconds",
			Help: "Wall-clock time of predictor process invocations",
			// Model loading dominates: 50ms to ~100s.
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"command"},
	)

	m.batchRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustlens_batch_rows_total",
			Help: "CSV rows processed by batch ingestion",
		},
		[]string{"status"}, // success, error, skipped
	)

	m.batchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustlens_batch_runs_total",
			Help: "Batch ingestion runs",
		},
		[]string{"status"},
	)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.predictorCallsTotal.Describe(ch)
	m.predictorDuration.Describe(ch)
	m.batchRowsTotal.Describe(ch)
	m.batchRunsTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.predictorCallsTotal.Collect(ch)
	m.predictorDuration.Collect(ch)
	m.batchRowsTotal.Collect(ch)
	m.batchRunsTotal.Collect(ch)
}

// ObservePredictorCall records one predictor invocation. A nil receiver is a no-op.
func (m *Metrics) ObservePredictorCall(command string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.predictorCallsTotal.WithLabelValues(command, status).Inc()
	m.predictorDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveBatch records the row outcomes of one ingestion run.
func (m *Metrics) ObserveBatch(saved, errors, skipped int) {
	if m == nil {
		return
	}
	m.batchRowsTotal.WithLabelValues(StatusSuccess).Add(float64(saved))
	m.batchRowsTotal.WithLabelValues(StatusError).Add(float64(errors))
	m.batchRowsTotal.WithLabelValues(StatusSkipped).Add(float64(skipped))
	m.batchRunsTotal.WithLabelValues(StatusSuccess).Inc()
}

// ObserveBatchRejected records a run that failed before any row was processed.
func (m *Metrics) ObserveBatchRejected() {
	if m == nil {
		return
	}
	m.batchRunsTotal.WithLabelValues(StatusError).Inc()
}

// Registry returns the registry the metrics were registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
