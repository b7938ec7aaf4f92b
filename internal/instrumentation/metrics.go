package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcomes used as the "outcome" label.
const (
	OutcomeOK               = "ok"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeInvalidInput     = "invalid_input"
	OutcomeNotFound         = "not_found"
	OutcomeTimeout          = "timeout"
	OutcomeError            = "error"
)

// Metrics contains all Prometheus metrics for the slippage service.
type Metrics struct {
	AnalysesTotal       *prometheus.CounterVec
	AnalysisLatencyMs   prometheus.Histogram
	SamplesPerAnalysis  prometheus.Histogram
	AllocationFallbacks prometheus.Counter
	AnalysesInFlight    prometheus.Gauge

	JobsProcessed *prometheus.CounterVec
	ErrorsTotal   *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slippage_analyses_total",
			Help: "Total number of analyses by outcome",
		}, []string{"outcome"}),

		// Fitting and allocation dominate
		AnalysisLatencyMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "slippage_analysis_latency_ms",
			Help:    "Time to load, sample, fit and allocate one analysis in milliseconds",
			Buckets: []float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),

		SamplesPerAnalysis: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "slippage_samples_per_analysis",
			Help:    "Number of positive slippage samples fed to the model fit",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),

		AllocationFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "slippage_allocation_fallbacks_total",
			Help: "Allocations that fell back to the uniform split",
		}),

		AnalysesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "slippage_analyses_in_flight",
			Help: "Analyses currently running",
		}),

		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slippage_jobs_processed_total",
			Help: "Queued analysis jobs processed by terminal state",
		}, []string{"state"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slippage_errors_total",
			Help: "Total number of errors by component and type",
		}, []string{"component", "error_type"}),
	}
}

// RecordAnalysis records the outcome and latency of one analysis.
func (m *Metrics) RecordAnalysis(outcome string, latencyMs float64) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisLatencyMs.Observe(latencyMs)
}

// RecordSamples records the sample count fed to the fit.
func (m *Metrics) RecordSamples(n int) {
	m.SamplesPerAnalysis.Observe(float64(n))
}

// RecordFallback increments the allocation fallback counter.
func (m *Metrics) RecordFallback() {
	m.AllocationFallbacks.Inc()
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *Metrics) TrackInFlight() func() {
	m.AnalysesInFlight.Inc()
	return m.AnalysesInFlight.Dec
}

// RecordJob increments the processed job counter.
func (m *Metrics) RecordJob(state string) {
	m.JobsProcessed.WithLabelValues(state).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
