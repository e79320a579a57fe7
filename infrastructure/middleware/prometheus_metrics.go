// Package middleware provides cross-cutting observability for the
// refinement engine: Prometheus metric export and OpenTelemetry span
// annotation of loop progress.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-refine/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector with Prometheus,
// exposing iteration verdicts, run outcomes, score distributions, and
// run latencies for the refinement engine.
type PrometheusMetrics struct {
	iterationsTotal *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	eventCounter    *prometheus.CounterVec
	overallScores   prometheus.Histogram
	runDuration     *prometheus.HistogramVec
	stateGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the refinement metric families with
// reg and returns the collector. Pass prometheus.DefaultRegisterer for
// the global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		iterationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refine_iterations_total",
				Help: "Total refinement iterations recorded, by verdict.",
			},
			[]string{"verdict"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refine_runs_total",
				Help: "Total refinement runs completed, by terminal status.",
			},
			[]string{"status"},
		),
		eventCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refine_events_total",
				Help: "Engine events such as degradations and correction failures.",
			},
			[]string{"event"},
		),
		overallScores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "refine_overall_score",
				Help:    "Distribution of overall quality scores across iterations.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refine_run_duration_seconds",
				Help:    "Wall-clock duration of refinement runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "refine_state",
				Help: "Current engine state values.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	pm.runDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements ports.MetricsCollector, routing the engine's
// named counters to their metric families.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "refine_iterations_total":
		pm.iterationsTotal.WithLabelValues(labels["verdict"]).Add(value)
	case "refine_runs_total":
		pm.runsTotal.WithLabelValues(labels["status"]).Add(value)
	default:
		pm.eventCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.stateGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements ports.MetricsCollector. Overall scores get
// their dedicated family; anything else lands in the duration family.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, _ map[string]string) {
	if metric == "refine_overall_score" {
		pm.overallScores.Observe(value)
		return
	}
	pm.runDuration.WithLabelValues(metric).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements the port.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
