// Package middleware provides cross-cutting concerns for the engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-concord/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

const namespace = "concord"

// ratioBuckets covers values in [0, 1] such as confidences and scores.
var ratioBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// PrometheusMetrics implements ports.MetricsCollector on Prometheus.
// Well-known metric names from the ports package map to dedicated vectors;
// anything else falls back to generic operation counters, gauges and
// histograms labelled by metric name.
type PrometheusMetrics struct {
	unitLatency         *prometheus.HistogramVec
	aggregations        *prometheus.CounterVec
	consensusConfidence *prometheus.HistogramVec
	consistencyScore    *prometheus.HistogramVec
	tasks               *prometheus.CounterVec
	generatedPaths      *prometheus.CounterVec
	generatorRequests   *prometheus.CounterVec
	operationCounter    *prometheus.CounterVec
	systemGauges        *prometheus.GaugeVec
	valueHistograms     *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		unitLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "unit_execution_duration_seconds",
				Help:      "Execution time of graph units.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "unit_type", "unit"},
		),
		aggregations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregations_total",
				Help:      "Consensus aggregations by winning method.",
			},
			[]string{"method", "unit"},
		),
		consensusConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "consensus_confidence",
				Help:      "Confidence of non-sentinel consensus answers.",
				Buckets:   ratioBuckets,
			},
			[]string{"method"},
		),
		consistencyScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "consistency_score",
				Help:      "Consistency score of evaluated path sets.",
				Buckets:   ratioBuckets,
			},
			[]string{"unit"},
		),
		tasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Tasks run by outcome.",
			},
			[]string{"outcome"},
		),
		generatedPaths: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generated_paths_total",
				Help:      "Reasoning paths produced, by status.",
			},
			[]string{"status", "unit"},
		),
		generatorRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generator_requests_total",
				Help:      "Path generator requests by status.",
			},
			[]string{"status", "generator"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Other counted operations.",
			},
			[]string{"operation", "unit"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_state",
				Help:      "Current values such as the last batch accuracy.",
			},
			[]string{"metric"},
		),
		valueHistograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "values",
				Help:      "Distributions of other observed values.",
				Buckets:   ratioBuckets,
			},
			[]string{"metric", "unit"},
		),
	}
}

// label returns labels[key], or "unknown" when it is missing.
func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency records unit execution time in seconds.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.unitLatency.WithLabelValues(operation, label(labels, "unit_type"), label(labels, "unit")).
		Observe(duration.Seconds())
}

// RecordCounter increments the counter named by metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricAggregations:
		pm.aggregations.WithLabelValues(label(labels, "method"), label(labels, "unit")).Add(value)
	case ports.MetricTasks:
		pm.tasks.WithLabelValues(label(labels, "outcome")).Add(value)
	case ports.MetricGeneratedPaths:
		pm.generatedPaths.WithLabelValues(label(labels, "status"), label(labels, "unit")).Add(value)
	case ports.MetricGeneratorRequests:
		pm.generatorRequests.WithLabelValues(label(labels, "status"), label(labels, "generator")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, label(labels, "unit")).Add(value)
	}
}

// RecordGauge sets the gauge named by metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram observes value in the histogram named by metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricConsensusConfidence:
		pm.consensusConfidence.WithLabelValues(label(labels, "method")).Observe(value)
	case ports.MetricConsistencyScore:
		pm.consistencyScore.WithLabelValues(label(labels, "unit")).Observe(value)
	default:
		pm.valueHistograms.WithLabelValues(metric, label(labels, "unit")).Observe(value)
	}
}
