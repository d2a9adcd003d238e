package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
)

// PathGenerator produces independent reasoning paths for a task. It stands
// in for whatever model or service actually does the reasoning.
//
// A path that failed to generate is reported in-band with the answer
// domain.ErrorAnswer and zero confidence; a returned error means the
// generator itself is unusable or the context was cancelled.
type PathGenerator interface {
	Generate(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error)
}

// Metric names understood by MetricsCollector implementations.
const (
	MetricUnitLatency         = "unit_execution"
	MetricAggregations        = "aggregations_total"
	MetricConsensusConfidence = "consensus_confidence"
	MetricConsistencyScore    = "consistency_score"
	MetricTasks               = "tasks_total"
	MetricBatchAccuracy       = "batch_accuracy"
	MetricGeneratedPaths      = "generated_paths_total"
	MetricGeneratorLatency    = "generator_request"
	MetricGeneratorRequests   = "generator_requests_total"
	MetricCircuitState        = "generator_circuit_state"
)

// MetricsCollector records operational metrics. Labels carry context such
// as the unit ID or the aggregation method; collectors ignore labels they do
// not know.
type MetricsCollector interface {
	// RecordLatency records how long an operation took.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets a gauge.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram observes a value in a distribution.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// NopMetrics discards every metric.
type NopMetrics struct{}

func (NopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (NopMetrics) RecordCounter(string, float64, map[string]string)      {}
func (NopMetrics) RecordGauge(string, float64, map[string]string)        {}
func (NopMetrics) RecordHistogram(string, float64, map[string]string)    {}

var _ MetricsCollector = NopMetrics{}
