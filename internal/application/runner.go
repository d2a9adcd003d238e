package application

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/logging"
	"github.com/ahrav/go-concord/internal/ports"
	"github.com/ahrav/go-concord/internal/tracking"
)

// Task outcome labels recorded under ports.MetricTasks.
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeUngraded  = "ungraded"
	OutcomeFailed    = "failed"
)

// MetricTaskLatency is the latency operation recorded per task.
const MetricTaskLatency = "task_execution"

// BatchReport is the outcome of running a batch of tasks.
type BatchReport struct {
	Version        string              `json:"prompt_version"`
	Results        []domain.TaskResult `json:"results"`
	Metrics        tracking.Metrics    `json:"metrics"`
	ShouldOptimize bool                `json:"should_optimize"`
	Reason         string              `json:"reason"`
}

// Runner executes a graph once per task and summarizes the batch.
type Runner struct {
	graph       *Graph
	tracker     *tracking.Tracker
	logger      *zap.Logger
	metrics     ports.MetricsCollector
	concurrency int
	threshold   float64
	version     string
	now         func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logging.OrNop(l) }
}

// WithRunnerMetrics sets the metrics collector.
func WithRunnerMetrics(m ports.MetricsCollector) RunnerOption {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithConcurrency bounds how many tasks run at once. Values below 1 are
// ignored.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithTracker records every batch in t. By default each Runner has its own
// tracker.
func WithTracker(t *tracking.Tracker) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracker = t
		}
	}
}

// WithThreshold sets the accuracy and consistency floor used for the
// optimization decision.
func WithThreshold(threshold float64) RunnerOption {
	return func(r *Runner) { r.threshold = threshold }
}

// WithVersion labels tracked batches, typically with the prompt version.
func WithVersion(version string) RunnerOption {
	return func(r *Runner) { r.version = version }
}

// NewRunner creates a runner for graph.
func NewRunner(graph *Graph, opts ...RunnerOption) (*Runner, error) {
	if graph == nil {
		return nil, errors.New("graph cannot be nil")
	}

	r := &Runner{
		graph:       graph,
		tracker:     tracking.NewTracker(),
		logger:      zap.NewNop(),
		metrics:     ports.NopMetrics{},
		concurrency: runtime.GOMAXPROCS(0),
		threshold:   tracking.DefaultThreshold,
		version:     "v1",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Tracker returns the tracker the runner records batches in.
func (r *Runner) Tracker() *tracking.Tracker { return r.tracker }

// Run executes every task and returns the report. A task that fails is
// logged and recorded in its result; only context cancellation stops the
// batch, in which case the partial report is returned with the context's
// error.
func (r *Runner) Run(ctx context.Context, tasks []domain.Task) (BatchReport, error) {
	results := make([]domain.TaskResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = r.runTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		r.logger.Warn("batch cancelled", zap.Error(err), zap.Int("tasks", len(tasks)))
		return BatchReport{Version: r.version, Results: results}, fmt.Errorf("batch cancelled: %w", err)
	}

	rec := r.tracker.Track(r.version, results)
	optimize, reason := tracking.ShouldOptimize(rec.Metrics, r.threshold)

	r.metrics.RecordGauge(ports.MetricBatchAccuracy, rec.Metrics.Accuracy, map[string]string{"graph": r.graph.Name()})
	r.logger.Info("batch complete",
		zap.String("graph", r.graph.Name()),
		zap.String("version", r.version),
		zap.Int("tasks", rec.Metrics.TotalTasks),
		zap.Float64("accuracy", rec.Metrics.Accuracy),
		zap.Float64("consistency", rec.Metrics.Consistency),
		zap.Bool("should_optimize", optimize),
	)

	return BatchReport{
		Version:        r.version,
		Results:        results,
		Metrics:        rec.Metrics,
		ShouldOptimize: optimize,
		Reason:         reason,
	}, nil
}

// runTask executes the graph for one task and converts the final state.
func (r *Runner) runTask(ctx context.Context, task domain.Task) domain.TaskResult {
	start := r.now()
	executionID := uuid.New().String()
	logger := r.logger.With(zap.String("task_id", task.ID), zap.String("execution_id", executionID))

	state := domain.With(domain.NewState(), domain.KeyTask, task).
		WithExecutionContext(domain.ExecutionContext{GraphID: r.graph.Name(), ExecutionID: executionID})

	final, err := r.graph.Execute(ctx, state)
	result := resultFromState(task, final)
	result.Timestamp = start

	outcome := outcomeOf(result)
	if err != nil {
		result.Error = err.Error()
		outcome = OutcomeFailed
		logger.Error("task failed", zap.Error(err))
	} else {
		logger.Debug("task complete", zap.String("outcome", outcome))
	}

	r.metrics.RecordLatency(MetricTaskLatency, time.Since(start), map[string]string{"unit_type": "graph", "unit": r.graph.Name()})
	r.metrics.RecordCounter(ports.MetricTasks, 1, map[string]string{"outcome": outcome})
	return result
}

// resultFromState copies whatever the graph produced into a TaskResult.
// Keys the graph never wrote stay nil.
func resultFromState(task domain.Task, state domain.State) domain.TaskResult {
	result := domain.TaskResult{
		TaskID:         task.ID,
		Problem:        task.Problem,
		ExpectedAnswer: task.ExpectedAnswer,
	}
	if paths, ok := domain.Get(state, domain.KeyPaths); ok {
		result.Paths = paths
	}
	if agg, ok := domain.Get(state, domain.KeyAggregation); ok {
		result.Aggregation = &agg
	}
	if report, ok := domain.Get(state, domain.KeyConsistency); ok {
		result.Consistency = &report
	}
	if quality, ok := domain.Get(state, domain.KeyTreeQuality); ok {
		result.TreeQuality = &quality
	}
	if grade, ok := domain.Get(state, domain.KeyGrade); ok {
		result.Grade = &grade
	}
	return result
}

func outcomeOf(result domain.TaskResult) string {
	switch {
	case result.Grade == nil:
		return OutcomeUngraded
	case result.Grade.Correct:
		return OutcomeCorrect
	default:
		return OutcomeIncorrect
	}
}
