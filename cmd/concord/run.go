package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-concord/infrastructure/generator"
	"github.com/ahrav/go-concord/infrastructure/middleware"
	"github.com/ahrav/go-concord/internal/application"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/telemetry"
	"github.com/ahrav/go-concord/internal/tracking"
)

const generatorName = "fixtures"

type runOptions struct {
	graphPath       string
	tasksPath       string
	fixturesPath    string
	concurrency     int
	version         string
	threshold       float64
	timeout         time.Duration
	retries         int
	rateLimit       float64
	burst           int
	circuitFailures int
	circuitCooldown time.Duration
	dumpMetrics     bool
	trace           bool
}

func newRunCmd(c *cli) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a task batch through an execution graph",
		Long: `Loads an execution graph, a task list and fixture reasoning paths, runs
every task through the graph and prints the batch report: per-task results,
batch metrics and whether the prompt should be optimized.

The fixture generator is wrapped with timeout, rate limiting, retry, circuit
breaking, tracing and metrics middleware.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, c.logger, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.graphPath, "graph", "", "execution graph YAML file")
	f.StringVar(&opts.tasksPath, "tasks", "", "task list YAML or JSON file")
	f.StringVar(&opts.fixturesPath, "fixtures", "", "fixture paths YAML file")
	f.IntVar(&opts.concurrency, "concurrency", 0, "tasks run at once (0 uses GOMAXPROCS)")
	f.StringVar(&opts.version, "version", "v1", "prompt version recorded with the batch")
	f.Float64Var(&opts.threshold, "threshold", tracking.DefaultThreshold, "accuracy and consistency floor below which optimization is advised")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request generator timeout (0 disables)")
	f.IntVar(&opts.retries, "retries", 2, "generator retries after the first attempt")
	f.Float64Var(&opts.rateLimit, "rate-limit", 0, "generator requests per second (0 disables)")
	f.IntVar(&opts.burst, "burst", 1, "generator rate limit burst")
	f.IntVar(&opts.circuitFailures, "circuit-failures", 5, "consecutive generator failures that open the circuit")
	f.DurationVar(&opts.circuitCooldown, "circuit-cooldown", 30*time.Second, "time the circuit stays open")
	f.BoolVar(&opts.dumpMetrics, "metrics", false, "write collected metrics to stderr in Prometheus text format")
	f.BoolVar(&opts.trace, "trace", false, "write OpenTelemetry spans to stderr as JSON")

	for _, name := range []string{"graph", "tasks", "fixtures"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runBatch(cmd *cobra.Command, logger *zap.Logger, opts runOptions) error {
	ctx := cmd.Context()

	if opts.trace {
		shutdown, err := telemetry.InitTracer(cmd.ErrOrStderr(), opts.version)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to flush spans", zap.Error(err))
			}
		}()
	}

	tasks, err := loadTasks(opts.tasksPath)
	if err != nil {
		return err
	}
	fixtures, err := generator.LoadFixturesFile(opts.fixturesPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)

	mws := []generator.Middleware{
		generator.MetricsMiddleware(generatorName, metrics),
		generator.TracingMiddleware(generatorName),
		generator.CircuitBreakerMiddleware(opts.circuitFailures, opts.circuitCooldown, metrics),
		generator.RetryMiddleware(opts.retries, 100*time.Millisecond, 5*time.Second),
	}
	if opts.rateLimit > 0 {
		mws = append(mws, generator.RateLimitMiddleware(rate.Limit(opts.rateLimit), opts.burst))
	}
	if opts.timeout > 0 {
		mws = append(mws, generator.TimeoutMiddleware(opts.timeout))
	}
	gen := generator.Chain(generator.NewFixtureGenerator(fixtures, generator.WithLogger(logger)), mws...)

	loader, err := application.NewGraphLoader(
		application.NewDefaultUnitRegistry(gen, metrics),
		application.WithLoaderLogger(logger),
	)
	if err != nil {
		return err
	}
	graph, err := loader.LoadFromFile(ctx, opts.graphPath)
	if err != nil {
		return err
	}

	runner, err := application.NewRunner(graph,
		application.WithRunnerLogger(logger),
		application.WithRunnerMetrics(metrics),
		application.WithConcurrency(opts.concurrency),
		application.WithThreshold(opts.threshold),
		application.WithVersion(opts.version),
	)
	if err != nil {
		return err
	}

	report, runErr := runner.Run(ctx, tasks)
	if opts.dumpMetrics {
		if err := writeMetrics(cmd.ErrOrStderr(), reg); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	return writeJSON(cmd.OutOrStdout(), report)
}

func loadTasks(path string) ([]domain.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	tasks, err := decodeList[domain.Task](data, "tasks")
	if err != nil {
		return nil, fmt.Errorf("tasks %s: %w", path, err)
	}
	if len(tasks) == 0 {
		return nil, errors.New("task list is empty")
	}
	return tasks, nil
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
