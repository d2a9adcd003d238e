package units

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*PathGeneratorUnit)(nil)

// PathGeneratorUnit asks a ports.PathGenerator for independent reasoning
// paths for the task in state and stores them under domain.KeyPaths.
//
// Failed paths come back in-band as "Error" paths and are stored as-is;
// only a generator-level error fails the unit.
type PathGeneratorUnit struct {
	name      string
	config    PathGeneratorConfig
	generator ports.PathGenerator
	metrics   ports.MetricsCollector
	tracer    trace.Tracer
}

// PathGeneratorConfig configures how many paths are requested per task.
type PathGeneratorConfig struct {
	// NumPaths is the number of independent paths to request.
	NumPaths int `yaml:"num_paths" json:"num_paths" validate:"min=1,max=1000"`
}

// DefaultPathGeneratorConfig requests three paths per task.
func DefaultPathGeneratorConfig() PathGeneratorConfig {
	return PathGeneratorConfig{NumPaths: 3}
}

// NewPathGeneratorUnit creates a PathGeneratorUnit. metrics may be nil.
func NewPathGeneratorUnit(
	name string,
	config PathGeneratorConfig,
	generator ports.PathGenerator,
	metrics ports.MetricsCollector,
) (*PathGeneratorUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &PathGeneratorUnit{
		name:      name,
		config:    config,
		generator: generator,
		metrics:   metricsOrNop(metrics),
		tracer:    otel.Tracer("path-generator-unit"),
	}, nil
}

// Name returns the unit's identifier.
func (u *PathGeneratorUnit) Name() string { return u.name }

// Execute reads domain.KeyTask and writes domain.KeyPaths.
func (u *PathGeneratorUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ctx, span := u.tracer.Start(ctx, "PathGeneratorUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypePathGenerator),
			attribute.String("unit.id", u.name),
			attribute.Int("config.num_paths", u.config.NumPaths),
		),
	)
	defer span.End()

	start := time.Now()
	defer observe(u.metrics, TypePathGenerator, u.name, start)

	task, ok := domain.Get(state, domain.KeyTask)
	if !ok {
		return state, fail(span, domain.MissingStateError(u.name, domain.KeyTask))
	}
	span.SetAttributes(attribute.String("task.id", task.ID))

	paths, err := u.generator.Generate(ctx, task, u.config.NumPaths)
	if err != nil {
		return state, fail(span, domain.NewUnitError(u.name, "generate paths", err))
	}

	failed := len(paths) - len(domain.ValidPaths(paths))
	u.metrics.RecordCounter(ports.MetricGeneratedPaths, float64(len(paths)-failed), map[string]string{
		"unit": u.name, "status": "ok",
	})
	if failed > 0 {
		u.metrics.RecordCounter(ports.MetricGeneratedPaths, float64(failed), map[string]string{
			"unit": u.name, "status": "error",
		})
	}

	span.SetAttributes(
		attribute.Int("paths.count", len(paths)),
		attribute.Int("paths.failed", failed),
	)

	return domain.With(state, domain.KeyPaths, paths), nil
}

// Validate checks the configuration and the injected generator.
func (u *PathGeneratorUnit) Validate() error {
	if u.generator == nil {
		return ErrNilGenerator
	}
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DecodePathGeneratorConfig builds a config from graph parameters on top of
// the defaults.
func DecodePathGeneratorConfig(params map[string]any) (PathGeneratorConfig, error) {
	cfg := DefaultPathGeneratorConfig()
	if err := decodeParams(params, &cfg); err != nil {
		return PathGeneratorConfig{}, err
	}
	return cfg, nil
}

// NewPathGeneratorFromConfig creates a PathGeneratorUnit from graph
// parameters.
func NewPathGeneratorFromConfig(
	id string,
	params map[string]any,
	generator ports.PathGenerator,
	metrics ports.MetricsCollector,
) (ports.Unit, error) {
	cfg, err := DecodePathGeneratorConfig(params)
	if err != nil {
		return nil, err
	}
	return NewPathGeneratorUnit(id, cfg, generator, metrics)
}
