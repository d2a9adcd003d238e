package units

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-concord/internal/consensus"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*SelfConsistencyUnit)(nil)

// SelfConsistencyUnit aggregates the reasoning paths in state into a single
// consensus answer using consensus.SelfConsistency.
//
// Concurrency: the unit holds no mutable state and is safe for concurrent
// execution.
type SelfConsistencyUnit struct {
	name       string
	config     SelfConsistencyConfig
	aggregator *consensus.SelfConsistency
	metrics    ports.MetricsCollector
	tracer     trace.Tracer
}

// SelfConsistencyConfig selects which voting strategies run and in which
// order. Earlier strategies win confidence ties.
type SelfConsistencyConfig struct {
	// Methods lists the strategies to evaluate. Empty means all three in
	// the default order.
	Methods []string `yaml:"methods" json:"methods" validate:"omitempty,unique,dive,oneof=majority_vote confidence_weighted semantic_similarity"`
}

// DefaultSelfConsistencyConfig evaluates every strategy in the default order.
func DefaultSelfConsistencyConfig() SelfConsistencyConfig {
	return SelfConsistencyConfig{}
}

// NewSelfConsistencyUnit creates a SelfConsistencyUnit. metrics may be nil.
func NewSelfConsistencyUnit(
	name string,
	config SelfConsistencyConfig,
	metrics ports.MetricsCollector,
) (*SelfConsistencyUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	strategies := make([]consensus.Strategy, 0, len(config.Methods))
	for _, m := range config.Methods {
		s, ok := consensus.StrategyFor(domain.Method(m))
		if !ok {
			return nil, fmt.Errorf("unknown aggregation method %q", m)
		}
		strategies = append(strategies, s)
	}

	return &SelfConsistencyUnit{
		name:       name,
		config:     config,
		aggregator: consensus.NewSelfConsistency(consensus.WithStrategies(strategies...)),
		metrics:    metricsOrNop(metrics),
		tracer:     otel.Tracer("self-consistency-unit"),
	}, nil
}

// Name returns the unit's identifier.
func (u *SelfConsistencyUnit) Name() string { return u.name }

// Execute reads domain.KeyPaths and writes domain.KeyAggregation. Empty or
// all-failed path sets produce the sentinel results rather than an error.
func (u *SelfConsistencyUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "SelfConsistencyUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeSelfConsistency),
			attribute.String("unit.id", u.name),
		),
	)
	defer span.End()

	start := time.Now()
	defer observe(u.metrics, TypeSelfConsistency, u.name, start)

	paths, ok := domain.Get(state, domain.KeyPaths)
	if !ok {
		return state, fail(span, domain.MissingStateError(u.name, domain.KeyPaths))
	}
	if err := checkPaths(paths); err != nil {
		return state, fail(span, domain.NewUnitError(u.name, "check paths", err))
	}

	result := u.aggregator.Aggregate(paths)

	labels := map[string]string{"unit": u.name, "method": result.Method.String()}
	u.metrics.RecordCounter(ports.MetricAggregations, 1, labels)
	if !result.IsSentinel() {
		u.metrics.RecordHistogram(ports.MetricConsensusConfidence, result.Confidence, labels)
	}

	span.SetAttributes(
		attribute.String("consensus.method", result.Method.String()),
		attribute.Float64("consensus.confidence", result.Confidence),
		attribute.Int("consensus.path_count", result.PathCount),
	)

	return domain.With(state, domain.KeyAggregation, result), nil
}

// Validate checks the configuration.
func (u *SelfConsistencyUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DecodeSelfConsistencyConfig builds a config from graph parameters.
func DecodeSelfConsistencyConfig(params map[string]any) (SelfConsistencyConfig, error) {
	cfg := DefaultSelfConsistencyConfig()
	if err := decodeParams(params, &cfg); err != nil {
		return SelfConsistencyConfig{}, err
	}
	return cfg, nil
}

// NewSelfConsistencyFromConfig creates a SelfConsistencyUnit from graph
// parameters.
func NewSelfConsistencyFromConfig(id string, params map[string]any, metrics ports.MetricsCollector) (ports.Unit, error) {
	cfg, err := DecodeSelfConsistencyConfig(params)
	if err != nil {
		return nil, err
	}
	return NewSelfConsistencyUnit(id, cfg, metrics)
}

// checkPaths enforces the input limits shared by the path-reading units.
func checkPaths(paths []domain.ReasoningPath) error {
	if len(paths) > MaxPaths {
		return fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManyPaths, len(paths), MaxPaths)
	}
	for _, p := range paths {
		if len(p.Answer) > MaxStringLength {
			return fmt.Errorf("%w: path %d has %d bytes, limit is %d",
				ErrAnswerTooLong, p.PathID, len(p.Answer), MaxStringLength)
		}
	}
	return nil
}
