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

var _ ports.Unit = (*ConsistencyUnit)(nil)

// ConsistencyUnit scores how much the reasoning paths in state agree and
// stores the report under domain.KeyConsistency. It takes no parameters.
type ConsistencyUnit struct {
	name    string
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewConsistencyUnit creates a ConsistencyUnit. metrics may be nil.
func NewConsistencyUnit(name string, metrics ports.MetricsCollector) (*ConsistencyUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &ConsistencyUnit{
		name:    name,
		metrics: metricsOrNop(metrics),
		tracer:  otel.Tracer("consistency-unit"),
	}, nil
}

// Name returns the unit's identifier.
func (u *ConsistencyUnit) Name() string { return u.name }

// Execute reads domain.KeyPaths and writes domain.KeyConsistency.
func (u *ConsistencyUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "ConsistencyUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeConsistency),
			attribute.String("unit.id", u.name),
		),
	)
	defer span.End()

	start := time.Now()
	defer observe(u.metrics, TypeConsistency, u.name, start)

	paths, ok := domain.Get(state, domain.KeyPaths)
	if !ok {
		return state, fail(span, domain.MissingStateError(u.name, domain.KeyPaths))
	}
	if err := checkPaths(paths); err != nil {
		return state, fail(span, domain.NewUnitError(u.name, "check paths", err))
	}

	report := consensus.EvaluateConsistency(paths)
	if report.Breakdown != nil {
		u.metrics.RecordHistogram(ports.MetricConsistencyScore, report.Score, map[string]string{"unit": u.name})
	}

	span.SetAttributes(attribute.Float64("consistency.score", report.Score))
	if report.Analysis != "" {
		span.SetAttributes(attribute.String("consistency.analysis", report.Analysis))
	}

	return domain.With(state, domain.KeyConsistency, report), nil
}

// Validate always succeeds; the unit has no configuration.
func (u *ConsistencyUnit) Validate() error { return nil }

// NewConsistencyFromConfig creates a ConsistencyUnit. The unit accepts no
// parameters, so any provided key is an error.
func NewConsistencyFromConfig(id string, params map[string]any, metrics ports.MetricsCollector) (ports.Unit, error) {
	if len(params) > 0 {
		return nil, fmt.Errorf("%s unit takes no parameters, got %d", TypeConsistency, len(params))
	}
	return NewConsistencyUnit(id, metrics)
}
