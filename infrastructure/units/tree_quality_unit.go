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

var _ ports.Unit = (*TreeQualityUnit)(nil)

// TreeQualityUnit summarizes the diversity and error rate of the reasoning
// paths in state.
type TreeQualityUnit struct {
	name    string
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewTreeQualityUnit creates a TreeQualityUnit. metrics may be nil.
func NewTreeQualityUnit(name string, metrics ports.MetricsCollector) (*TreeQualityUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &TreeQualityUnit{
		name:    name,
		metrics: metricsOrNop(metrics),
		tracer:  otel.Tracer("tree-quality-unit"),
	}, nil
}

// Name returns the unit's identifier.
func (u *TreeQualityUnit) Name() string { return u.name }

// Execute reads domain.KeyPaths and writes domain.KeyTreeQuality.
func (u *TreeQualityUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "TreeQualityUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeTreeQuality),
			attribute.String("unit.id", u.name),
		),
	)
	defer span.End()

	start := time.Now()
	defer observe(u.metrics, TypeTreeQuality, u.name, start)

	paths, ok := domain.Get(state, domain.KeyPaths)
	if !ok {
		return state, fail(span, domain.MissingStateError(u.name, domain.KeyPaths))
	}
	if err := checkPaths(paths); err != nil {
		return state, fail(span, domain.NewUnitError(u.name, "check paths", err))
	}

	quality := consensus.EvaluateTreeQuality(paths)

	span.SetAttributes(
		attribute.Float64("tree.diversity", quality.Diversity),
		attribute.Float64("tree.error_rate", quality.ErrorRate),
	)

	return domain.With(state, domain.KeyTreeQuality, quality), nil
}

// Validate always succeeds; the unit has no configuration.
func (u *TreeQualityUnit) Validate() error { return nil }

// NewTreeQualityFromConfig creates a TreeQualityUnit. The unit accepts no
// parameters.
func NewTreeQualityFromConfig(id string, params map[string]any, metrics ports.MetricsCollector) (ports.Unit, error) {
	if len(params) > 0 {
		return nil, fmt.Errorf("%s unit takes no parameters, got %d", TypeTreeQuality, len(params))
	}
	return NewTreeQualityUnit(id, metrics)
}
