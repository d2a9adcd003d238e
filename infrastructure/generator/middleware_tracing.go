package generator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

type tracedGenerator struct {
	next   ports.PathGenerator
	name   string
	tracer trace.Tracer
}

// TracingMiddleware opens a span around every Generate call. name labels
// the generator in span attributes.
func TracingMiddleware(name string) Middleware {
	tracer := otel.Tracer("path-generator")

	return func(next ports.PathGenerator) ports.PathGenerator {
		return &tracedGenerator{next: next, name: name, tracer: tracer}
	}
}

func (t *tracedGenerator) Generate(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error) {
	ctx, span := t.tracer.Start(ctx, "PathGenerator.Generate",
		trace.WithAttributes(
			attribute.String("generator.name", t.name),
			attribute.String("task.id", task.ID),
			attribute.Int("paths.requested", n),
		),
	)
	defer span.End()

	paths, err := t.next.Generate(ctx, task, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	failed := len(paths) - len(domain.ValidPaths(paths))
	span.SetAttributes(
		attribute.Int("paths.returned", len(paths)),
		attribute.Int("paths.failed", failed),
	)
	return paths, nil
}
