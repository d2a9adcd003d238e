package generator

import (
	"context"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// Middleware wraps a path generator with additional behavior.
type Middleware func(ports.PathGenerator) ports.PathGenerator

// Chain wraps gen with mws. The first middleware is the outermost, so
// Chain(g, Metrics, Retry) measures each request including its retries.
func Chain(gen ports.PathGenerator, mws ...Middleware) ports.PathGenerator {
	for i := len(mws) - 1; i >= 0; i-- {
		gen = mws[i](gen)
	}
	return gen
}

// GeneratorFunc adapts a function to ports.PathGenerator.
type GeneratorFunc func(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error) {
	return f(ctx, task, n)
}
