package generator

import (
	"context"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

type timeoutGenerator struct {
	next    ports.PathGenerator
	timeout time.Duration
}

// TimeoutMiddleware bounds every Generate call by timeout.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next ports.PathGenerator) ports.PathGenerator {
		return &timeoutGenerator{next: next, timeout: timeout}
	}
}

func (t *timeoutGenerator) Generate(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, task, n)
}
