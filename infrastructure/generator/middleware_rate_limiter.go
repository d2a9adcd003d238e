package generator

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

type rateLimitedGenerator struct {
	next    ports.PathGenerator
	limiter *rate.Limiter
}

// RateLimitMiddleware paces Generate calls with a token bucket of limit
// requests per second and the given burst. Every generator wrapped by the
// returned middleware shares the bucket.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next ports.PathGenerator) ports.PathGenerator {
		return &rateLimitedGenerator{next: next, limiter: limiter}
	}
}

// Generate blocks until a token is available or ctx is done.
func (r *rateLimitedGenerator) Generate(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Generate(ctx, task, n)
}
