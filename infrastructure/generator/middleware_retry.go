package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

type retryGenerator struct {
	next       ports.PathGenerator
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware retries failed Generate calls up to maxRetries times with
// jittered exponential backoff. Open circuits, invalid path counts and
// cancelled contexts are not retried.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next ports.PathGenerator) ports.PathGenerator {
		return &retryGenerator{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

func (r *retryGenerator) Generate(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		paths, err := r.next.Generate(ctx, task, n)
		if err == nil {
			return paths, nil
		}
		lastErr = err

		if permanent(err) || ctx.Err() != nil || attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.calculateDelay(attempt)):
		}
	}

	return nil, fmt.Errorf("generation failed after retries: %w", lastErr)
}

func permanent(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ports.ErrInvalidPathCount)
}

// calculateDelay returns baseDelay * 2^attempt, jittered by ±25% and capped
// at maxDelay.
func (r *retryGenerator) calculateDelay(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 30)
	delay := r.baseDelay * time.Duration(1<<attempt)

	// #nosec G404 - jitter does not need a cryptographic source.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - delay/4

	return min(delay, r.maxDelay)
}
