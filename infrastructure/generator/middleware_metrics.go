package generator

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

type metricsGenerator struct {
	next      ports.PathGenerator
	name      string
	collector ports.MetricsCollector
}

// MetricsMiddleware records the latency and outcome of every Generate call
// under ports.MetricGeneratorLatency and ports.MetricGeneratorRequests.
// Status labels are success, circuit_open, timeout and error.
func MetricsMiddleware(name string, collector ports.MetricsCollector) Middleware {
	if collector == nil {
		collector = ports.NopMetrics{}
	}

	return func(next ports.PathGenerator) ports.PathGenerator {
		return &metricsGenerator{next: next, name: name, collector: collector}
	}
}

func (m *metricsGenerator) Generate(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error) {
	start := time.Now()
	paths, err := m.next.Generate(ctx, task, n)

	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrCircuitOpen):
		status = "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	default:
		status = "error"
	}

	m.collector.RecordLatency(ports.MetricGeneratorLatency, time.Since(start), map[string]string{
		"unit_type": "generator",
		"unit":      m.name,
	})
	m.collector.RecordCounter(ports.MetricGeneratorRequests, 1, map[string]string{
		"status":    status,
		"generator": m.name,
	})

	return paths, err
}
