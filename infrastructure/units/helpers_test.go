package units

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
)

// fakeGenerator returns canned paths or a fixed error.
type fakeGenerator struct {
	paths []domain.ReasoningPath
	err   error

	mu       sync.Mutex
	requests []int
}

func (g *fakeGenerator) Generate(_ context.Context, _ domain.Task, n int) ([]domain.ReasoningPath, error) {
	g.mu.Lock()
	g.requests = append(g.requests, n)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.paths, nil
}

// recordingMetrics remembers every call made to it.
type recordingMetrics struct {
	mu         sync.Mutex
	latencies  []string
	counters   map[string]float64
	histograms map[string][]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *recordingMetrics) RecordLatency(op string, _ time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, op+"/"+labels["unit_type"])
}

func (m *recordingMetrics) RecordCounter(metric string, v float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := metric
	if method, ok := labels["method"]; ok {
		key += "/" + method
	}
	if status, ok := labels["status"]; ok {
		key += "/" + status
	}
	m.counters[key] += v
}

func (m *recordingMetrics) RecordGauge(string, float64, map[string]string) {}

func (m *recordingMetrics) RecordHistogram(metric string, v float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[metric] = append(m.histograms[metric], v)
}

func pathsOf(pairs ...any) []domain.ReasoningPath {
	out := make([]domain.ReasoningPath, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.ReasoningPath{
			PathID:     len(out) + 1,
			Answer:     pairs[i].(string),
			Confidence: pairs[i+1].(float64),
		})
	}
	return out
}

// gradedState builds the state a grading unit sees.
func gradedState(consensusAnswer, expected string) domain.State {
	state := domain.With(domain.NewState(), domain.KeyTask, domain.Task{ID: "t1", ExpectedAnswer: expected})
	return domain.With(state, domain.KeyAggregation, domain.AggregationResult{
		FinalAnswer: consensusAnswer,
		Confidence:  1,
		Method:      domain.MethodMajorityVote,
		PathCount:   1,
	})
}
