package application

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/infrastructure/generator"
	"github.com/ahrav/go-concord/internal/ports"
)

const testGraphYAML = `
version: "1.0.0"
metadata:
  name: reasoning-consensus
  description: Generate paths, vote, grade and score consistency.
  tags: [test]
units:
  - id: generate
    type: path_generator
    parameters:
      num_paths: 3
  - id: vote
    type: self_consistency
  - id: grade
    type: fuzzy_match
    parameters:
      algorithm: levenshtein
      threshold: 0.9
  - id: consistency
    type: consistency
  - id: quality
    type: tree_quality
    timeout:
      execution_timeout_seconds: 5
graph:
  pipelines:
    - id: main
      units: [generate, vote, grade]
  layers:
    - id: scoring
      units: [consistency, quality]
  edges:
    - from: main
      to: scoring
`

const testFixturesYAML = `
tasks:
  t1:
    - {answer: "42", confidence: 0.9}
    - {answer: "42", confidence: 0.9}
    - {answer: "41", confidence: 0.9}
  t2:
    - {answer: "paris", confidence: 0.9}
    - {answer: "paris", confidence: 0.9}
    - {answer: "london", confidence: 0.9}
`

func testGenerator(t *testing.T) ports.PathGenerator {
	t.Helper()
	fx, err := generator.LoadFixtures(strings.NewReader(testFixturesYAML))
	require.NoError(t, err)
	return generator.NewFixtureGenerator(fx)
}

func newTestLoader(t *testing.T, metrics ports.MetricsCollector) *GraphLoader {
	t.Helper()
	loader, err := NewGraphLoader(NewDefaultUnitRegistry(testGenerator(t), metrics))
	require.NoError(t, err)
	return loader
}

// recordingMetrics keeps counters keyed by metric and outcome, and the
// last value of each gauge.
type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counters: map[string]float64{}, gauges: map[string]float64{}}
}

func (m *recordingMetrics) RecordLatency(string, time.Duration, map[string]string) {}

func (m *recordingMetrics) RecordCounter(metric string, v float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if outcome, ok := labels["outcome"]; ok {
		metric += "/" + outcome
	}
	m.counters[metric] += v
}

func (m *recordingMetrics) RecordGauge(metric string, v float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[metric] = v
}

func (m *recordingMetrics) RecordHistogram(string, float64, map[string]string) {}

func (m *recordingMetrics) counter(key string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func (m *recordingMetrics) gauge(key string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[key]
}
