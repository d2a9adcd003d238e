package tracking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
)

func result(correct bool, confidence, consistency float64) domain.TaskResult {
	return domain.TaskResult{
		Grade:       &domain.Grade{Correct: correct},
		Aggregation: &domain.AggregationResult{Confidence: confidence},
		Consistency: &domain.ConsistencyReport{Score: consistency},
	}
}

func TestCalculateMetrics(t *testing.T) {
	tests := []struct {
		name    string
		results []domain.TaskResult
		want    Metrics
	}{
		{name: "empty", results: nil, want: Metrics{}},
		{
			name:    "all correct",
			results: []domain.TaskResult{result(true, 1, 0.8), result(true, 0.5, 0.6)},
			want:    Metrics{Accuracy: 1, AvgConfidence: 0.75, Consistency: 0.7, TotalTasks: 2},
		},
		{
			name: "failed task counts as incorrect",
			results: []domain.TaskResult{
				result(true, 0.9, 0.9),
				{TaskID: "broken", Error: "boom"},
			},
			want: Metrics{Accuracy: 0.5, AvgConfidence: 0.45, Consistency: 0.45, TotalTasks: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateMetrics(tt.results)
			assert.Equal(t, tt.want.TotalTasks, got.TotalTasks)
			assert.InDelta(t, tt.want.Accuracy, got.Accuracy, 1e-9)
			assert.InDelta(t, tt.want.AvgConfidence, got.AvgConfidence, 1e-9)
			assert.InDelta(t, tt.want.Consistency, got.Consistency, 1e-9)
		})
	}
}

func TestShouldOptimize(t *testing.T) {
	tests := []struct {
		name    string
		metrics Metrics
		want    bool
		reason  string
	}{
		{
			name:    "low accuracy",
			metrics: Metrics{Accuracy: 0.5, Consistency: 0.9},
			want:    true,
			reason:  "Performance below threshold - Accuracy: 0.50, Consistency: 0.90",
		},
		{
			name:    "low consistency",
			metrics: Metrics{Accuracy: 0.9, Consistency: 0.25},
			want:    true,
			reason:  "Performance below threshold - Accuracy: 0.90, Consistency: 0.25",
		},
		{
			name:    "threshold is inclusive",
			metrics: Metrics{Accuracy: 0.6, Consistency: 0.6},
			want:    false,
			reason:  "Performance acceptable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ShouldOptimize(tt.metrics, DefaultThreshold)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	_, ok := tr.Best()
	assert.False(t, ok)
	assert.Empty(t, tr.History())

	tr.Track("v1", []domain.TaskResult{result(true, 1, 1), result(false, 0, 0)})
	rec := tr.Track("v2", []domain.TaskResult{result(true, 1, 1)})
	tr.Track("v3", []domain.TaskResult{result(true, 1, 1)})

	assert.Equal(t, "v2", rec.Version)
	assert.Equal(t, fixed, rec.Timestamp)

	best, ok := tr.Best()
	require.True(t, ok)
	assert.Equal(t, "v2", best.Version, "earliest record wins ties")

	history := tr.History()
	require.Len(t, history, 3)
	history[0].Version = "mutated"
	assert.Equal(t, "v1", tr.History()[0].Version, "History returns a copy")
}

func TestTracker_ConcurrentTrack(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Track("v", []domain.TaskResult{result(true, 1, 1)})
		}()
	}
	wg.Wait()

	assert.Len(t, tr.History(), 16)
}
