package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
)

func TestEvaluateConsistency_Degenerate(t *testing.T) {
	tests := []struct {
		name     string
		input    []domain.ReasoningPath
		analysis string
	}{
		{name: "no paths", input: nil, analysis: "No paths to evaluate"},
		{name: "one valid path", input: paths("A", 0.9), analysis: "Not enough valid paths for consistency check"},
		{name: "one valid among errors", input: paths("A", 0.9, "Error", 0.0, "Error", 0.0), analysis: "Not enough valid paths for consistency check"},
		{name: "only errors", input: paths("Error", 0.0, "Error", 0.0), analysis: "Not enough valid paths for consistency check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateConsistency(tt.input)
			assert.Zero(t, got.Score)
			assert.Equal(t, tt.analysis, got.Analysis)
			assert.Nil(t, got.Breakdown)
		})
	}
}

func TestEvaluateConsistency_Scenario(t *testing.T) {
	got := EvaluateConsistency(paths("X", 0.5, "X", 0.5, "Y", 0.5))

	require.NotNil(t, got.Breakdown)
	assert.Empty(t, got.Analysis)
	assert.InDelta(t, 1-1.0/3.0, got.Breakdown.AnswerConsistency, 1e-9)
	assert.InDelta(t, 1.0, got.Breakdown.ConfidenceConsistency, 1e-9)
	assert.InDelta(t, (2.0/3.0+1.0)/2, got.Score, 1e-9)
	assert.InDelta(t, 0.8333, got.Score, 1e-4)
	assert.Equal(t, 3, got.Breakdown.TotalPaths)
	assert.Equal(t, 3, got.Breakdown.ValidPaths)
	assert.Equal(t, 2, got.Breakdown.UniqueAnswers)
	assert.InDelta(t, 0.5, got.Breakdown.AvgConfidence, 1e-9)
}

func TestEvaluateConsistency_VarianceAndErrors(t *testing.T) {
	// Valid confidences 0.2 and 0.8: mean 0.5, population variance 0.09.
	got := EvaluateConsistency(paths("A", 0.2, "Error", 0.0, "A", 0.8))

	require.NotNil(t, got.Breakdown)
	assert.Equal(t, 3, got.Breakdown.TotalPaths)
	assert.Equal(t, 2, got.Breakdown.ValidPaths)
	assert.Equal(t, 1, got.Breakdown.UniqueAnswers)
	assert.InDelta(t, 1.0, got.Breakdown.AnswerConsistency, 1e-9)
	assert.InDelta(t, 0.91, got.Breakdown.ConfidenceConsistency, 1e-9)
	assert.InDelta(t, 0.955, got.Score, 1e-9)
}

func TestEvaluateConsistency_ConfidenceConsistencyFloor(t *testing.T) {
	// Out-of-range confidences are accepted as-is; a variance above 1 is
	// floored to zero consistency.
	got := EvaluateConsistency(paths("A", -2.0, "B", 2.0))

	require.NotNil(t, got.Breakdown)
	assert.Zero(t, got.Breakdown.ConfidenceConsistency)
	assert.InDelta(t, 0.5, got.Breakdown.AnswerConsistency, 1e-9)
	assert.InDelta(t, 0.25, got.Score, 1e-9)
}

func TestEvaluateTreeQuality(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got := EvaluateTreeQuality(nil)
		assert.Equal(t, domain.TreeQuality{ErrorRate: 1}, got)
	})

	t.Run("mixed", func(t *testing.T) {
		got := EvaluateTreeQuality(paths("A", 0.6, "B", 0.9, "A", 0.3, "Error", 0.0))

		assert.Equal(t, 4, got.TotalPaths)
		assert.InDelta(t, 0.5, got.Diversity, 1e-9)
		assert.InDelta(t, 0.45, got.AvgConfidence, 1e-9)
		assert.InDelta(t, 0.25, got.ErrorRate, 1e-9)
	})

	t.Run("all failed", func(t *testing.T) {
		got := EvaluateTreeQuality(paths("Error", 0.0, "Error", 0.0))

		assert.Zero(t, got.Diversity)
		assert.Equal(t, 1.0, got.ErrorRate)
	})
}
