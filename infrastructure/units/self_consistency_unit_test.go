package units

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

func TestSelfConsistencyUnit_Execute(t *testing.T) {
	tests := []struct {
		name       string
		paths      []domain.ReasoningPath
		wantAnswer string
		wantMethod domain.Method
		wantHist   int
	}{
		{
			name:       "majority",
			paths:      pathsOf("A", 0.7, "A", 0.6, "B", 0.8),
			wantAnswer: "A",
			wantMethod: domain.MethodMajorityVote,
			wantHist:   1,
		},
		{
			name:       "no paths sentinel",
			paths:      []domain.ReasoningPath{},
			wantAnswer: domain.NoPathsAnswer,
			wantMethod: domain.MethodNone,
		},
		{
			name:       "all failed sentinel",
			paths:      pathsOf("Error", 0.0, "Error", 0.0),
			wantAnswer: domain.AllFailedAnswer,
			wantMethod: domain.MethodError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := newRecordingMetrics()
			unit, err := NewSelfConsistencyUnit("vote", DefaultSelfConsistencyConfig(), metrics)
			require.NoError(t, err)

			state := domain.With(domain.NewState(), domain.KeyPaths, tt.paths)
			out, err := unit.Execute(context.Background(), state)
			require.NoError(t, err)

			agg, ok := domain.Get(out, domain.KeyAggregation)
			require.True(t, ok)
			assert.Equal(t, tt.wantAnswer, agg.FinalAnswer)
			assert.Equal(t, tt.wantMethod, agg.Method)
			assert.Equal(t, 1.0, metrics.counters[ports.MetricAggregations+"/"+tt.wantMethod.String()])
			assert.Len(t, metrics.histograms[ports.MetricConsensusConfidence], tt.wantHist)
		})
	}
}

func TestSelfConsistencyUnit_Methods(t *testing.T) {
	unit, err := NewSelfConsistencyFromConfig("vote", map[string]any{
		"methods": []any{"semantic_similarity"},
	}, nil)
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyPaths, pathsOf("A", 0.7, "A", 0.6, "B", 0.8))
	out, err := unit.Execute(context.Background(), state)
	require.NoError(t, err)

	agg, _ := domain.Get(out, domain.KeyAggregation)
	assert.Equal(t, domain.MethodSemanticSimilarity, agg.Method)
}

func TestSelfConsistencyUnit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{name: "unknown method", params: map[string]any{"methods": []any{"plurality"}}},
		{name: "duplicate method", params: map[string]any{"methods": []any{"majority_vote", "majority_vote"}}},
		{name: "unknown key", params: map[string]any{"method": "majority_vote"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSelfConsistencyFromConfig("vote", tt.params, nil)
			assert.Error(t, err)
		})
	}

	_, err := NewSelfConsistencyUnit("", DefaultSelfConsistencyConfig(), nil)
	assert.ErrorIs(t, err, ErrEmptyUnitName)
}

func TestSelfConsistencyUnit_Limits(t *testing.T) {
	unit, err := NewSelfConsistencyUnit("vote", DefaultSelfConsistencyConfig(), nil)
	require.NoError(t, err)

	_, err = unit.Execute(context.Background(), domain.NewState())
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	tooMany := make([]domain.ReasoningPath, MaxPaths+1)
	_, err = unit.Execute(context.Background(), domain.With(domain.NewState(), domain.KeyPaths, tooMany))
	assert.ErrorIs(t, err, ErrTooManyPaths)

	long := []domain.ReasoningPath{{PathID: 1, Answer: strings.Repeat("x", MaxStringLength+1)}}
	_, err = unit.Execute(context.Background(), domain.With(domain.NewState(), domain.KeyPaths, long))
	assert.ErrorIs(t, err, ErrAnswerTooLong)
}

func TestSelfConsistencyUnit_Concurrent(t *testing.T) {
	unit, err := NewSelfConsistencyUnit("vote", DefaultSelfConsistencyConfig(), newRecordingMetrics())
	require.NoError(t, err)
	state := domain.With(domain.NewState(), domain.KeyPaths, pathsOf("7", 0.5, "seven", 0.5, "7", 0.9))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := unit.Execute(context.Background(), state)
			assert.NoError(t, err)
			agg, _ := domain.Get(out, domain.KeyAggregation)
			assert.Equal(t, "7", agg.FinalAnswer)
		}()
	}
	wg.Wait()
}
