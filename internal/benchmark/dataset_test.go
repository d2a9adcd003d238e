package benchmark

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/infrastructure/generator"
	"github.com/ahrav/go-concord/internal/domain"
)

func TestGenerate_Deterministic(t *testing.T) {
	opts := DefaultOptions()

	first, err := Generate(opts)
	require.NoError(t, err)
	second, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	opts.Seed = 2
	third, err := Generate(opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.Tasks, third.Tasks)
}

func TestGenerate_Shape(t *testing.T) {
	ds, err := Generate(Options{Size: 40, PathsPerTask: 4, Agreement: 1, FailureRate: 0, Seed: 7})
	require.NoError(t, err)
	require.NoError(t, ds.Validate())

	assert.Len(t, ds.Tasks, 40)
	for _, task := range ds.Tasks {
		_, err := strconv.Atoi(task.ExpectedAnswer)
		assert.NoError(t, err, "answers are whole numbers")

		paths := ds.Fixtures.Tasks[task.ID]
		require.Len(t, paths, 4)
		for _, p := range paths {
			assert.False(t, p.Failed)
			assert.Equal(t, task.ExpectedAnswer, p.Answer, "full agreement")
		}
	}

	stats := ComputeStatistics(ds)
	assert.Equal(t, 40, stats.TotalTasks)
	assert.Equal(t, 160, stats.TotalPaths)
	assert.Zero(t, stats.FailedPaths)
	assert.Equal(t, 1.0, stats.Agreement)
}

func TestGenerate_DisagreementAndFailures(t *testing.T) {
	ds, err := Generate(Options{Size: 200, PathsPerTask: 5, Agreement: 0.5, FailureRate: 0.2, Seed: 3})
	require.NoError(t, err)

	stats := ComputeStatistics(ds)
	assert.Greater(t, stats.FailedPaths, 0)
	assert.Less(t, stats.FailedPaths, stats.TotalPaths/2)
	assert.InDelta(t, 0.5, stats.Agreement, 0.1)
	assert.Greater(t, len(stats.CategoryCount), 1)
}

func TestGenerate_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "zero size", opts: Options{Size: 0, PathsPerTask: 1}},
		{name: "zero paths", opts: Options{Size: 1, PathsPerTask: 0}},
		{name: "agreement above one", opts: Options{Size: 1, PathsPerTask: 1, Agreement: 1.5}},
		{name: "negative failure rate", opts: Options{Size: 1, PathsPerTask: 1, FailureRate: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestDataset_Validate(t *testing.T) {
	valid := func() *Dataset {
		ds, err := Generate(Options{Size: 2, PathsPerTask: 1, Agreement: 1, Seed: 1})
		require.NoError(t, err)
		return ds
	}

	tests := []struct {
		name    string
		mutate  func(ds *Dataset)
		wantErr string
	}{
		{name: "no tasks", mutate: func(ds *Dataset) { ds.Tasks = nil }, wantErr: "no tasks"},
		{name: "size mismatch", mutate: func(ds *Dataset) { ds.Metadata.Size = 5 }, wantErr: "does not match"},
		{name: "duplicate ID", mutate: func(ds *Dataset) { ds.Tasks[1].ID = ds.Tasks[0].ID }, wantErr: "duplicate ID"},
		{name: "missing answer", mutate: func(ds *Dataset) { ds.Tasks[0].ExpectedAnswer = "" }, wantErr: "missing expected answer"},
		{name: "missing fixtures", mutate: func(ds *Dataset) { delete(ds.Fixtures.Tasks, ds.Tasks[0].ID) }, wantErr: "no fixture paths"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := valid()
			tt.mutate(ds)
			err := ds.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDataset_WriteDirRoundTrip(t *testing.T) {
	ds, err := Generate(Options{Size: 3, PathsPerTask: 3, Agreement: 1, Seed: 9})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "bench")
	require.NoError(t, ds.WriteDir(dir))

	data, err := os.ReadFile(filepath.Join(dir, TasksFile))
	require.NoError(t, err)
	var tasks []domain.Task
	require.NoError(t, yaml.Unmarshal(data, &tasks))
	assert.Equal(t, ds.Tasks, tasks)

	fx, err := generator.LoadFixturesFile(filepath.Join(dir, FixturesFile))
	require.NoError(t, err)

	gen := generator.NewFixtureGenerator(fx)
	paths, err := gen.Generate(context.Background(), tasks[0], 3)
	require.NoError(t, err)
	for _, p := range paths {
		assert.Equal(t, tasks[0].ExpectedAnswer, p.Answer)
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
}
