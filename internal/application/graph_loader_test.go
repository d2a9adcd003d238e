package application

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/internal/ports"
)

func TestNewGraphLoader_NilRegistry(t *testing.T) {
	_, err := NewGraphLoader(nil)
	assert.Error(t, err)
}

func TestGraphLoader_LoadFromReader(t *testing.T) {
	loader := newTestLoader(t, nil)

	graph, err := loader.LoadFromReader(context.Background(), strings.NewReader(testGraphYAML))
	require.NoError(t, err)
	assert.Equal(t, "reasoning-consensus", graph.Name())

	order, err := graph.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "main", order[0].ID())
	assert.Equal(t, "scoring", order[1].ID())

	main, ok := order[0].(*Pipeline)
	require.True(t, ok)
	var ids []string
	for _, exec := range main.Executables() {
		ids = append(ids, exec.ID())
	}
	assert.Equal(t, []string{"generate", "vote", "grade"}, ids)

	scoring, ok := order[1].(*Layer)
	require.True(t, ok)
	members := scoring.Executables()
	require.Len(t, members, 2)
	quality, ok := members[1].(*UnitAdapter)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, quality.Timeout())
}

func TestGraphLoader_StandaloneUnits(t *testing.T) {
	const config = `
version: "1.0.0"
metadata:
  name: flat
units:
  - id: vote
    type: self_consistency
    parameters:
      methods: [majority_vote]
  - id: check
    type: exact_match
graph:
  edges:
    - from: vote
      to: check
`
	graph, err := newTestLoader(t, nil).LoadFromReader(context.Background(), strings.NewReader(config))
	require.NoError(t, err)

	order, err := graph.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "vote", order[0].ID())
	assert.Equal(t, "check", order[1].ID())
}

func TestGraphLoader_ValidationErrors(t *testing.T) {
	const base = `
version: "1.0.0"
metadata:
  name: broken
units:
  - id: generate
    type: path_generator
  - id: vote
    type: self_consistency
  - id: grade
    type: exact_match
`
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "bad version",
			config:  strings.Replace(base, `"1.0.0"`, `"one"`, 1) + "graph: {}\n",
			wantErr: "semver",
		},
		{
			name:    "unknown top-level field",
			config:  base + "graph: {}\nextra: true\n",
			wantErr: "field extra not found",
		},
		{
			name: "unsupported unit type",
			config: base + `  - id: judge
    type: llm_judge
graph: {}
`,
			wantErr: `unsupported type "llm_judge"`,
		},
		{
			name: "duplicate unit ID",
			config: base + `  - id: vote
    type: consistency
graph: {}
`,
			wantErr: `duplicate ID "vote"`,
		},
		{
			name: "pipeline ID collides with unit",
			config: base + `graph:
  pipelines:
    - id: vote
      units: [generate]
`,
			wantErr: `duplicate ID "vote"`,
		},
		{
			name: "parameter typo",
			config: strings.Replace(base, "type: path_generator", "type: path_generator\n    parameters: {num_path: 3}", 1) +
				"graph: {}\n",
			wantErr: "check for typos",
		},
		{
			name: "parameter out of range",
			config: strings.Replace(base, "type: path_generator", "type: path_generator\n    parameters: {num_paths: 0}", 1) +
				"graph: {}\n",
			wantErr: "parameter validation failed",
		},
		{
			name: "parameterless unit given parameters",
			config: base + `  - id: score
    type: consistency
    parameters: {strict: true}
graph: {}
`,
			wantErr: "takes no parameters",
		},
		{
			name: "pipeline references missing unit",
			config: base + `graph:
  pipelines:
    - id: main
      units: [generate, missing]
`,
			wantErr: "references non-existent unit: missing",
		},
		{
			name: "unit placed twice",
			config: base + `graph:
  pipelines:
    - id: main
      units: [generate, vote]
  layers:
    - id: side
      units: [vote, grade]
`,
			wantErr: "unit vote is used by both",
		},
		{
			name: "layer needs two units",
			config: base + `graph:
  layers:
    - id: side
      units: [vote]
`,
			wantErr: "min",
		},
		{
			name: "edge to unknown node",
			config: base + `graph:
  edges:
    - from: generate
      to: nowhere
`,
			wantErr: "references non-existent node: nowhere",
		},
		{
			name: "edge into pipeline member",
			config: base + `graph:
  pipelines:
    - id: main
      units: [generate, vote]
  edges:
    - from: grade
      to: vote
`,
			wantErr: "inside pipeline main",
		},
		{
			name: "cycle",
			config: base + `graph:
  edges:
    - from: generate
      to: vote
    - from: vote
      to: generate
`,
			wantErr: "would create a cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(t, nil).LoadFromReader(context.Background(), strings.NewReader(tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGraphLoader_Cache(t *testing.T) {
	loader := newTestLoader(t, nil)
	ctx := context.Background()

	first, err := loader.LoadFromReader(ctx, strings.NewReader(testGraphYAML))
	require.NoError(t, err)

	second, err := loader.LoadFromReader(ctx, strings.NewReader(testGraphYAML))
	require.NoError(t, err)
	assert.Same(t, first, second)

	reformatted := strings.ReplaceAll(testGraphYAML, "units: [generate, vote, grade]", "units:\n        - generate\n        - vote\n        - grade")
	third, err := loader.LoadFromReader(ctx, strings.NewReader(reformatted))
	require.NoError(t, err)
	assert.Same(t, first, third, "formatting does not change the cache key")

	loader.ClearCache()
	fourth, err := loader.LoadFromReader(ctx, strings.NewReader(testGraphYAML))
	require.NoError(t, err)
	assert.NotSame(t, first, fourth)
}

func TestGraphLoader_CacheEviction(t *testing.T) {
	loader, err := NewGraphLoader(NewDefaultUnitRegistry(testGenerator(t), nil), WithCacheSize(1))
	require.NoError(t, err)
	ctx := context.Background()
	other := strings.Replace(testGraphYAML, "name: reasoning-consensus", "name: other-consensus", 1)

	first, err := loader.LoadFromReader(ctx, strings.NewReader(testGraphYAML))
	require.NoError(t, err)
	_, err = loader.LoadFromReader(ctx, strings.NewReader(other))
	require.NoError(t, err)

	again, err := loader.LoadFromReader(ctx, strings.NewReader(testGraphYAML))
	require.NoError(t, err)
	assert.NotSame(t, first, again, "a one-entry cache evicts the first graph")
}

func TestGraphLoader_ConcurrentLoads(t *testing.T) {
	loader := newTestLoader(t, nil)

	const callers = 16
	graphs := make([]*Graph, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := loader.LoadFromReader(context.Background(), strings.NewReader(testGraphYAML))
			assert.NoError(t, err)
			graphs[i] = g
		}()
	}
	wg.Wait()

	for _, g := range graphs[1:] {
		assert.Same(t, graphs[0], g)
	}
}

func TestGraphLoader_LoadFromFile(t *testing.T) {
	loader := newTestLoader(t, nil)
	dir := t.TempDir()

	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testGraphYAML), 0o600))

	graph, err := loader.LoadFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "reasoning-consensus", graph.Name())

	_, err = loader.LoadFromFile(context.Background(), filepath.Join(dir, "missing.yaml"))
	var cfgErr *ports.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestValidateUnitParameters_UnknownTypeSkipped(t *testing.T) {
	assert.NoError(t, ValidateUnitParameters("custom", decodeNode(t, "anything: goes")))
	assert.Error(t, ValidateUnitParameters("fuzzy_match", decodeNode(t, "threshold: 2")))
	assert.NoError(t, ValidateUnitParameters("fuzzy_match", decodeNode(t, "threshold: 0.5")))
}

func decodeNode(t *testing.T, s string) yaml.Node {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(s), &n))
	return n
}
