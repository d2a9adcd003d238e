package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

func TestDefaultUnitRegistry_SupportedTypes(t *testing.T) {
	r := NewDefaultUnitRegistry(testGenerator(t), nil)

	assert.Equal(t, []string{
		"consistency",
		"exact_match",
		"fuzzy_match",
		"path_generator",
		"self_consistency",
		"tree_quality",
	}, r.GetSupportedTypes())
}

func TestDefaultUnitRegistry_CreateUnit(t *testing.T) {
	r := NewDefaultUnitRegistry(testGenerator(t), nil)

	tests := []struct {
		name     string
		unitType string
		id       string
		config   map[string]any
		wantErr  string
	}{
		{name: "path generator", unitType: "path_generator", id: "gen", config: map[string]any{"num_paths": 5}},
		{name: "nil config uses defaults", unitType: "self_consistency", id: "vote"},
		{name: "fuzzy match", unitType: "fuzzy_match", id: "grade", config: map[string]any{"threshold": 0.5}},
		{name: "unknown type", unitType: "answerer", id: "a", wantErr: "unsupported unit type: answerer"},
		{name: "empty id", unitType: "consistency", id: "", wantErr: "unit ID cannot be empty"},
		{
			name:     "bad parameters",
			unitType: "self_consistency",
			id:       "vote",
			config:   map[string]any{"methods": []any{"plurality"}},
			wantErr:  "failed to create unit vote of type self_consistency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := r.CreateUnit(tt.unitType, tt.id, tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, unit.Name())
			assert.NoError(t, unit.Validate())
		})
	}
}

func TestDefaultUnitRegistry_RegisterUnitFactory(t *testing.T) {
	r := NewDefaultUnitRegistry(testGenerator(t), nil)

	assert.Error(t, r.RegisterUnitFactory("", func(string, map[string]any) (ports.Unit, error) { return nil, nil }))
	assert.Error(t, r.RegisterUnitFactory("custom", nil))

	require.NoError(t, r.RegisterUnitFactory("custom", func(id string, _ map[string]any) (ports.Unit, error) {
		return &stubUnit{name: id}, nil
	}))
	assert.Contains(t, r.GetSupportedTypes(), "custom")

	unit, err := r.CreateUnit("custom", "mine", nil)
	require.NoError(t, err)
	assert.Equal(t, "mine", unit.Name())
}

func TestDefaultUnitRegistry_InjectsGenerator(t *testing.T) {
	r := NewDefaultUnitRegistry(testGenerator(t), nil)

	unit, err := r.CreateUnit("path_generator", "gen", map[string]any{"num_paths": 2})
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyTask, domain.Task{ID: "t1", Problem: "6*7"})
	out, err := unit.Execute(context.Background(), state)
	require.NoError(t, err)

	paths, ok := domain.Get(out, domain.KeyPaths)
	require.True(t, ok)
	require.Len(t, paths, 2)
	assert.Equal(t, "42", paths[0].Answer)
}
