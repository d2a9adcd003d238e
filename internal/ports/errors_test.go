package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratorError(t *testing.T) {
	t.Run("with task", func(t *testing.T) {
		err := NewGeneratorError("fixture", "t1", ErrInvalidPathCount)

		assert.Equal(t, "generator error: generator=fixture, task=t1, err=path count must be positive", err.Error())
		assert.ErrorIs(t, err, ErrInvalidPathCount)
	})

	t.Run("without task", func(t *testing.T) {
		err := NewGeneratorError("fixture", "", ErrGeneratorUnavailable)

		assert.Equal(t, "generator error: generator=fixture, err=path generator unavailable", err.Error())
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("generate: %w", NewGeneratorError("fixture", "t1", ErrInvalidFixture))

		var genErr *GeneratorError
		assert.True(t, errors.As(wrapped, &genErr))
		assert.Equal(t, "t1", genErr.TaskID)
		assert.ErrorIs(t, wrapped, ErrInvalidFixture)
	})
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("graph.yaml", ErrConfigNotFound)

	assert.Equal(t, "config error: source=graph.yaml, err=configuration not found", err.Error())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
