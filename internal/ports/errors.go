package ports

import (
	"errors"
	"fmt"
)

// Errors reported by infrastructure behind the ports.
var (
	// ErrGeneratorUnavailable indicates that a path generator cannot serve
	// requests at all, as opposed to failing individual paths.
	ErrGeneratorUnavailable = errors.New("path generator unavailable")

	// ErrInvalidPathCount indicates a request for fewer than one path.
	ErrInvalidPathCount = errors.New("path count must be positive")

	// ErrInvalidFixture indicates malformed fixture data.
	ErrInvalidFixture = errors.New("invalid fixture")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// GeneratorError is returned by a PathGenerator that could not produce any
// paths for a task.
type GeneratorError struct {
	// Generator names the generator implementation.
	Generator string

	// TaskID is the task being generated for, if known.
	TaskID string

	// Err is the underlying error.
	Err error
}

func (e *GeneratorError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("generator error: generator=%s, err=%v", e.Generator, e.Err)
	}
	return fmt.Sprintf("generator error: generator=%s, task=%s, err=%v", e.Generator, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e *GeneratorError) Unwrap() error { return e.Err }

// NewGeneratorError creates a new GeneratorError.
func NewGeneratorError(generator, taskID string, err error) *GeneratorError {
	return &GeneratorError{Generator: generator, TaskID: taskID, Err: err}
}

// ConfigError represents an error from loading configuration.
type ConfigError struct {
	// Source is the file or input the configuration came from.
	Source string

	// Err is the underlying error.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: source=%s, err=%v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError.
func NewConfigError(source string, err error) *ConfigError {
	return &ConfigError{Source: source, Err: err}
}
