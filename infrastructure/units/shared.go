// Package units provides the units of the per-task execution graph:
// path generation, consensus, consistency scoring, tree quality and grading.
package units

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/internal/ports"
)

// Input limits.
const (
	// MaxPaths is the maximum number of reasoning paths a unit accepts.
	MaxPaths = 1000
	// MaxStringLength is the maximum length of any answer (1MB).
	MaxStringLength = 1024 * 1024
)

// Unit type names as they appear in graph configuration.
const (
	TypePathGenerator   = "path_generator"
	TypeSelfConsistency = "self_consistency"
	TypeConsistency     = "consistency"
	TypeTreeQuality     = "tree_quality"
	TypeExactMatch      = "exact_match"
	TypeFuzzyMatch      = "fuzzy_match"
)

// Common errors returned by units.
var (
	// ErrEmptyUnitName is returned when a unit is created without a name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrNilGenerator is returned when a path generator unit has no generator.
	ErrNilGenerator = errors.New("path generator cannot be nil")

	// ErrTooManyPaths is returned when the state holds more than MaxPaths paths.
	ErrTooManyPaths = errors.New("too many reasoning paths")

	// ErrAnswerTooLong is returned when an answer exceeds MaxStringLength.
	ErrAnswerTooLong = errors.New("answer too long")
)

var validate = validator.New()

// decodeParams overlays params onto out, which must point at a config
// struct already holding defaults. Unknown keys are rejected so typos in
// graph files surface at load time.
func decodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		if err := validate.Struct(out); err != nil {
			return fmt.Errorf("parameter validation failed: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	if err := encoder.Encode(params); err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close YAML encoder: %w", err)
	}

	decoder := yaml.NewDecoder(&buf)
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to decode parameters (check for typos): %w", err)
	}

	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	return nil
}

// metricsOrNop returns m, or a collector that drops everything when m is nil.
func metricsOrNop(m ports.MetricsCollector) ports.MetricsCollector {
	if m == nil {
		return ports.NopMetrics{}
	}
	return m
}

// fail records err on the span and returns it.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	return err
}

// observe records a unit's execution latency.
func observe(m ports.MetricsCollector, unitType, id string, start time.Time) {
	m.RecordLatency(ports.MetricUnitLatency, time.Since(start), map[string]string{
		"unit":      id,
		"unit_type": unitType,
	})
}
