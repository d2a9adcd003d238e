package units

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*ExactMatchUnit)(nil)

// ExactMatchUnit grades the consensus answer against the task's expected
// answer by exact string comparison after optional normalization. The grade
// score is 1.0 for a match and 0.0 otherwise.
//
// Sentinel consensus results ("No paths provided", "All paths failed") are
// always graded incorrect. Tasks without an expected answer are not graded.
//
// Concurrency: ExactMatchUnit is stateless and safe for concurrent execution.
type ExactMatchUnit struct {
	name    string
	config  ExactMatchConfig
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// ExactMatchConfig controls string normalization before comparison.
type ExactMatchConfig struct {
	// CaseSensitive disables Unicode case folding.
	CaseSensitive bool `yaml:"case_sensitive" json:"case_sensitive"`

	// TrimWhitespace strips leading and trailing whitespace.
	TrimWhitespace bool `yaml:"trim_whitespace" json:"trim_whitespace"`
}

// DefaultExactMatchConfig returns case-insensitive matching with whitespace
// trimming.
func DefaultExactMatchConfig() ExactMatchConfig {
	return ExactMatchConfig{
		CaseSensitive:  false,
		TrimWhitespace: true,
	}
}

// NewExactMatchUnit creates a new ExactMatchUnit. metrics may be nil.
func NewExactMatchUnit(name string, config ExactMatchConfig, metrics ports.MetricsCollector) (*ExactMatchUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &ExactMatchUnit{
		name:    name,
		config:  config,
		metrics: metricsOrNop(metrics),
		tracer:  otel.Tracer("exact-match-unit"),
	}, nil
}

// Name returns the unit's identifier.
func (u *ExactMatchUnit) Name() string { return u.name }

// Execute reads domain.KeyAggregation and domain.KeyTask and writes
// domain.KeyGrade.
func (u *ExactMatchUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "ExactMatchUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeExactMatch),
			attribute.String("unit.id", u.name),
			attribute.Bool("config.case_sensitive", u.config.CaseSensitive),
			attribute.Bool("config.trim_whitespace", u.config.TrimWhitespace),
		),
	)
	defer span.End()

	start := time.Now()
	defer observe(u.metrics, TypeExactMatch, u.name, start)

	in, ok, err := readGradeInputs(u.name, state, span)
	if err != nil || !ok {
		return state, err
	}

	grade := domain.Grade{Grader: u.name}
	if !in.sentinel && u.prepareString(in.candidate) == u.prepareString(in.reference) {
		grade.Correct = true
		grade.Score = 1.0
	}

	span.SetAttributes(
		attribute.Bool("grade.correct", grade.Correct),
		attribute.Float64("grade.score", grade.Score),
	)

	return domain.With(state, domain.KeyGrade, grade), nil
}

// prepareString trims, then case-folds, according to the configuration.
func (u *ExactMatchUnit) prepareString(s string) string {
	if u.config.TrimWhitespace {
		s = strings.TrimSpace(s)
	}
	if !u.config.CaseSensitive {
		// A Caser carries state and is not safe for concurrent use.
		s = cases.Fold().String(s)
	}
	return s
}

// Validate checks the configuration.
func (u *ExactMatchUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DecodeExactMatchConfig builds a config from graph parameters on top of
// the defaults.
func DecodeExactMatchConfig(params map[string]any) (ExactMatchConfig, error) {
	cfg := DefaultExactMatchConfig()
	if err := decodeParams(params, &cfg); err != nil {
		return ExactMatchConfig{}, err
	}
	return cfg, nil
}

// NewExactMatchFromConfig creates an ExactMatchUnit from graph parameters.
func NewExactMatchFromConfig(id string, params map[string]any, metrics ports.MetricsCollector) (ports.Unit, error) {
	cfg, err := DecodeExactMatchConfig(params)
	if err != nil {
		return nil, err
	}
	return NewExactMatchUnit(id, cfg, metrics)
}
