package units

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*FuzzyMatchUnit)(nil)

// FuzzyMatchUnit grades the consensus answer by normalized Levenshtein
// similarity to the expected answer:
//
//	similarity = 1 - distance / max(runes(candidate), runes(reference))
//
// The grade's score is the similarity; the answer counts as correct when the
// similarity reaches Threshold. Sentinel consensus results score 0.
type FuzzyMatchUnit struct {
	name    string
	config  FuzzyMatchConfig
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// FuzzyMatchConfig configures similarity grading.
type FuzzyMatchConfig struct {
	// Algorithm selects the distance metric. Only "levenshtein" is supported.
	Algorithm string `yaml:"algorithm" json:"algorithm" validate:"required,oneof=levenshtein"`

	// Threshold is the minimum similarity, in [0, 1], for a correct grade.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"min=0.0,max=1.0"`

	// CaseSensitive disables Unicode case folding.
	CaseSensitive bool `yaml:"case_sensitive" json:"case_sensitive"`
}

// DefaultFuzzyMatchConfig returns Levenshtein grading with a 0.8 threshold,
// case-insensitive.
func DefaultFuzzyMatchConfig() FuzzyMatchConfig {
	return FuzzyMatchConfig{
		Algorithm:     "levenshtein",
		Threshold:     0.8,
		CaseSensitive: false,
	}
}

// NewFuzzyMatchUnit creates a new FuzzyMatchUnit. metrics may be nil.
func NewFuzzyMatchUnit(name string, config FuzzyMatchConfig, metrics ports.MetricsCollector) (*FuzzyMatchUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &FuzzyMatchUnit{
		name:    name,
		config:  config,
		metrics: metricsOrNop(metrics),
		tracer:  otel.Tracer("fuzzy-match-unit"),
	}, nil
}

// Name returns the unit's identifier.
func (u *FuzzyMatchUnit) Name() string { return u.name }

// Execute reads domain.KeyAggregation and domain.KeyTask and writes
// domain.KeyGrade.
func (u *FuzzyMatchUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "FuzzyMatchUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeFuzzyMatch),
			attribute.String("unit.id", u.name),
			attribute.String("config.algorithm", u.config.Algorithm),
			attribute.Float64("config.threshold", u.config.Threshold),
			attribute.Bool("config.case_sensitive", u.config.CaseSensitive),
		),
	)
	defer span.End()

	start := time.Now()
	defer observe(u.metrics, TypeFuzzyMatch, u.name, start)

	in, ok, err := readGradeInputs(u.name, state, span)
	if err != nil || !ok {
		return state, err
	}

	grade := domain.Grade{Grader: u.name}
	if !in.sentinel {
		grade.Score = similarity(u.prepareString(in.candidate), u.prepareString(in.reference))
		grade.Correct = grade.Score >= u.config.Threshold
	}

	span.SetAttributes(
		attribute.Bool("grade.correct", grade.Correct),
		attribute.Float64("grade.score", grade.Score),
	)

	return domain.With(state, domain.KeyGrade, grade), nil
}

func (u *FuzzyMatchUnit) prepareString(s string) string {
	s = strings.TrimSpace(s)
	if !u.config.CaseSensitive {
		s = cases.Fold().String(s)
	}
	return s
}

// similarity returns the normalized Levenshtein similarity of two strings,
// measured in runes. Two empty strings are identical.
func similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	maxLen := max(utf8.RuneCountInString(s1), utf8.RuneCountInString(s2))
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(s1, s2)
	return max(0, 1.0-float64(distance)/float64(maxLen))
}

// Validate checks the configuration.
func (u *FuzzyMatchUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DecodeFuzzyMatchConfig builds a config from graph parameters on top of
// the defaults.
func DecodeFuzzyMatchConfig(params map[string]any) (FuzzyMatchConfig, error) {
	cfg := DefaultFuzzyMatchConfig()
	if err := decodeParams(params, &cfg); err != nil {
		return FuzzyMatchConfig{}, err
	}
	return cfg, nil
}

// NewFuzzyMatchFromConfig creates a FuzzyMatchUnit from graph parameters.
func NewFuzzyMatchFromConfig(id string, params map[string]any, metrics ports.MetricsCollector) (ports.Unit, error) {
	cfg, err := DecodeFuzzyMatchConfig(params)
	if err != nil {
		return nil, err
	}
	return NewFuzzyMatchUnit(id, cfg, metrics)
}
