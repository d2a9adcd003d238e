// Package generator provides ports.PathGenerator implementations.
package generator

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/internal/consensus"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/logging"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.PathGenerator = (*FixtureGenerator)(nil)

// Name identifies the fixture generator in errors and logs.
const Name = "fixture"

// PromptVariations are the approaches assigned to successive paths when a
// fixture does not name its own.
var PromptVariations = []string{
	"Think through this step by step:",
	"Let me solve this carefully:",
	"Breaking this down systematically:",
	"Analyzing this problem:",
}

// Fixtures holds canned reasoning traces keyed by task ID.
type Fixtures struct {
	Tasks map[string][]FixturePath `yaml:"tasks" validate:"dive,keys,required,endkeys,dive"`
}

// FixturePath is one canned reasoning trace. Answer and Confidence are
// derived from Reasoning when left unset.
type FixturePath struct {
	Approach   string   `yaml:"approach,omitempty"`
	Reasoning  string   `yaml:"reasoning,omitempty" validate:"max=1048576"`
	Answer     string   `yaml:"answer,omitempty"`
	Confidence *float64 `yaml:"confidence,omitempty" validate:"omitempty,min=0,max=1"`

	// Failed makes the path come back as a failed generation.
	Failed bool `yaml:"failed,omitempty"`
}

var validate = validator.New()

// LoadFixtures decodes fixtures from YAML. Unknown fields are rejected.
func LoadFixtures(r io.Reader) (Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return Fixtures{}, fmt.Errorf("%w: %w", ports.ErrInvalidFixture, err)
	}
	if err := validate.Struct(fx); err != nil {
		return Fixtures{}, fmt.Errorf("%w: %w", ports.ErrInvalidFixture, err)
	}
	return fx, nil
}

// LoadFixturesFile reads fixtures from a YAML file.
func LoadFixturesFile(path string) (Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixtures{}, ports.NewConfigError(path, err)
	}
	defer f.Close()

	fx, err := LoadFixtures(f)
	if err != nil {
		return Fixtures{}, ports.NewConfigError(path, err)
	}
	return fx, nil
}

// FixtureGenerator serves reasoning paths from Fixtures. It is read-only
// after construction and safe for concurrent use.
type FixtureGenerator struct {
	tasks  map[string][]FixturePath
	logger *zap.Logger
}

// Option configures a FixtureGenerator.
type Option func(*FixtureGenerator)

// WithLogger sets the logger used to report unknown tasks.
func WithLogger(l *zap.Logger) Option {
	return func(g *FixtureGenerator) { g.logger = logging.OrNop(l) }
}

// NewFixtureGenerator creates a generator over a copy of fx.
func NewFixtureGenerator(fx Fixtures, opts ...Option) *FixtureGenerator {
	tasks := make(map[string][]FixturePath, len(fx.Tasks))
	for id, paths := range fx.Tasks {
		tasks[id] = append([]FixturePath(nil), paths...)
	}

	g := &FixtureGenerator{tasks: tasks, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns n paths for task. Fixture paths are served in order;
// requests for more paths than the fixture holds, and requests for unknown
// tasks, are answered with failed paths so that a batch keeps running.
func (g *FixtureGenerator) Generate(ctx context.Context, task domain.Task, n int) ([]domain.ReasoningPath, error) {
	if n < 1 {
		return nil, ports.NewGeneratorError(Name, task.ID, ports.ErrInvalidPathCount)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fixture, ok := g.tasks[task.ID]
	if !ok {
		g.logger.Warn("no fixture for task; returning failed paths",
			zap.String("task_id", task.ID),
			zap.Int("paths", n),
		)
	} else if len(fixture) < n {
		g.logger.Debug("fixture has fewer paths than requested",
			zap.String("task_id", task.ID),
			zap.Int("available", len(fixture)),
			zap.Int("requested", n),
		)
	}

	paths := make([]domain.ReasoningPath, n)
	for i := range paths {
		approach := PromptVariations[i%len(PromptVariations)]
		if i >= len(fixture) {
			paths[i] = failedPath(i+1, approach, "no fixture path available")
			continue
		}
		paths[i] = toPath(i+1, approach, fixture[i])
	}
	return paths, nil
}

func toPath(id int, approach string, fp FixturePath) domain.ReasoningPath {
	if fp.Approach != "" {
		approach = fp.Approach
	}
	if fp.Failed {
		return failedPath(id, approach, fp.Reasoning)
	}

	answer := fp.Answer
	if answer == "" {
		answer = consensus.ExtractFinalAnswer(fp.Reasoning)
	}
	confidence := consensus.EstimateConfidence(fp.Reasoning)
	if fp.Confidence != nil {
		confidence = *fp.Confidence
	}

	return domain.ReasoningPath{
		PathID:     id,
		Answer:     answer,
		Confidence: confidence,
		Approach:   approach,
		Reasoning:  fp.Reasoning,
	}
}

func failedPath(id int, approach, reason string) domain.ReasoningPath {
	if reason == "" {
		reason = "generation failed"
	}
	return domain.ReasoningPath{
		PathID:     id,
		Answer:     domain.ErrorAnswer,
		Confidence: 0,
		Approach:   approach,
		Reasoning:  "Error: " + reason,
	}
}
