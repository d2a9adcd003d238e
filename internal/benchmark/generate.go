package benchmark

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-concord/infrastructure/generator"
	"github.com/ahrav/go-concord/internal/domain"
)

// Difficulty levels and the operand range each one draws from.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

var operandRanges = map[string][2]int{
	DifficultyEasy:   {1, 10},
	DifficultyMedium: {10, 50},
	DifficultyHard:   {50, 100},
}

var difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Options controls dataset generation.
type Options struct {
	// Size is the number of tasks.
	Size int `validate:"min=1,max=100000"`
	// PathsPerTask is the number of fixture paths per task.
	PathsPerTask int `validate:"min=1,max=1000"`
	// Agreement is the probability that a non-failed path gives the
	// expected answer.
	Agreement float64 `validate:"min=0,max=1"`
	// FailureRate is the probability that a path is a failed generation.
	FailureRate float64 `validate:"min=0,max=1"`
	// Seed makes generation reproducible.
	Seed int64
}

// DefaultOptions returns a small, mostly agreeing dataset.
func DefaultOptions() Options {
	return Options{Size: 50, PathsPerTask: 5, Agreement: 0.7, FailureRate: 0.05, Seed: 1}
}

// template describes one kind of arithmetic problem.
type template struct {
	category string
	format   string
	operands func(rng *rand.Rand, difficulty string) (int, int)
	solve    func(a, b int) int
	verb     string
}

var templates = []template{
	{category: "addition", format: "What is %d + %d?", operands: mathOperands, solve: func(a, b int) int { return a + b }, verb: "add"},
	{category: "multiplication", format: "What is %d × %d?", operands: mathOperands, solve: func(a, b int) int { return a * b }, verb: "multiply"},
	{
		category: "word_problem_addition",
		format:   "If you have %d items and get %d more, how many do you have in total?",
		operands: mathOperands,
		solve:    func(a, b int) int { return a + b },
		verb:     "add",
	},
	{category: "subtraction", format: "What is %d - %d?", operands: subtractionOperands, solve: func(a, b int) int { return a - b }, verb: "subtract"},
	{category: "division", format: "What is %d ÷ %d?", operands: divisionOperands, solve: func(a, b int) int { return a / b }, verb: "divide"},
}

func mathOperands(rng *rand.Rand, difficulty string) (int, int) {
	r := operandRanges[difficulty]
	return r[0] + rng.Intn(r[1]-r[0]+1), r[0] + rng.Intn(r[1]-r[0]+1)
}

// subtractionOperands keeps the result non-negative.
func subtractionOperands(rng *rand.Rand, difficulty string) (int, int) {
	a, b := mathOperands(rng, difficulty)
	if b > a {
		a, b = b, a
	}
	return a, b
}

// divisionOperands yields a whole-number quotient.
func divisionOperands(rng *rand.Rand, difficulty string) (int, int) {
	quotient, divisor := mathOperands(rng, difficulty)
	return quotient * divisor, divisor
}

// Generate builds a dataset of arithmetic tasks. Each task gets
// PathsPerTask fixture paths; a path fails with probability FailureRate,
// and otherwise gives the right answer with probability Agreement or a
// near miss. The same options always produce the same dataset.
func Generate(opts Options) (*Dataset, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	ds := &Dataset{
		Metadata: Metadata{
			Name:         "Synthetic arithmetic benchmark",
			Version:      "1.0.0",
			Description:  "Generated arithmetic tasks with canned reasoning paths.",
			Seed:         opts.Seed,
			Size:         opts.Size,
			PathsPerTask: opts.PathsPerTask,
			Agreement:    opts.Agreement,
			FailureRate:  opts.FailureRate,
		},
		Tasks:    make([]domain.Task, 0, opts.Size),
		Fixtures: generator.Fixtures{Tasks: make(map[string][]generator.FixturePath, opts.Size)},
	}

	for i := range opts.Size {
		tmpl := templates[rng.Intn(len(templates))]
		difficulty := difficulties[rng.Intn(len(difficulties))]
		a, b := tmpl.operands(rng, difficulty)
		correct := tmpl.solve(a, b)

		task := domain.Task{
			ID:             fmt.Sprintf("q%d", i),
			Category:       tmpl.category,
			Problem:        fmt.Sprintf(tmpl.format, a, b),
			ExpectedAnswer: strconv.Itoa(correct),
		}
		ds.Tasks = append(ds.Tasks, task)
		ds.Fixtures.Tasks[task.ID] = generatePaths(rng, opts, tmpl, a, b, correct)
	}

	return ds, nil
}

func generatePaths(rng *rand.Rand, opts Options, tmpl template, a, b, correct int) []generator.FixturePath {
	paths := make([]generator.FixturePath, 0, opts.PathsPerTask)
	for range opts.PathsPerTask {
		if rng.Float64() < opts.FailureRate {
			paths = append(paths, generator.FixturePath{Failed: true})
			continue
		}

		answer := correct
		if rng.Float64() >= opts.Agreement {
			answer = nearMiss(rng, correct)
		}

		// Half the paths carry an explicit confidence; the rest leave it to
		// be estimated from the reasoning text.
		var confidence *float64
		if rng.Intn(2) == 0 {
			c := math.Round((0.5+rng.Float64()/2)*100) / 100
			confidence = &c
		}

		paths = append(paths, generator.FixturePath{
			Reasoning:  fmt.Sprintf("Step 1: %s %d and %d.\nTherefore the answer: %d", tmpl.verb, a, b, answer),
			Answer:     strconv.Itoa(answer),
			Confidence: confidence,
		})
	}
	return paths
}

// nearMiss returns a plausible wrong answer close to correct.
func nearMiss(rng *rand.Rand, correct int) int {
	offset := 1 + rng.Intn(3)
	if rng.Intn(2) == 0 {
		offset = -offset
	}
	return correct + offset
}
