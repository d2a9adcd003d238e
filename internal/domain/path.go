package domain

import "time"

// ErrorAnswer is the answer recorded for a reasoning path whose generation
// failed. Such paths are excluded from every aggregation formula.
const ErrorAnswer = "Error"

// ReasoningPath represents one independently produced attempt at solving a
// problem. Paths are created by a path generator and are treated as
// immutable values afterwards.
type ReasoningPath struct {
	// PathID is the 1-based position of the path within its batch.
	PathID int `json:"path_id" yaml:"path_id"`

	// Answer is the free-form final answer extracted from the reasoning.
	// It equals ErrorAnswer when the attempt failed.
	Answer string `json:"final_answer" yaml:"final_answer"`

	// Confidence is the generator's confidence in Answer, nominally in
	// [0, 1]. Values outside that range are carried as-is.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Approach names the prompt variation that produced the path.
	Approach string `json:"prompt_variation,omitempty" yaml:"prompt_variation,omitempty"`

	// Reasoning holds the raw reasoning text, if any.
	Reasoning string `json:"full_reasoning,omitempty" yaml:"full_reasoning,omitempty"`
}

// IsError reports whether the path represents a failed generation.
func (p ReasoningPath) IsError() bool { return p.Answer == ErrorAnswer }

// ValidPaths returns the paths that are not failed generations, preserving
// their input order. The input slice is not modified.
func ValidPaths(paths []ReasoningPath) []ReasoningPath {
	valid := make([]ReasoningPath, 0, len(paths))
	for _, p := range paths {
		if !p.IsError() {
			valid = append(valid, p)
		}
	}
	return valid
}

// Task is a single problem submitted to the engine.
type Task struct {
	// ID uniquely identifies the task within a batch.
	ID string `json:"id" yaml:"id"`

	// Category is an optional grouping such as "math" or "logic".
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Problem is the problem statement.
	Problem string `json:"problem" yaml:"problem"`

	// ExpectedAnswer is the reference answer used for grading. It may be
	// empty when no ground truth is known.
	ExpectedAnswer string `json:"expected_answer,omitempty" yaml:"expected_answer,omitempty"`
}

// Grade records whether a consensus answer matched the expected answer.
type Grade struct {
	// Correct is true when the grader accepted the answer.
	Correct bool `json:"is_correct"`

	// Score is the grader's similarity score in [0, 1].
	Score float64 `json:"score"`

	// Grader names the unit that produced the grade.
	Grader string `json:"grader"`
}

// TaskResult is the outcome of running one task through the execution
// graph. Fields stay at their zero value when the corresponding unit did not
// run.
type TaskResult struct {
	TaskID         string             `json:"task_id"`
	Problem        string             `json:"problem"`
	ExpectedAnswer string             `json:"expected_answer,omitempty"`
	Paths          []ReasoningPath    `json:"reasoning_paths,omitempty"`
	Aggregation    *AggregationResult `json:"aggregation,omitempty"`
	Consistency    *ConsistencyReport `json:"consistency,omitempty"`
	TreeQuality    *TreeQuality       `json:"tree_quality,omitempty"`
	Grade          *Grade             `json:"grade,omitempty"`

	// Error is set when the task failed; the batch keeps running.
	Error string `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// IsCorrect reports whether the task was graded as correct.
func (r TaskResult) IsCorrect() bool { return r.Grade != nil && r.Grade.Correct }

// ConsensusConfidence returns the aggregation confidence, or 0 when the
// task was not aggregated.
func (r TaskResult) ConsensusConfidence() float64 {
	if r.Aggregation == nil {
		return 0
	}
	return r.Aggregation.Confidence
}

// ConsistencyScore returns the consistency score, or 0 when consistency
// was not evaluated.
func (r TaskResult) ConsistencyScore() float64 {
	if r.Consistency == nil {
		return 0
	}
	return r.Consistency.Score
}
