// Package consensus implements self-consistency aggregation: building one
// consensus answer from several independently produced reasoning paths, and
// measuring how much those paths agree.
//
// Every function in this package is pure and safe for concurrent use.
package consensus

import (
	"github.com/ahrav/go-concord/internal/domain"
)

// Candidate is one strategy's proposal for the consensus answer.
type Candidate struct {
	Answer     string
	Confidence float64
	Details    domain.Details
}

// VoteFunc computes a Candidate from a non-empty slice of valid paths.
type VoteFunc func(valid []domain.ReasoningPath) Candidate

// Strategy pairs a method tag with the function that implements it.
type Strategy struct {
	Method domain.Method
	Vote   VoteFunc
}

// DefaultStrategies returns the three voting strategies in evaluation
// order. Earlier strategies win confidence ties.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Method: domain.MethodMajorityVote, Vote: MajorityVote},
		{Method: domain.MethodConfidenceWeighted, Vote: ConfidenceWeighted},
		{Method: domain.MethodSemanticSimilarity, Vote: SemanticSimilarity},
	}
}

// StrategyFor returns the default strategy tagged with method.
func StrategyFor(method domain.Method) (Strategy, bool) {
	for _, s := range DefaultStrategies() {
		if s.Method == method {
			return s, true
		}
	}
	return Strategy{}, false
}

// orderedTally accumulates values per key while remembering the order in
// which keys were first seen. Ties are always resolved in that order.
type orderedTally[V int | float64] struct {
	keys   []string
	values map[string]V
	first  map[string]string
}

func newOrderedTally[V int | float64](capacity int) *orderedTally[V] {
	return &orderedTally[V]{
		keys:   make([]string, 0, capacity),
		values: make(map[string]V, capacity),
		first:  make(map[string]string, capacity),
	}
}

// add accumulates delta under key; raw is remembered if key is new.
func (t *orderedTally[V]) add(key, raw string, delta V) {
	if _, seen := t.values[key]; !seen {
		t.keys = append(t.keys, key)
		t.first[key] = raw
	}
	t.values[key] += delta
}

// best returns the key with the strictly largest value, preferring the
// earliest key on ties. It returns false for an empty tally.
func (t *orderedTally[V]) best() (string, V, bool) {
	var (
		bestKey string
		bestVal V
	)
	if len(t.keys) == 0 {
		return bestKey, bestVal, false
	}
	bestKey, bestVal = t.keys[0], t.values[t.keys[0]]
	for _, k := range t.keys[1:] {
		if v := t.values[k]; v > bestVal {
			bestKey, bestVal = k, v
		}
	}
	return bestKey, bestVal, true
}

// sum returns the total of all accumulated values.
func (t *orderedTally[V]) sum() V {
	var total V
	for _, k := range t.keys {
		total += t.values[k]
	}
	return total
}

// MajorityVote picks the most frequent exact answer. Its confidence is the
// share of paths that gave that answer.
func MajorityVote(valid []domain.ReasoningPath) Candidate {
	tally := newOrderedTally[int](len(valid))
	for _, p := range valid {
		tally.add(p.Answer, p.Answer, 1)
	}

	answer, count, ok := tally.best()
	if !ok {
		return Candidate{}
	}

	votes := make([]domain.VoteCount, len(tally.keys))
	for i, k := range tally.keys {
		votes[i] = domain.VoteCount{Answer: k, Count: tally.values[k]}
	}

	return Candidate{
		Answer:     answer,
		Confidence: float64(count) / float64(len(valid)),
		Details:    domain.VoteDetails{Votes: votes},
	}
}

// ConfidenceWeighted sums the confidences of each exact answer and picks
// the heaviest. Its confidence is the winner's share of the total weight,
// or 0 when the total weight is not positive.
func ConfidenceWeighted(valid []domain.ReasoningPath) Candidate {
	tally := newOrderedTally[float64](len(valid))
	for _, p := range valid {
		tally.add(p.Answer, p.Answer, p.Confidence)
	}

	answer, weight, ok := tally.best()
	if !ok {
		return Candidate{}
	}

	weights := make([]domain.AnswerWeight, len(tally.keys))
	for i, k := range tally.keys {
		weights[i] = domain.AnswerWeight{Answer: k, Weight: tally.values[k]}
	}

	confidence := 0.0
	if total := tally.sum(); total > 0 {
		confidence = weight / total
	}

	return Candidate{
		Answer:     answer,
		Confidence: confidence,
		Details:    domain.WeightDetails{Weights: weights},
	}
}

// SemanticSimilarity groups answers by their Normalize key and picks the
// largest group. The consensus answer is the first raw answer seen in that
// group; the confidence is the group's share of the paths.
func SemanticSimilarity(valid []domain.ReasoningPath) Candidate {
	tally := newOrderedTally[int](len(valid))
	for _, p := range valid {
		tally.add(Normalize(p.Answer), p.Answer, 1)
	}

	key, size, ok := tally.best()
	if !ok {
		return Candidate{}
	}

	groups := make([]domain.GroupSize, len(tally.keys))
	for i, k := range tally.keys {
		groups[i] = domain.GroupSize{Key: k, Size: tally.values[k]}
	}

	return Candidate{
		Answer:     tally.first[key],
		Confidence: float64(size) / float64(len(valid)),
		Details:    domain.SimilarityDetails{Groups: groups},
	}
}
