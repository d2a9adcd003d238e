package consensus

import (
	"github.com/ahrav/go-concord/internal/domain"
)

var _ domain.Aggregator = (*SelfConsistency)(nil)

// SelfConsistency builds a consensus answer by running every configured
// strategy over the valid paths and keeping the most confident proposal.
// The zero value is not usable; construct it with NewSelfConsistency.
type SelfConsistency struct {
	strategies []Strategy
}

// Option configures a SelfConsistency aggregator.
type Option func(*SelfConsistency)

// WithStrategies replaces the default strategy list. Order matters:
// earlier strategies win confidence ties. An empty list is ignored.
func WithStrategies(strategies ...Strategy) Option {
	return func(sc *SelfConsistency) {
		if len(strategies) > 0 {
			sc.strategies = append([]Strategy(nil), strategies...)
		}
	}
}

// NewSelfConsistency creates an aggregator that evaluates majority vote,
// confidence-weighted vote and semantic similarity, in that order.
func NewSelfConsistency(opts ...Option) *SelfConsistency {
	sc := &SelfConsistency{strategies: DefaultStrategies()}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Methods returns the configured methods in evaluation order.
func (sc *SelfConsistency) Methods() []domain.Method {
	methods := make([]domain.Method, len(sc.strategies))
	for i, s := range sc.strategies {
		methods[i] = s.Method
	}
	return methods
}

// Aggregate implements domain.Aggregator. It never fails: empty input yields
// the "No paths provided" sentinel and input made only of failed paths
// yields "All paths failed".
func (sc *SelfConsistency) Aggregate(paths []domain.ReasoningPath) domain.AggregationResult {
	if len(paths) == 0 {
		return domain.AggregationResult{
			FinalAnswer: domain.NoPathsAnswer,
			Confidence:  0,
			Method:      domain.MethodNone,
		}
	}

	valid := domain.ValidPaths(paths)
	if len(valid) == 0 {
		return domain.AggregationResult{
			FinalAnswer: domain.AllFailedAnswer,
			Confidence:  0,
			Method:      domain.MethodError,
		}
	}

	var (
		best       Candidate
		bestMethod domain.Method
	)
	for i, s := range sc.strategies {
		c := s.Vote(valid)
		if i == 0 || c.Confidence > best.Confidence {
			best, bestMethod = c, s.Method
		}
	}

	answers := make([]string, len(valid))
	for i, p := range valid {
		answers[i] = p.Answer
	}

	return domain.AggregationResult{
		FinalAnswer: best.Answer,
		Confidence:  best.Confidence,
		Method:      bestMethod,
		Details:     best.Details,
		AllAnswers:  answers,
		PathCount:   len(valid),
	}
}

// Aggregate runs the default self-consistency aggregator over paths.
func Aggregate(paths []domain.ReasoningPath) domain.AggregationResult {
	return defaultAggregator.Aggregate(paths)
}

// defaultAggregator holds no mutable state and is safe to share.
var defaultAggregator = NewSelfConsistency()
