package domain

// Method identifies how an AggregationResult was produced.
type Method string

// Aggregation methods. The three voting strategies are always evaluated in
// the order they are declared here.
const (
	// MethodMajorityVote picks the most frequent exact answer.
	MethodMajorityVote Method = "majority_vote"

	// MethodConfidenceWeighted picks the answer with the highest summed
	// confidence.
	MethodConfidenceWeighted Method = "confidence_weighted"

	// MethodSemanticSimilarity picks the largest group of answers that share
	// a normalized key.
	MethodSemanticSimilarity Method = "semantic_similarity"

	// MethodNone tags the result produced for an empty input.
	MethodNone Method = "none"

	// MethodError tags the result produced when every path failed.
	MethodError Method = "error"
)

// String returns the string representation of the method.
func (m Method) String() string { return string(m) }

// Sentinel answers returned for degenerate inputs.
const (
	NoPathsAnswer   = "No paths provided"
	AllFailedAnswer = "All paths failed"
	NoPathsAnalysis = "No paths to evaluate"
	TooFewAnalysis  = "Not enough valid paths for consistency check"
)

// MinConsistencyPaths is the number of valid paths required before
// consistency can be measured.
const MinConsistencyPaths = 2

// Details carries the method-specific breakdown behind an aggregation.
// It is a closed set: VoteDetails, WeightDetails and SimilarityDetails are
// the only implementations.
type Details interface {
	// Method returns the strategy that produced these details.
	Method() Method
	details()
}

// VoteCount is the number of paths that gave a particular answer.
type VoteCount struct {
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

// VoteDetails is the frequency table behind a majority vote, in the order
// answers were first encountered.
type VoteDetails struct {
	Votes []VoteCount `json:"vote_distribution"`
}

// Method implements Details.
func (VoteDetails) Method() Method { return MethodMajorityVote }
func (VoteDetails) details()       {}

// AnswerWeight is the summed confidence of every path that gave an answer.
type AnswerWeight struct {
	Answer string  `json:"answer"`
	Weight float64 `json:"weight"`
}

// WeightDetails is the weight table behind a confidence-weighted vote, in
// the order answers were first encountered.
type WeightDetails struct {
	Weights []AnswerWeight `json:"weight_distribution"`
}

// Method implements Details.
func (WeightDetails) Method() Method { return MethodConfidenceWeighted }
func (WeightDetails) details()       {}

// GroupSize is the number of paths whose answers normalized to Key.
type GroupSize struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

// SimilarityDetails lists the similarity groups in creation order.
type SimilarityDetails struct {
	Groups []GroupSize `json:"similar_groups"`
}

// Method implements Details.
func (SimilarityDetails) Method() Method { return MethodSemanticSimilarity }
func (SimilarityDetails) details()       {}

// AggregationResult is the consensus built from a set of reasoning paths.
// A fresh value is produced for every aggregation and never mutated.
type AggregationResult struct {
	// FinalAnswer is the consensus answer, or a sentinel for degenerate input.
	FinalAnswer string `json:"final_answer"`

	// Confidence is the winning strategy's confidence, in [0, 1] whenever
	// the input confidences are.
	Confidence float64 `json:"confidence"`

	// Method is the strategy that won, or MethodNone / MethodError.
	Method Method `json:"method"`

	// Details holds the winning strategy's breakdown. It is nil for
	// sentinel results.
	Details Details `json:"details,omitempty"`

	// AllAnswers lists every valid answer that was considered, in input order.
	AllAnswers []string `json:"all_answers,omitempty"`

	// PathCount is len(AllAnswers).
	PathCount int `json:"path_count"`
}

// IsSentinel reports whether the result was produced for degenerate input.
func (r AggregationResult) IsSentinel() bool {
	return r.Method == MethodNone || r.Method == MethodError
}

// Aggregator builds a consensus answer from reasoning paths.
// Implementations must be pure: the same input yields the same output and
// no failure is ever signalled, degenerate input produces a sentinel result.
type Aggregator interface {
	// Aggregate combines the paths into a single AggregationResult.
	//
	// Example:
	//
	//	paths := []ReasoningPath{{PathID: 1, Answer: "A", Confidence: 0.7}}
	//	result := aggregator.Aggregate(paths)
	Aggregate(paths []ReasoningPath) AggregationResult
}

// ConsistencyBreakdown explains how a consistency score was computed.
type ConsistencyBreakdown struct {
	TotalPaths            int     `json:"total_paths"`
	ValidPaths            int     `json:"valid_paths"`
	UniqueAnswers         int     `json:"unique_answers"`
	AnswerConsistency     float64 `json:"answer_consistency"`
	ConfidenceConsistency float64 `json:"confidence_consistency"`
	AvgConfidence         float64 `json:"avg_confidence"`
}

// ConsistencyReport measures how much a set of reasoning paths agree.
// Exactly one of Analysis and Breakdown is set.
type ConsistencyReport struct {
	// Score is the overall consistency in [0, 1].
	Score float64 `json:"consistency_score"`

	// Analysis explains why no breakdown could be computed.
	Analysis string `json:"analysis,omitempty"`

	// Breakdown holds the sub-scores when at least two valid paths exist.
	Breakdown *ConsistencyBreakdown `json:"breakdown,omitempty"`
}

// TreeQuality summarizes a batch of reasoning paths.
type TreeQuality struct {
	Diversity     float64 `json:"diversity"`
	AvgConfidence float64 `json:"avg_confidence"`
	ErrorRate     float64 `json:"error_rate"`
	TotalPaths    int     `json:"total_paths"`
}
