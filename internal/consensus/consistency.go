package consensus

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-concord/internal/domain"
)

// EvaluateConsistency measures how much the reasoning paths agree, both on
// the answer and on their confidence. The score is the mean of:
//
//	answer consistency     = 1 - (unique answers - 1) / valid paths
//	confidence consistency = max(0, 1 - population variance of confidences)
//
// Fewer than two valid paths yield a zero score with an explanatory analysis.
func EvaluateConsistency(paths []domain.ReasoningPath) domain.ConsistencyReport {
	if len(paths) == 0 {
		return domain.ConsistencyReport{Score: 0, Analysis: domain.NoPathsAnalysis}
	}

	valid := domain.ValidPaths(paths)
	if len(valid) < domain.MinConsistencyPaths {
		return domain.ConsistencyReport{Score: 0, Analysis: domain.TooFewAnalysis}
	}

	n := float64(len(valid))
	unique := make(map[string]struct{}, len(valid))
	confidences := make([]float64, len(valid))
	for i, p := range valid {
		unique[p.Answer] = struct{}{}
		confidences[i] = p.Confidence
	}
	mean, variance := stat.PopMeanVariance(confidences, nil)

	answerConsistency := 1 - float64(len(unique)-1)/n
	confidenceConsistency := max(0, 1-variance)

	return domain.ConsistencyReport{
		Score: (answerConsistency + confidenceConsistency) / 2,
		Breakdown: &domain.ConsistencyBreakdown{
			TotalPaths:            len(paths),
			ValidPaths:            len(valid),
			UniqueAnswers:         len(unique),
			AnswerConsistency:     answerConsistency,
			ConfidenceConsistency: confidenceConsistency,
			AvgConfidence:         mean,
		},
	}
}

// EvaluateTreeQuality summarizes a set of reasoning paths: the share of
// distinct successful answers, the mean confidence over all paths and the
// share of failed paths. An empty input reports an error rate of 1.
func EvaluateTreeQuality(paths []domain.ReasoningPath) domain.TreeQuality {
	if len(paths) == 0 {
		return domain.TreeQuality{ErrorRate: 1}
	}

	n := float64(len(paths))
	unique := make(map[string]struct{}, len(paths))
	var (
		sum    float64
		failed int
	)
	for _, p := range paths {
		sum += p.Confidence
		if p.IsError() {
			failed++
			continue
		}
		unique[p.Answer] = struct{}{}
	}

	return domain.TreeQuality{
		Diversity:     float64(len(unique)) / n,
		AvgConfidence: sum / n,
		ErrorRate:     float64(failed) / n,
		TotalPaths:    len(paths),
	}
}
