package consensus

import (
	"strings"
)

// Fallback answers returned by ExtractFinalAnswer.
const (
	NoClearAnswer      = "No clear answer"
	NoClearAnswerFound = "No clear answer found"
)

// answerMarkers are checked in order; the first one present in a line wins.
var answerMarkers = []string{"answer:", "final answer:", "result:", "solution:"}

// preambleWords mark lines that narrate steps rather than conclude.
var preambleWords = []string{"Step", "First", "Next"}

// confidenceIndicators are phrases that suggest a reasoning trace arrived at
// a worked conclusion.
var confidenceIndicators = []string{
	"step by step", "therefore", "because", "so", "thus",
	"final answer", "result", "solution",
}

// ExtractFinalAnswer pulls the final answer out of free-form reasoning.
// The first line containing an answer marker ("answer:", "result:", ...)
// yields the lower-cased text after the marker. Without a marker, the last
// non-blank line that does not start with Step, First or Next is used.
func ExtractFinalAnswer(reasoning string) string {
	lines := strings.Split(reasoning, "\n")

	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, marker := range answerMarkers {
			if _, after, found := strings.Cut(lower, marker); found {
				if answer := strings.TrimSpace(after); answer != "" {
					return answer
				}
				return NoClearAnswer
			}
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || hasAnyPrefix(trimmed, preambleWords) {
			continue
		}
		return trimmed
	}

	return NoClearAnswerFound
}

// EstimateConfidence scores reasoning text by the share of confidence
// indicators it contains. Empty text and text mentioning an error score 0.
func EstimateConfidence(reasoning string) float64 {
	lower := strings.ToLower(reasoning)
	if lower == "" || strings.Contains(lower, "error") {
		return 0
	}

	hits := 0
	for _, indicator := range confidenceIndicators {
		if strings.Contains(lower, indicator) {
			hits++
		}
	}
	return min(float64(hits)/float64(len(confidenceIndicators)), 1)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
