// Package tracking keeps a history of batch performance and decides when a
// prompt revision is due.
package tracking

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
)

// DefaultThreshold is the accuracy and consistency floor below which
// ShouldOptimize reports true.
const DefaultThreshold = 0.6

// Metrics summarizes a batch of task results.
type Metrics struct {
	Accuracy      float64 `json:"accuracy"`
	AvgConfidence float64 `json:"avg_confidence"`
	Consistency   float64 `json:"consistency"`
	TotalTasks    int     `json:"total_tasks"`
}

// PerformanceRecord is one tracked batch.
type PerformanceRecord struct {
	Version   string    `json:"prompt_version"`
	Timestamp time.Time `json:"timestamp"`
	Metrics   Metrics   `json:"metrics"`
}

// CalculateMetrics computes accuracy, mean consensus confidence and mean
// consistency over results. Failed and ungraded tasks count as incorrect and
// contribute zero confidence and consistency. An empty batch yields zeros.
func CalculateMetrics(results []domain.TaskResult) Metrics {
	if len(results) == 0 {
		return Metrics{}
	}

	var correct int
	var confidence, consistency float64
	for _, r := range results {
		if r.IsCorrect() {
			correct++
		}
		confidence += r.ConsensusConfidence()
		consistency += r.ConsistencyScore()
	}

	n := float64(len(results))
	return Metrics{
		Accuracy:      float64(correct) / n,
		AvgConfidence: confidence / n,
		Consistency:   consistency / n,
		TotalTasks:    len(results),
	}
}

// ShouldOptimize reports whether accuracy or consistency fell below
// threshold, along with a human-readable reason.
func ShouldOptimize(m Metrics, threshold float64) (bool, string) {
	if m.Accuracy < threshold || m.Consistency < threshold {
		return true, fmt.Sprintf("Performance below threshold - Accuracy: %.2f, Consistency: %.2f", m.Accuracy, m.Consistency)
	}
	return false, "Performance acceptable"
}

// Tracker records the performance of successive prompt versions. It is safe
// for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	history []PerformanceRecord
	now     func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Track computes the metrics of results and appends them to the history
// under version.
func (t *Tracker) Track(version string, results []domain.TaskResult) PerformanceRecord {
	rec := PerformanceRecord{
		Version:   version,
		Timestamp: t.now(),
		Metrics:   CalculateMetrics(results),
	}

	t.mu.Lock()
	t.history = append(t.history, rec)
	t.mu.Unlock()

	return rec
}

// Best returns the record with the highest accuracy. The earliest record
// wins ties. It returns false when nothing has been tracked.
func (t *Tracker) Best() (PerformanceRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) == 0 {
		return PerformanceRecord{}, false
	}
	best := t.history[0]
	for _, rec := range t.history[1:] {
		if rec.Metrics.Accuracy > best.Metrics.Accuracy {
			best = rec
		}
	}
	return best, true
}

// History returns a copy of every tracked record in insertion order.
func (t *Tracker) History() []PerformanceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.history)
}
