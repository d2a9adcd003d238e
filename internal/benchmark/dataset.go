// Package benchmark builds synthetic task batches with canned reasoning
// paths, for exercising execution graphs without a live generator.
package benchmark

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/infrastructure/generator"
	"github.com/ahrav/go-concord/internal/domain"
)

// File names written by Dataset.WriteDir.
const (
	TasksFile    = "tasks.yaml"
	FixturesFile = "fixtures.yaml"
)

// Dataset is a batch of tasks plus the fixture paths that answer them.
type Dataset struct {
	Metadata Metadata           `yaml:"metadata" json:"metadata"`
	Tasks    []domain.Task      `yaml:"tasks" json:"tasks"`
	Fixtures generator.Fixtures `yaml:"fixtures" json:"fixtures"`
}

// Metadata records how a dataset was generated.
type Metadata struct {
	Name         string  `yaml:"name" json:"name"`
	Version      string  `yaml:"version" json:"version"`
	Description  string  `yaml:"description" json:"description"`
	Seed         int64   `yaml:"seed" json:"seed"`
	Size         int     `yaml:"task_count" json:"task_count"`
	PathsPerTask int     `yaml:"paths_per_task" json:"paths_per_task"`
	Agreement    float64 `yaml:"agreement" json:"agreement"`
	FailureRate  float64 `yaml:"failure_rate" json:"failure_rate"`
}

// Validate checks that task IDs are unique, every task can be graded, and
// every task has at least one fixture path.
func (d *Dataset) Validate() error {
	if len(d.Tasks) == 0 {
		return errors.New("dataset has no tasks")
	}
	if d.Metadata.Size != len(d.Tasks) {
		return fmt.Errorf("metadata size %d does not match task count %d", d.Metadata.Size, len(d.Tasks))
	}

	seen := make(map[string]struct{}, len(d.Tasks))
	for i, task := range d.Tasks {
		if task.ID == "" {
			return fmt.Errorf("task %d: missing ID", i)
		}
		if _, dup := seen[task.ID]; dup {
			return fmt.Errorf("task %d: duplicate ID %s", i, task.ID)
		}
		seen[task.ID] = struct{}{}

		if task.Problem == "" {
			return fmt.Errorf("task %s: missing problem", task.ID)
		}
		if task.ExpectedAnswer == "" {
			return fmt.Errorf("task %s: missing expected answer", task.ID)
		}
		if len(d.Fixtures.Tasks[task.ID]) == 0 {
			return fmt.Errorf("task %s: no fixture paths", task.ID)
		}
	}
	return nil
}

// Statistics summarizes a dataset.
type Statistics struct {
	TotalTasks    int            `json:"total_tasks"`
	CategoryCount map[string]int `json:"category_count"`
	TotalPaths    int            `json:"total_paths"`
	FailedPaths   int            `json:"failed_paths"`
	// Agreement is the share of non-failed paths whose answer equals the
	// expected answer.
	Agreement float64 `json:"agreement"`
}

// ComputeStatistics analyzes d.
func ComputeStatistics(d *Dataset) Statistics {
	stats := Statistics{
		TotalTasks:    len(d.Tasks),
		CategoryCount: make(map[string]int),
	}

	var answered, agreeing int
	for _, task := range d.Tasks {
		category := task.Category
		if category == "" {
			category = "unspecified"
		}
		stats.CategoryCount[category]++

		for _, p := range d.Fixtures.Tasks[task.ID] {
			stats.TotalPaths++
			if p.Failed {
				stats.FailedPaths++
				continue
			}
			answered++
			if p.Answer == task.ExpectedAnswer {
				agreeing++
			}
		}
	}

	if answered > 0 {
		stats.Agreement = float64(agreeing) / float64(answered)
	}
	return stats
}

// WriteDir writes the tasks and fixtures as two YAML files in dir, the
// layout the run command reads.
func (d *Dataset) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := writeYAML(filepath.Join(dir, TasksFile), d.Tasks); err != nil {
		return err
	}
	return writeYAML(filepath.Join(dir, FixturesFile), d.Fixtures)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
