package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-concord/internal/benchmark"
)

func newDatasetCmd(c *cli) *cobra.Command {
	opts := benchmark.DefaultOptions()
	var outDir string

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Generate a synthetic task batch with fixture paths",
		Long: `Generates arithmetic tasks with expected answers plus fixture reasoning
paths for each, writes them to tasks.yaml and fixtures.yaml in the output
directory and prints the dataset statistics. The files can be passed
straight to "concord run".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := benchmark.Generate(opts)
			if err != nil {
				return err
			}
			if err := ds.Validate(); err != nil {
				return err
			}
			if err := ds.WriteDir(outDir); err != nil {
				return err
			}

			stats := benchmark.ComputeStatistics(ds)
			c.logger.Info("dataset written",
				zap.String("dir", outDir),
				zap.Int("tasks", stats.TotalTasks),
				zap.Int("paths", stats.TotalPaths))
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Size, "size", opts.Size, "number of tasks")
	f.IntVar(&opts.PathsPerTask, "paths", opts.PathsPerTask, "fixture paths per task")
	f.Float64Var(&opts.Agreement, "agreement", opts.Agreement, "probability that a path gives the expected answer")
	f.Float64Var(&opts.FailureRate, "failure-rate", opts.FailureRate, "probability that a path fails")
	f.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	f.StringVar(&outDir, "out-dir", ".", "directory for tasks.yaml and fixtures.yaml")
	return cmd
}
