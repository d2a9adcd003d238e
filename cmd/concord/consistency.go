package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-concord/internal/consensus"
	"github.com/ahrav/go-concord/internal/domain"
)

type consistencyOutput struct {
	Consistency domain.ConsistencyReport `json:"consistency"`
	TreeQuality domain.TreeQuality       `json:"tree_quality"`
}

func newConsistencyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "consistency [file]",
		Short: "Score how consistent a set of reasoning paths is",
		Long: `Reads reasoning paths in the same format as aggregate and prints the
consistency report together with the tree quality of the path set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := readPaths(cmd, args)
			if err != nil {
				return err
			}

			out := consistencyOutput{
				Consistency: consensus.EvaluateConsistency(paths),
				TreeQuality: consensus.EvaluateTreeQuality(paths),
			}
			c.logger.Debug("evaluated consistency",
				zap.Int("paths", len(paths)),
				zap.Float64("score", out.Consistency.Score))
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
