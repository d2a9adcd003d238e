package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-concord/internal/consensus"
	"github.com/ahrav/go-concord/internal/domain"
)

func newAggregateCmd(c *cli) *cobra.Command {
	var methods []string

	cmd := &cobra.Command{
		Use:   "aggregate [file]",
		Short: "Build the consensus answer for a set of reasoning paths",
		Long: `Reads reasoning paths as YAML or JSON, either a list or a mapping with a
"paths" key, and prints the aggregation result. Paths without a path_id are
numbered from 1 in input order. With no file, or "-", input is read from
stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := readPaths(cmd, args)
			if err != nil {
				return err
			}

			var opts []consensus.Option
			if len(methods) > 0 {
				strategies, err := strategiesFor(methods)
				if err != nil {
					return err
				}
				opts = append(opts, consensus.WithStrategies(strategies...))
			}

			result := consensus.NewSelfConsistency(opts...).Aggregate(paths)
			c.logger.Debug("aggregated paths",
				zap.Int("paths", len(paths)),
				zap.String("method", result.Method.String()),
				zap.Float64("confidence", result.Confidence))
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringSliceVar(&methods, "methods", nil,
		"voting strategies in tie-break order (majority_vote, confidence_weighted, semantic_similarity)")
	return cmd
}

// readPaths decodes the reasoning paths named by args and numbers any path
// that arrived without an ID.
func readPaths(cmd *cobra.Command, args []string) ([]domain.ReasoningPath, error) {
	data, err := readInput(cmd, args)
	if err != nil {
		return nil, err
	}
	paths, err := decodeList[domain.ReasoningPath](data, "paths")
	if err != nil {
		return nil, err
	}
	for i := range paths {
		if paths[i].PathID == 0 {
			paths[i].PathID = i + 1
		}
	}
	return paths, nil
}

func strategiesFor(names []string) ([]consensus.Strategy, error) {
	strategies := make([]consensus.Strategy, 0, len(names))
	for _, name := range names {
		s, ok := consensus.StrategyFor(domain.Method(name))
		if !ok {
			return nil, fmt.Errorf("unknown voting method %q", name)
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}
