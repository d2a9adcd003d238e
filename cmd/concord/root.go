package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/internal/logging"
)

// cli carries state shared by every subcommand.
type cli struct {
	logMode  string
	logLevel string
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "concord",
		Short: "Self-consistency consensus over reasoning paths",
		Long: `Concord combines independent reasoning paths into a single consensus answer
and scores how consistent the paths are.

Commands:
  aggregate    - Build the consensus answer for a set of paths
  consistency  - Score the agreement of a set of paths
  run          - Run a task batch through an execution graph
  dataset      - Generate a synthetic task batch with fixture paths

Results are written to stdout as JSON; logs go to stderr.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := logging.New(c.logMode, c.logLevel)
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = c.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&c.logMode, "log-mode", "development", "log format: development or production")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "minimum log level: debug, info, warn or error")

	root.AddCommand(
		newAggregateCmd(c),
		newConsistencyCmd(c),
		newRunCmd(c),
		newDatasetCmd(c),
	)
	return root
}

// readInput reads the file named by args[0], or stdin when no file (or
// "-") is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// decodeList decodes a YAML or JSON document that is either a list of T or
// a mapping holding that list under key. An empty document yields nil.
func decodeList[T any](data []byte, key string) ([]T, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var items []T
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&items); err != nil {
			return nil, fmt.Errorf("failed to decode input: %w", err)
		}
	case yaml.MappingNode:
		var wrapped map[string]yaml.Node
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode input: %w", err)
		}
		list, ok := wrapped[key]
		if !ok {
			return nil, fmt.Errorf("input mapping has no %q key", key)
		}
		if err := list.Decode(&items); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
	default:
		return nil, fmt.Errorf("input must be a list or a mapping with a %q key", key)
	}
	return items, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
