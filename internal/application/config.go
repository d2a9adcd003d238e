package application

import (
	"gopkg.in/yaml.v3"
)

// GraphConfig is the YAML description of a per-task execution graph.
type GraphConfig struct {
	// Version is the configuration schema version (X.Y.Z).
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata names and describes the graph.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Units declares every unit the graph may run.
	Units []UnitConfig `yaml:"units" validate:"required,min=1,dive"`
	// Graph arranges the units into pipelines, layers and edges.
	Graph GraphTopology `yaml:"graph" validate:"required"`
}

// Metadata provides descriptive information about a graph.
type Metadata struct {
	// Name identifies the graph in logs, metrics and execution context.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains what the graph is for.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are free-form labels.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
}

// UnitConfig declares a single unit.
type UnitConfig struct {
	// ID is referenced by pipelines, layers and edges.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type selects the unit implementation from the registry.
	Type string `yaml:"type" validate:"required,min=1,max=100"`
	// Parameters are decoded and validated by the unit type.
	Parameters yaml.Node `yaml:"parameters,omitempty"`
	// Timeout bounds a single execution of the unit.
	Timeout TimeoutConfig `yaml:"timeout"`
}

// TimeoutConfig bounds how long a unit may run.
type TimeoutConfig struct {
	// ExecutionTimeout is in seconds; zero means no limit.
	ExecutionTimeout int `yaml:"execution_timeout_seconds" validate:"omitempty,min=1,max=3600"`
}

// GraphTopology arranges units into pipelines and layers connected by
// edges. Units not placed in a pipeline or layer become standalone nodes.
type GraphTopology struct {
	Pipelines []PipelineConfig `yaml:"pipelines" validate:"dive"`
	Layers    []LayerConfig    `yaml:"layers" validate:"dive"`
	Edges     []EdgeConfig     `yaml:"edges" validate:"dive"`
}

// PipelineConfig is a sequence of units run in order.
type PipelineConfig struct {
	ID    string   `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	Units []string `yaml:"units" validate:"required,min=1,dive,alphanum"`
}

// LayerConfig is a group of independent units run concurrently. A layer
// needs at least two units.
type LayerConfig struct {
	ID    string   `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	Units []string `yaml:"units" validate:"required,min=2,dive,alphanum"`
}

// EdgeConfig makes To wait for From. Both name a unit, pipeline or layer.
type EdgeConfig struct {
	From string `yaml:"from" validate:"required,alphanum"`
	To   string `yaml:"to" validate:"required,alphanum"`
}
