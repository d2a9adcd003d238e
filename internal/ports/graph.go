package ports

import (
	"context"

	"github.com/ahrav/go-concord/internal/domain"
)

// MergeStrategy combines the states produced by the members of a Layer.
// baseState is the state the layer received; states are the member outputs
// in member order. Implementations must be deterministic and must not
// modify their inputs.
type MergeStrategy interface {
	Merge(baseState domain.State, states []domain.State) (domain.State, error)
}

// Executable is anything that can run as a node of the execution graph:
// a wrapped unit, a pipeline, or a layer.
type Executable interface {
	// Execute runs the node. The input state is shared between concurrent
	// executables and MUST NOT be modified.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID returns the node's identifier, unique within its graph.
	ID() string
}

// Pipeline runs executables in order, feeding each one the previous
// output.
type Pipeline interface {
	Executable

	// Add appends an executable to the sequence.
	Add(exec Executable) error

	// Executables returns the sequence. Callers must not modify it.
	Executables() []Executable
}

// Layer runs independent executables concurrently on the same input state
// and merges their outputs.
type Layer interface {
	Executable

	// Add includes an executable in the layer.
	Add(exec Executable) error

	// Executables returns the members in the order they were added.
	Executables() []Executable

	// SetMergeStrategy replaces the default key-by-key merge. It must be
	// called before Execute.
	SetMergeStrategy(strategy MergeStrategy)
}

// Graph is a directed acyclic graph of executables.
type Graph interface {
	// AddNode registers an executable. IDs must be unique.
	AddNode(exec Executable) error

	// AddEdge makes targetID wait for sourceID. It fails for unknown IDs,
	// duplicate edges and edges that would close a cycle.
	AddEdge(sourceID, targetID string) error

	// TopologicalSort returns the nodes with every dependency ahead of its
	// dependents. Nodes that are otherwise unordered keep insertion order.
	TopologicalSort() ([]Executable, error)

	// HasCycle reports whether the graph contains a cycle.
	HasCycle() bool

	// GetNode returns the node with the given ID. The returned executable is
	// the stored instance and must be treated as read-only.
	GetNode(id string) (Executable, bool)
}
