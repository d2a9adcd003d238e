// Package ports defines the interfaces between the domain and application
// layers and the infrastructure that backs them.
package ports

import (
	"context"

	"github.com/ahrav/go-concord/internal/domain"
)

// Unit is a single step of the per-task execution graph. A unit reads the
// keys it needs from the State and returns a new State with its results.
// Units must be stateless and safe for concurrent use.
type Unit interface {
	// Name returns the unit's identifier within its graph.
	Name() string

	// Execute transforms the state. The input state must not be modified;
	// use domain.With to derive the returned state.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate reports whether the unit is configured well enough to run.
	Validate() error
}

// UnitFactory builds a unit from its graph ID and the raw parameters taken
// from the graph configuration.
type UnitFactory func(id string, config map[string]any) (Unit, error)

// UnitRegistry maps unit type names to factories.
type UnitRegistry interface {
	// CreateUnit builds a unit of the given type.
	CreateUnit(unitType string, id string, config map[string]any) (Unit, error)

	// RegisterUnitFactory adds or replaces the factory for a unit type.
	RegisterUnitFactory(unitType string, factory UnitFactory) error

	// GetSupportedTypes lists the registered unit types in sorted order.
	GetSupportedTypes() []string
}
