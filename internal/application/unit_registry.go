package application

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ahrav/go-concord/infrastructure/units"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.UnitRegistry = (*DefaultUnitRegistry)(nil)

// DefaultUnitRegistry maps unit type names to factories. The built-in types
// are registered at construction; further types can be added at runtime.
type DefaultUnitRegistry struct {
	factories map[string]ports.UnitFactory
	// mu protects factories.
	mu sync.RWMutex
}

// NewDefaultUnitRegistry creates a registry with the built-in unit types.
// generator backs path_generator units; metrics is handed to every unit and
// may be nil.
func NewDefaultUnitRegistry(generator ports.PathGenerator, metrics ports.MetricsCollector) *DefaultUnitRegistry {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	r := &DefaultUnitRegistry{factories: make(map[string]ports.UnitFactory)}

	r.factories[units.TypePathGenerator] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.NewPathGeneratorFromConfig(id, config, generator, metrics)
	}
	r.factories[units.TypeSelfConsistency] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.NewSelfConsistencyFromConfig(id, config, metrics)
	}
	r.factories[units.TypeConsistency] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.NewConsistencyFromConfig(id, config, metrics)
	}
	r.factories[units.TypeTreeQuality] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.NewTreeQualityFromConfig(id, config, metrics)
	}
	r.factories[units.TypeExactMatch] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.NewExactMatchFromConfig(id, config, metrics)
	}
	r.factories[units.TypeFuzzyMatch] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.NewFuzzyMatchFromConfig(id, config, metrics)
	}

	return r
}

// CreateUnit looks up the factory for unitType and builds the unit.
func (r *DefaultUnitRegistry) CreateUnit(
	unitType string,
	id string,
	config map[string]any,
) (ports.Unit, error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported unit type: %s", unitType)
	}

	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	unit, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}

	return unit, nil
}

// RegisterUnitFactory adds or replaces the factory for unitType.
func (r *DefaultUnitRegistry) RegisterUnitFactory(
	unitType string,
	factory ports.UnitFactory,
) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[unitType] = factory
	return nil
}

// GetSupportedTypes returns the registered unit types in sorted order.
func (r *DefaultUnitRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for unitType := range r.factories {
		types = append(types, unitType)
	}
	slices.Sort(types)

	return types
}
