package application

import (
	"context"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// UnitAdapter wraps a ports.Unit so it can be placed in pipelines, layers
// and graphs, and applies the unit's configured execution timeout.
type UnitAdapter struct {
	unit ports.Unit
	// id is the unit's identifier within the graph.
	id      string
	timeout time.Duration
}

// AdapterOption configures a UnitAdapter.
type AdapterOption func(*UnitAdapter)

// WithTimeout bounds each execution of the wrapped unit. Zero or negative
// durations leave the unit unbounded.
func WithTimeout(d time.Duration) AdapterOption {
	return func(ua *UnitAdapter) { ua.timeout = d }
}

// NewUnitAdapter wraps unit under the given graph ID.
func NewUnitAdapter(unit ports.Unit, id string, opts ...AdapterOption) *UnitAdapter {
	ua := &UnitAdapter{unit: unit, id: id}
	for _, opt := range opts {
		opt(ua)
	}
	return ua
}

// Execute runs the wrapped unit, under a deadline when a timeout is set.
func (ua *UnitAdapter) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if ua.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ua.timeout)
		defer cancel()
	}
	return ua.unit.Execute(ctx, state)
}

// ID returns the adapter's graph ID.
func (ua *UnitAdapter) ID() string { return ua.id }

// Timeout returns the configured execution timeout.
func (ua *UnitAdapter) Timeout() time.Duration { return ua.timeout }

var _ ports.Executable = (*UnitAdapter)(nil)
