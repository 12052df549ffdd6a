// Package node defines the contract of a processing module and the registry
// of node factories.
//
// A node is constructed once by its Factory from a view.Creation, which is
// where it binds its inputs, outputs, persistent state and parameters. After
// construction it is Ready and its Cycle method is called once per trigger of
// its cycler. A construction error is fatal for the cycler; a Cycle error only
// discards that node's outputs for the cycle.
package node

import (
	"context"
	"log/slog"

	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/view"
)

// Node is a processing module run by a cycler
type Node interface {
	// Cycle reads inputs and writes outputs through the node's bindings.
	// Outputs written before an error is returned are discarded.
	Cycle(ctx context.Context, cy *view.Cycle) error
}

// Func adapts a function to Node
type Func func(ctx context.Context, cy *view.Cycle) error

// Cycle calls f
func (f Func) Cycle(ctx context.Context, cy *view.Cycle) error {
	return f(ctx, cy)
}

// Dependencies are handed to every factory
type Dependencies struct {
	Hardware hardware.Interface
	Logger   *slog.Logger
	Clock    clock.PassiveClock
}

// GetLogger returns the configured logger or the default logger
func (d Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetClock returns the configured clock or the real clock
func (d Dependencies) GetClock() clock.PassiveClock {
	if d.Clock != nil {
		return d.Clock
	}
	return clock.RealClock{}
}

// Factory constructs a node and binds its dependencies on the creation view
type Factory func(c *view.Creation, deps Dependencies) (Node, error)
