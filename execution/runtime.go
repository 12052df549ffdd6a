// Package execution builds the cyclers of a topology and runs them.
//
// Run starts one goroutine per cycler under an errgroup. The first fatal
// error cancels every sibling and is returned; cancelling the parent context
// stops all cyclers within one cycle and returns nil.
package execution

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/cycler"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/flowgraph"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/health"
	"github.com/c360/semstreams-robotics/metric"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/parameters"
	"github.com/c360/semstreams-robotics/store"
	"github.com/c360/semstreams-robotics/telemetry"
)

// Dependencies provides all external dependencies of the runtime
type Dependencies struct {
	Hardware      hardware.Interface
	Registry      *node.Registry
	Store         *store.Store
	Parameters    *parameters.Tree        // can be nil
	Sink          telemetry.Sink          // can be nil
	Subscriptions telemetry.Subscriptions // can be nil
	Metrics       *metric.Metrics         // can be nil
	Health        *health.Monitor         // can be nil
	Logger        *slog.Logger            // can be nil, defaults to slog.Default()
	Clock         clock.WithTicker        // can be nil, defaults to the real clock
}

// GetLogger returns the configured logger or a default logger
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Runtime owns the cyclers of one robot
type Runtime struct {
	cyclers  []*cycler.Cycler
	analysis *flowgraph.FlowAnalysisResult
	logger   *slog.Logger
}

// New constructs every cycler of the topology and validates the data flow
// between their nodes. All errors are fatal.
func New(topology []config.CyclerConfig, deps Dependencies) (*Runtime, error) {
	if err := config.ValidateTopology(topology); err != nil {
		return nil, errors.WrapFatal(err, "Runtime", "New", "topology validation")
	}
	if deps.Store == nil {
		deps.Store = store.New()
	}
	if deps.Registry == nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: node registry", errors.ErrMissingConfig),
			"Runtime", "New", "dependency validation")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	logger := deps.GetLogger()

	r := &Runtime{logger: logger.With("component", "runtime")}
	graph := flowgraph.NewFlowGraph()

	for _, cfg := range topology {
		trigger, err := cycler.NewTrigger(cfg.Trigger, deps.Hardware, clk)
		if err != nil {
			return nil, errors.WrapFatal(err, "Runtime", "New", "trigger of "+cfg.Name)
		}

		c, err := cycler.New(cfg, trigger, cycler.Dependencies{
			Registry:      deps.Registry,
			Node:          node.Dependencies{Hardware: deps.Hardware, Clock: clk, Logger: logger},
			Store:         deps.Store,
			Parameters:    deps.Parameters,
			Sink:          deps.Sink,
			Subscriptions: deps.Subscriptions,
			Metrics:       deps.Metrics,
			Health:        deps.Health,
			Logger:        logger,
			Clock:         clk,
		})
		if err != nil {
			return nil, err
		}
		r.cyclers = append(r.cyclers, c)

		for position, info := range c.Nodes() {
			if err := graph.AddNode(c.Name(), info.Name, position, info.Bindings); err != nil {
				return nil, errors.WrapFatal(err, "Runtime", "New", "flow graph")
			}
		}
	}

	if err := graph.Connect(); err != nil {
		return nil, errors.WrapFatal(err, "Runtime", "New", "flow graph validation")
	}
	r.analysis = graph.AnalyzeConnectivity()
	for _, warning := range r.analysis.Warnings {
		r.logger.Warn("Data flow warning", "warning", warning)
	}
	for _, orphan := range r.analysis.UnreadOutputs {
		r.logger.Debug("Output only consumed by telemetry", "path", orphan.Path, "writer", orphan.Writer.String())
	}
	return r, nil
}

// Cyclers returns the cyclers in topology order
func (r *Runtime) Cyclers() []*cycler.Cycler {
	return append([]*cycler.Cycler(nil), r.cyclers...)
}

// Analysis returns the data flow analysis of the topology
func (r *Runtime) Analysis() *flowgraph.FlowAnalysisResult {
	return r.analysis
}

// Run runs every cycler until ctx is cancelled or one of them fails
func (r *Runtime) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range r.cyclers {
		g.Go(func() error {
			return c.Run(gctx)
		})
	}

	r.logger.Info("Runtime started", "cyclers", len(r.cyclers))
	if err := g.Wait(); err != nil {
		r.logger.Error("Runtime stopped on fatal error", "error", err)
		return err
	}
	r.logger.Info("Runtime stopped")
	return nil
}
