// Package cycler runs an ordered list of nodes once per trigger.
//
// All nodes of one trigger share the trigger time, the store snapshot taken
// when the trigger fired, and one parameter snapshot. A node sees the main
// outputs of the nodes before it in the same cycle. After the last node the
// committed outputs and the cycler's persistent state are published to the
// store as one batch, and the whole cycle is emitted to the telemetry sink.
package cycler

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/health"
	"github.com/c360/semstreams-robotics/metric"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/parameters"
	"github.com/c360/semstreams-robotics/store"
	"github.com/c360/semstreams-robotics/telemetry"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

const (
	// CycleTimePath is published by the cycler that owns timing
	CycleTimePath = "cycle_time"

	timingNode = "timing"
)

// Dependencies provides everything a cycler needs besides its topology
type Dependencies struct {
	Registry      *node.Registry
	Node          node.Dependencies
	Store         *store.Store
	Parameters    *parameters.Tree        // can be nil
	Sink          telemetry.Sink          // can be nil
	Subscriptions telemetry.Subscriptions // can be nil
	Metrics       *metric.Metrics         // can be nil
	Health        *health.Monitor         // can be nil
	Logger        *slog.Logger
	Clock         clock.PassiveClock
}

// NodeInfo describes one node of a cycler for graph analysis
type NodeInfo struct {
	Name     string
	Bindings []view.Binding
}

type instance struct {
	name     string
	node     node.Node
	creation *view.Creation
}

// Cycler owns an ordered list of nodes and runs them once per trigger
type Cycler struct {
	name       string
	trigger    Trigger
	ownsTime   bool
	nodes      []*instance
	persistent *view.Persistent
	reads      []string
	deps       Dependencies
	logger     *slog.Logger
	clock      clock.PassiveClock

	cycles     atomic.Uint64
	errorCount int
	startedAt  time.Time
	lastStart  time.Time
}

// New constructs every node of the cycler and declares their bindings in the
// store. Any construction or declaration failure is fatal.
func New(cfg config.CyclerConfig, trigger Trigger, deps Dependencies) (*Cycler, error) {
	if trigger == nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: cycler %s has no trigger", errors.ErrMissingConfig, cfg.Name),
			"Cycler", "New", "trigger validation")
	}
	if deps.Registry == nil || deps.Store == nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: registry and store are required", errors.ErrMissingConfig),
			"Cycler", "New", "dependency validation")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	c := &Cycler{
		name:       cfg.Name,
		trigger:    trigger,
		ownsTime:   cfg.OwnsTime,
		persistent: view.NewPersistent(cfg.Name),
		deps:       deps,
		logger:     logger.With("cycler", cfg.Name),
		clock:      clk,
	}

	if c.ownsTime {
		if err := deps.Store.Declare(store.Declaration{
			Path:   CycleTimePath,
			Type:   reflect.TypeFor[types.CycleTime](),
			Kind:   store.KindMainOutput,
			Cycler: c.name,
			Node:   timingNode,
			Write:  true,
		}); err != nil {
			return nil, errors.WrapFatal(err, "Cycler", "New", "cycle time declaration")
		}
	}

	var params *parameters.Snapshot
	if deps.Parameters != nil {
		params = deps.Parameters.Snapshot()
	}

	seen := make(map[string]bool)
	reads := map[string]bool{CycleTimePath: true}
	for _, name := range cfg.Nodes {
		if seen[name] {
			return nil, errors.WrapFatal(fmt.Errorf("%w: node %s listed twice in %s", errors.ErrInvalidConfig, name, c.name),
				"Cycler", "New", "node list validation")
		}
		seen[name] = true

		creation := view.NewCreation(c.name, name, params, c.persistent)
		nodeDeps := deps.Node
		nodeDeps.Logger = c.logger.With("node", name)
		if nodeDeps.Clock == nil {
			nodeDeps.Clock = clk
		}

		n, err := deps.Registry.Create(name, creation, nodeDeps)
		if err != nil {
			return nil, errors.WrapFatal(err, "Cycler", "New", fmt.Sprintf("node %s of %s", name, c.name))
		}
		for _, decl := range creation.Declarations() {
			if err := deps.Store.Declare(decl); err != nil {
				return nil, errors.WrapFatal(err, "Cycler", "New", fmt.Sprintf("declaration of %s/%s", c.name, name))
			}
		}
		for _, path := range creation.Reads() {
			reads[path] = true
		}

		c.nodes = append(c.nodes, &instance{name: name, node: n, creation: creation})
	}

	for path := range reads {
		c.reads = append(c.reads, path)
	}
	return c, nil
}

// Name returns the cycler name
func (c *Cycler) Name() string {
	return c.name
}

// OwnsTime reports whether the cycler publishes the cycle time
func (c *Cycler) OwnsTime() bool {
	return c.ownsTime
}

// Cycles returns the number of completed cycles
func (c *Cycler) Cycles() uint64 {
	return c.cycles.Load()
}

// Nodes describes the nodes in execution order. The cycle time producer is
// listed first when the cycler owns timing.
func (c *Cycler) Nodes() []NodeInfo {
	infos := make([]NodeInfo, 0, len(c.nodes)+1)
	if c.ownsTime {
		infos = append(infos, NodeInfo{
			Name: timingNode,
			Bindings: []view.Binding{{
				Path: CycleTimePath,
				Role: view.RoleMainOutput,
				Type: reflect.TypeFor[types.CycleTime](),
			}},
		})
	}
	for _, inst := range c.nodes {
		infos = append(infos, NodeInfo{Name: inst.name, Bindings: inst.creation.Bindings()})
	}
	return infos
}

// Run waits for the trigger and runs a cycle until ctx is cancelled. A
// cancelled context ends the loop with nil; a failing trigger is fatal.
func (c *Cycler) Run(ctx context.Context) error {
	if stopper, ok := c.trigger.(interface{ Stop() }); ok {
		defer stopper.Stop()
	}

	c.startedAt = c.clock.Now()
	c.logger.Info("Cycler started", "nodes", len(c.nodes), "owns_time", c.ownsTime)
	defer c.logger.Info("Cycler stopped", "cycles", c.cycles.Load())

	for {
		if ctx.Err() != nil {
			return nil
		}

		waitStart := c.clock.Now()
		now, err := c.trigger.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.reportFatal(err)
			return errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrTriggerClosed, err),
				"Cycler", "Run", "trigger of "+c.name)
		}
		waited := c.clock.Since(waitStart)

		if err := c.runCycle(ctx, now, waited); err != nil {
			c.reportFatal(err)
			return err
		}
	}
}

// RunOnce runs a single cycle at the given trigger time
func (c *Cycler) RunOnce(ctx context.Context, now time.Time) error {
	if c.startedAt.IsZero() {
		c.startedAt = c.clock.Now()
	}
	return c.runCycle(ctx, now, 0)
}

func (c *Cycler) runCycle(ctx context.Context, now time.Time, waited time.Duration) error {
	start := c.clock.Now()

	frame := view.NewFrame(c.name, now,
		c.deps.Store.Snapshot(c.reads),
		c.parameters(),
		c.persistent,
		view.WithSubscriptions(c.subscribed))

	if c.ownsTime {
		cycleTime := types.CycleTime{StartTime: now}
		if !c.lastStart.IsZero() {
			cycleTime.LastCycleDuration = now.Sub(c.lastStart)
		}
		c.lastStart = now
		frame.Stage(CycleTimePath, cycleTime)
	}

	failed := 0
	for _, inst := range c.nodes {
		cy := frame.Begin(inst.name)
		nodeStart := c.clock.Now()

		err := inst.creation.Check(cy)
		if err == nil {
			err = inst.node.Cycle(ctx, cy)
		}
		elapsed := c.clock.Since(nodeStart)

		if c.deps.Metrics != nil {
			c.deps.Metrics.RecordNode(c.name, inst.name, elapsed, err != nil)
		}
		if err != nil {
			failed++
			c.logger.Warn("Node cycle failed", "node", inst.name, "error", err)
			continue
		}
		frame.Commit(cy)
	}

	main := frame.Writes()
	persistent := c.persistent.Writes()
	writes := make([]store.Write, 0, len(main)+len(persistent))
	writes = append(writes, main...)
	writes = append(writes, persistent...)
	if err := c.deps.Store.PublishBatch(writes); err != nil {
		return errors.WrapFatal(err, "Cycler", "Run", "publication of "+c.name)
	}

	cycle := c.cycles.Add(1)
	c.errorCount += failed
	duration := c.clock.Since(start)

	if c.deps.Sink != nil {
		c.deps.Sink.Emit(telemetry.Frame{
			Cycler:     c.name,
			Cycle:      cycle,
			Time:       now,
			Outputs:    toMap(main),
			Additional: frame.Additional(),
			Persistent: toMap(persistent),
		})
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordCycle(c.name, waited, duration)
		c.deps.Metrics.RecordPublishes(c.name, len(writes))
	}
	c.reportCycle(now, duration, failed)
	return nil
}

func (c *Cycler) parameters() *parameters.Snapshot {
	if c.deps.Parameters == nil {
		return nil
	}
	return c.deps.Parameters.Snapshot()
}

func (c *Cycler) subscribed(path string) bool {
	return c.deps.Subscriptions != nil && c.deps.Subscriptions.Subscribed(c.name, path)
}

func (c *Cycler) reportCycle(now time.Time, duration time.Duration, failed int) {
	if c.deps.Health == nil && c.deps.Metrics == nil {
		return
	}

	status := health.NewHealthy(c.name, "cycle completed")
	if failed > 0 {
		status = health.NewDegraded(c.name, fmt.Sprintf("%d of %d nodes failed", failed, len(c.nodes)))
	}
	status = status.WithMetrics(&health.Metrics{
		Uptime:          c.clock.Since(c.startedAt),
		Cycles:          c.cycles.Load(),
		ErrorCount:      c.errorCount,
		LastCycle:       now,
		LastCycleLength: duration,
	})

	if c.deps.Health != nil {
		c.deps.Health.Update(c.name, status)
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordCyclerHealth(c.name, status.Status)
	}
}

func (c *Cycler) reportFatal(err error) {
	c.logger.Error("Cycler failed", "error", err)
	if c.deps.Health != nil {
		c.deps.Health.UpdateUnhealthy(c.name, health.Sanitize(err.Error()))
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordCyclerHealth(c.name, "unhealthy")
	}
}

func toMap(writes []store.Write) map[string]any {
	out := make(map[string]any, len(writes))
	for _, w := range writes {
		out[w.Path] = w.Value
	}
	return out
}
