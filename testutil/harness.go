package testutil

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/parameters"
	"github.com/c360/semstreams-robotics/store"
	"github.com/c360/semstreams-robotics/view"
)

// HarnessCycler is the cycler name nodes see inside a Harness
const HarnessCycler = "harness"

// Harness runs one node against synthetic inputs
type Harness struct {
	t          testing.TB
	name       string
	node       node.Node
	creation   *view.Creation
	persistent *view.Persistent
	tree       *parameters.Tree
	store      *store.Store
	subscribed map[string]bool
	frame      *view.Frame
}

// HarnessOption configures a Harness
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	params   map[string]any
	hardware hardware.Interface
	clock    clock.PassiveClock
	logger   *slog.Logger
}

// WithParameters sets the parameter document seen at construction
func WithParameters(doc map[string]any) HarnessOption {
	return func(c *harnessConfig) {
		c.params = doc
	}
}

// WithHardware hands a hardware backend to the factory
func WithHardware(hw hardware.Interface) HarnessOption {
	return func(c *harnessConfig) {
		c.hardware = hw
	}
}

// WithClock hands a clock to the factory
func WithClock(clk clock.PassiveClock) HarnessOption {
	return func(c *harnessConfig) {
		c.clock = clk
	}
}

// NewHarness constructs the node and declares its bindings. Construction
// errors fail the test; use Construct to inspect them.
func NewHarness(t testing.TB, name string, factory node.Factory, opts ...HarnessOption) *Harness {
	t.Helper()
	h, err := Construct(t, name, factory, opts...)
	require.NoError(t, err, "construction of %s", name)
	return h
}

// Construct constructs the node and returns any construction error
func Construct(t testing.TB, name string, factory node.Factory, opts ...HarnessOption) (*Harness, error) {
	t.Helper()

	cfg := &harnessConfig{params: map[string]any{}}
	for _, opt := range opts {
		opt(cfg)
	}
	tree, err := parameters.NewTree(cfg.params)
	require.NoError(t, err)

	persistent := view.NewPersistent(HarnessCycler)
	creation := view.NewCreation(HarnessCycler, name, tree.Snapshot(), persistent)
	n, err := factory(creation, node.Dependencies{Hardware: cfg.hardware, Clock: cfg.clock, Logger: cfg.logger})
	if err != nil {
		return nil, err
	}
	if err := creation.Err(); err != nil {
		return nil, err
	}

	st := store.New()
	for _, decl := range creation.Declarations() {
		if !decl.Write && decl.Kind == store.KindMainOutput {
			// inputs are written by the harness
			decl.Node = "input"
			decl.Write = true
		}
		if err := st.Declare(decl); err != nil {
			return nil, err
		}
	}

	return &Harness{
		t:          t,
		name:       name,
		node:       n,
		creation:   creation,
		persistent: persistent,
		tree:       tree,
		store:      st,
		subscribed: make(map[string]bool),
	}, nil
}

// Set publishes an input value
func (h *Harness) Set(path string, value any) {
	h.t.Helper()
	require.NoError(h.t, h.store.Publish(path, value), "input %s", path)
}

// SetParameter replaces one parameter subtree
func (h *Harness) SetParameter(path string, value any) {
	h.t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(h.t, err)
	require.NoError(h.t, h.tree.Set(path, raw))
}

// Subscribe requests an additional output
func (h *Harness) Subscribe(path string) {
	h.subscribed[path] = true
}

// Cycle runs the node once. Outputs of a failed cycle are discarded.
func (h *Harness) Cycle(ctx context.Context, now time.Time) error {
	h.frame = view.NewFrame(HarnessCycler, now,
		h.store.Snapshot(h.creation.Reads()),
		h.tree.Snapshot(),
		h.persistent,
		view.WithSubscriptions(func(path string) bool { return h.subscribed[path] }))

	cy := h.frame.Begin(h.name)
	err := h.creation.Check(cy)
	if err == nil {
		err = h.node.Cycle(ctx, cy)
	}
	if err != nil {
		return err
	}
	h.frame.Commit(cy)
	return nil
}

// MustCycle runs the node once and fails the test on error
func (h *Harness) MustCycle(now time.Time) {
	h.t.Helper()
	require.NoError(h.t, h.Cycle(context.Background(), now))
}

// Output returns a main output written in the last cycle
func (h *Harness) Output(path string) (any, bool) {
	if h.frame == nil {
		return nil, false
	}
	for _, w := range h.frame.Writes() {
		if w.Path == path {
			return w.Value, true
		}
	}
	return nil, false
}

// Additional returns an additional output filled in the last cycle
func (h *Harness) Additional(path string) (any, bool) {
	if h.frame == nil {
		return nil, false
	}
	v, ok := h.frame.Additional()[path]
	return v, ok
}

// Persistent returns the current value of persistent state
func (h *Harness) Persistent(path string) (any, bool) {
	for _, w := range h.persistent.Writes() {
		if w.Path == path {
			return w.Value, true
		}
	}
	return nil, false
}

// OutputAs returns a typed main output of the last cycle
func OutputAs[T any](h *Harness, path string) (T, bool) {
	var zero T
	v, ok := h.Output(path)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
