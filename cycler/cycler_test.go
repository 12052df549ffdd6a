package cycler

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/health"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/store"
	"github.com/c360/semstreams-robotics/telemetry"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

type captureSink struct {
	mu     sync.Mutex
	frames []telemetry.Frame
}

func (s *captureSink) Emit(frame telemetry.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *captureSink) last() telemetry.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

type triggerFunc func(ctx context.Context) (time.Time, error)

func (f triggerFunc) Wait(ctx context.Context) (time.Time, error) {
	return f(ctx)
}

var epoch = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T) *node.Registry {
	t.Helper()
	registry := node.NewRegistry()

	require.NoError(t, registry.RegisterFactory(&node.Registration{
		Name: "producer",
		Factory: func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
			calls := view.NewPersistentState(c, "producer.calls", 0)
			count := view.NewMainOutput[int](c, "count")
			return node.Func(func(_ context.Context, cy *view.Cycle) error {
				n := calls.Get(cy)
				*n++
				return count.Set(cy, *n)
			}), nil
		},
	}))
	require.NoError(t, registry.RegisterFactory(&node.Registration{
		Name: "doubler",
		Factory: func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
			count := view.NewInput[int](c, "count")
			double := view.NewMainOutput[int](c, "double")
			return node.Func(func(_ context.Context, cy *view.Cycle) error {
				return double.Set(cy, 2*count.Get(cy))
			}), nil
		},
	}))
	require.NoError(t, registry.RegisterFactory(&node.Registration{
		Name: "flaky",
		Factory: func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
			out := view.NewMainOutput[string](c, "flaky.out")
			return node.Func(func(_ context.Context, cy *view.Cycle) error {
				if err := out.Set(cy, "partial"); err != nil {
					return err
				}
				return stderrors.New("sensor glitch")
			}), nil
		},
	}))
	require.NoError(t, registry.RegisterFactory(&node.Registration{
		Name: "late_reader",
		Factory: func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
			in := view.NewInput[float64](c, "never.published")
			out := view.NewMainOutput[float64](c, "late.out")
			return node.Func(func(_ context.Context, cy *view.Cycle) error {
				return out.Set(cy, in.Get(cy))
			}), nil
		},
	}))
	require.NoError(t, registry.RegisterFactory(&node.Registration{
		Name: "broken",
		Factory: func(*view.Creation, node.Dependencies) (node.Node, error) {
			return nil, stderrors.New("calibration file missing")
		},
	}))
	return registry
}

func newCycler(t *testing.T, cfg config.CyclerConfig, trigger Trigger, deps Dependencies) *Cycler {
	t.Helper()
	if deps.Registry == nil {
		deps.Registry = testRegistry(t)
	}
	if deps.Store == nil {
		deps.Store = store.New()
	}
	if trigger == nil {
		trigger = triggerFunc(func(ctx context.Context) (time.Time, error) {
			<-ctx.Done()
			return time.Time{}, ctx.Err()
		})
	}
	c, err := New(cfg, trigger, deps)
	require.NoError(t, err)
	return c
}

func TestCycler_RunsNodesInOrderAndPublishes(t *testing.T) {
	st := store.New()
	sink := &captureSink{}
	c := newCycler(t, config.CyclerConfig{
		Name: "control", OwnsTime: true, Nodes: []string{"producer", "doubler"},
	}, nil, Dependencies{Store: st, Sink: sink})

	require.NoError(t, c.RunOnce(context.Background(), epoch))
	require.NoError(t, c.RunOnce(context.Background(), epoch.Add(10*time.Millisecond)))

	count, ok := st.Read("count")
	require.True(t, ok)
	assert.Equal(t, 2, count.Value)
	assert.Equal(t, uint64(2), count.Version)

	double, ok := st.Read("double")
	require.True(t, ok)
	assert.Equal(t, 4, double.Value, "doubler sees the count staged earlier in the same cycle")

	calls, ok := st.Read("producer.calls")
	require.True(t, ok)
	assert.Equal(t, 2, calls.Value)

	cycleTime, ok := st.Read(CycleTimePath)
	require.True(t, ok)
	assert.Equal(t, types.CycleTime{StartTime: epoch.Add(10 * time.Millisecond), LastCycleDuration: 10 * time.Millisecond},
		cycleTime.Value)

	frame := sink.last()
	assert.Equal(t, "control", frame.Cycler)
	assert.Equal(t, uint64(2), frame.Cycle)
	assert.Equal(t, 4, frame.Outputs["double"])
	assert.Equal(t, 2, frame.Persistent["producer.calls"])
	assert.Equal(t, uint64(2), c.Cycles())
}

func TestCycler_NodeErrorDiscardsOutputsAndContinues(t *testing.T) {
	st := store.New()
	monitor := health.NewMonitor("hulk")
	c := newCycler(t, config.CyclerConfig{
		Name: "control", Nodes: []string{"flaky", "producer", "late_reader"},
	}, nil, Dependencies{Store: st, Health: monitor})

	require.NoError(t, c.RunOnce(context.Background(), epoch))

	_, ok := st.Read("flaky.out")
	assert.False(t, ok, "outputs of a failed node are not published")
	_, ok = st.Read("late.out")
	assert.False(t, ok, "a node with a missing required input is skipped")

	count, ok := st.Read("count")
	require.True(t, ok, "later nodes still run")
	assert.Equal(t, 1, count.Value)

	status, ok := monitor.Get("control")
	require.True(t, ok)
	assert.True(t, status.IsDegraded())
	assert.Equal(t, 2, status.Metrics.ErrorCount)
}

func TestCycler_ConstructionFailureIsFatal(t *testing.T) {
	_, err := New(config.CyclerConfig{Name: "control", Nodes: []string{"producer", "broken"}},
		triggerFunc(nil), Dependencies{Registry: testRegistry(t), Store: store.New()})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "broken")

	_, err = New(config.CyclerConfig{Name: "control", Nodes: []string{"missing"}},
		triggerFunc(nil), Dependencies{Registry: testRegistry(t), Store: store.New()})
	assert.ErrorIs(t, err, errors.ErrUnknownNode)
}

func TestCycler_PersistentStateOfAnotherCyclerIsRejected(t *testing.T) {
	registry := testRegistry(t)
	st := store.New()
	newCycler(t, config.CyclerConfig{Name: "a", Nodes: []string{"producer"}}, nil,
		Dependencies{Registry: registry, Store: st})

	_, err := New(config.CyclerConfig{Name: "b", Nodes: []string{"producer"}}, triggerFunc(nil),
		Dependencies{Registry: registry, Store: st})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.ErrorIs(t, err, errors.ErrOwnershipConflict)
}

func TestCycler_RunStopsOnCancel(t *testing.T) {
	fc := testclock.NewFakeClock(epoch)
	st := store.New()
	c := newCycler(t, config.CyclerConfig{Name: "team", Nodes: []string{"producer"}},
		NewPeriodicTrigger(fc, 200*time.Millisecond), Dependencies{Store: st, Clock: fc})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for i := 0; i < 3; i++ {
		require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)
		want := uint64(i + 1)
		fc.Step(200 * time.Millisecond)
		require.Eventually(t, func() bool { return c.Cycles() == want }, time.Second, time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(time.Second):
		t.Fatal("cycler did not stop after cancel")
	}

	count, ok := st.Read("count")
	require.True(t, ok)
	assert.Equal(t, 3, count.Value)
}

func TestCycler_TriggerFailureIsFatal(t *testing.T) {
	monitor := health.NewMonitor("hulk")
	closed := stderrors.New("camera disconnected")
	c := newCycler(t, config.CyclerConfig{Name: "perception", Nodes: []string{"producer"}},
		triggerFunc(func(context.Context) (time.Time, error) { return time.Time{}, closed }),
		Dependencies{Health: monitor})

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.ErrorIs(t, err, errors.ErrTriggerClosed)
	assert.ErrorIs(t, err, closed)

	status, ok := monitor.Get("perception")
	require.True(t, ok)
	assert.True(t, status.IsUnhealthy())
}

func TestNewTrigger(t *testing.T) {
	fc := testclock.NewFakeClock(epoch)

	trigger, err := NewTrigger(config.TriggerConfig{Kind: config.TriggerPeriodic, Period: config.Duration(time.Second)}, nil, fc)
	require.NoError(t, err)
	assert.IsType(t, &PeriodicTrigger{}, trigger)

	_, err = NewTrigger(config.TriggerConfig{Kind: config.TriggerPeriodic}, nil, fc)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewTrigger(config.TriggerConfig{Kind: config.TriggerHardware, Event: "sensor_data"}, nil, fc)
	assert.True(t, errors.IsFatal(err))

	_, err = NewTrigger(config.TriggerConfig{Kind: "interrupt"}, nil, fc)
	assert.True(t, errors.IsInvalid(err))
}

func TestPeriodicTrigger_WaitHonoursCancel(t *testing.T) {
	trigger := NewPeriodicTrigger(testclock.NewFakeClock(epoch), time.Second)
	defer trigger.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := trigger.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
