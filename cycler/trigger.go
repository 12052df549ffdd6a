package cycler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
)

// Trigger blocks until the next cycle should run and returns its time.
// Wait must return promptly once ctx is cancelled.
type Trigger interface {
	Wait(ctx context.Context) (time.Time, error)
}

// HardwareTrigger waits for a hardware event such as a sensor packet
type HardwareTrigger struct {
	events hardware.Events
	event  string
}

// NewHardwareTrigger creates a trigger on a hardware event
func NewHardwareTrigger(events hardware.Events, event string) *HardwareTrigger {
	return &HardwareTrigger{events: events, event: event}
}

// Wait blocks in the hardware interface
func (t *HardwareTrigger) Wait(ctx context.Context) (time.Time, error) {
	return t.events.WaitForEvent(ctx, t.event)
}

// PeriodicTrigger fires at a fixed period. Ticks missed while a cycle runs
// are dropped by the ticker.
type PeriodicTrigger struct {
	clock  clock.WithTicker
	period time.Duration

	mu     sync.Mutex
	ticker clock.Ticker
}

// NewPeriodicTrigger creates a trigger firing every period
func NewPeriodicTrigger(c clock.WithTicker, period time.Duration) *PeriodicTrigger {
	return &PeriodicTrigger{clock: c, period: period}
}

// Wait blocks until the next tick
func (t *PeriodicTrigger) Wait(ctx context.Context) (time.Time, error) {
	t.mu.Lock()
	if t.ticker == nil {
		t.ticker = t.clock.NewTicker(t.period)
	}
	ticks := t.ticker.C()
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case now := <-ticks:
		return now, nil
	}
}

// Stop releases the ticker
func (t *PeriodicTrigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}

// NewTrigger builds the trigger described by the topology
func NewTrigger(cfg config.TriggerConfig, events hardware.Events, c clock.WithTicker) (Trigger, error) {
	switch cfg.Kind {
	case config.TriggerHardware:
		if events == nil {
			return nil, errors.WrapFatal(fmt.Errorf("%w: hardware trigger %q without hardware", errors.ErrMissingConfig, cfg.Event),
				"cycler", "NewTrigger", "trigger construction")
		}
		return NewHardwareTrigger(events, cfg.Event), nil
	case config.TriggerPeriodic:
		if cfg.Period.Std() <= 0 {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: period %s", errors.ErrInvalidConfig, cfg.Period.Std()),
				"cycler", "NewTrigger", "trigger construction")
		}
		if c == nil {
			c = clock.RealClock{}
		}
		return NewPeriodicTrigger(c, cfg.Period.Std()), nil
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: trigger kind %q", errors.ErrInvalidConfig, cfg.Kind),
			"cycler", "NewTrigger", "trigger construction")
	}
}
