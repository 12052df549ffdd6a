package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"github.com/c360/semstreams-robotics/errors"
)

// advance steps the fake clock whenever a backoff timer is waiting.
func advance(ctx context.Context, fc *testclock.FakeClock) {
	for ctx.Err() == nil {
		if fc.HasWaiters() {
			fc.Step(10 * time.Second)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fc := testclock.NewFakeClock(time.Unix(0, 0))
	go advance(ctx, fc)

	cfg := DefaultConfig()
	cfg.Clock = fc
	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.ErrConnectionLost
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustedAttemptsAreTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fc := testclock.NewFakeClock(time.Unix(0, 0))
	go advance(ctx, fc)

	cfg := Quick()
	cfg.MaxAttempts = 2
	cfg.Clock = fc
	err := Do(ctx, cfg, func() error { return errors.ErrNoConnection })
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.ErrorIs(t, err, errors.ErrNoConnection)
}

func TestDo_ClassifiedErrorsStopImmediately(t *testing.T) {
	for _, err := range []error{
		errors.WrapInvalid(stderrors.New("bad"), "test", "op", "parse"),
		errors.WrapFatal(stderrors.New("gone"), "test", "op", "open"),
	} {
		attempts := 0
		got := Do(context.Background(), DefaultConfig(), func() error {
			attempts++
			return err
		})
		assert.Equal(t, 1, attempts)
		assert.Equal(t, err, got)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	fc := testclock.NewFakeClock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultConfig()
	cfg.Clock = fc

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func() error { return errors.ErrConnectionTimeout })
	}()
	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestDo_RejectsBadConfig(t *testing.T) {
	err := Do(context.Background(), Config{InitialDelay: time.Second, MaxDelay: time.Millisecond},
		func() error { return nil })
	assert.True(t, errors.IsInvalid(err))
}

func TestDoWithResult(t *testing.T) {
	v, err := DoWithResult(context.Background(), DefaultConfig(), func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
