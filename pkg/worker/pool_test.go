package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semstreams-robotics/metric"
)

func TestPool_ProcessesAndDrains(t *testing.T) {
	var count atomic.Int64
	pool, err := NewPool[int]("count", 4, 64, func(_ context.Context, n int) error {
		count.Add(int64(n))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	for i := 1; i <= 10; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(time.Second))

	assert.Equal(t, int64(55), count.Load())
	stats := pool.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Processed)
	assert.Zero(t, stats.Failed)
}

func TestPool_Lifecycle(t *testing.T) {
	_, err := NewPool[int]("nil", 1, 1, nil)
	assert.ErrorIs(t, err, ErrNilProcessor)

	pool, err := NewPool[int]("life", 1, 1, func(context.Context, int) error { return nil })
	require.NoError(t, err)

	assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)
	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolAlreadyStarted)
	require.NoError(t, pool.Stop(time.Second))
	assert.ErrorIs(t, pool.Submit(1), ErrPoolStopped)
	assert.NoError(t, pool.Stop(time.Second), "second stop is a no-op")
}

func TestPool_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool, err := NewPool[int]("full", 1, 1, func(context.Context, int) error {
		started <- struct{}{}
		<-release
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	require.NoError(t, pool.Submit(1))
	<-started
	require.NoError(t, pool.Submit(2))
	assert.ErrorIs(t, pool.Submit(3), ErrQueueFull)
	assert.Equal(t, int64(1), pool.Stats().Dropped)

	close(release)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPool_ErrorHandlerAndMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	boom := errors.New("boom")
	var failed []int

	pool, err := NewPool("metrics", 1, 8,
		func(_ context.Context, n int) error {
			if n%2 == 0 {
				return boom
			}
			return nil
		},
		WithMetricsRegistry[int](registry),
		WithErrorHandler(func(n int, err error) {
			assert.ErrorIs(t, err, boom)
			failed = append(failed, n)
		}))
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	for i := 1; i <= 4; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(time.Second))

	assert.Equal(t, []int{2, 4}, failed)
	assert.Equal(t, int64(2), pool.Stats().Failed)
	assert.Equal(t, 2.0, testutil.ToFloat64(pool.metrics.processed.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pool.metrics.processed.WithLabelValues("success")))

	_, err = NewPool("metrics", 1, 8, func(context.Context, int) error { return nil },
		WithMetricsRegistry[int](registry))
	assert.Error(t, err, "same pool name registers the same metrics twice")
}
