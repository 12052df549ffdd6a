package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer_DropOldest(t *testing.T) {
	var dropped []int
	buf := NewCircularBuffer[int](3, WithDropCallback[int](func(item int) {
		dropped = append(dropped, item)
	}))

	for i := 1; i <= 5; i++ {
		require.NoError(t, buf.Write(i))
	}

	assert.Equal(t, []int{1, 2}, dropped)
	assert.Equal(t, []int{3, 4, 5}, buf.ReadBatch(10))
	assert.Equal(t, int64(2), buf.Stats().Drops())
	assert.Equal(t, int64(5), buf.Stats().Writes())
	assert.Equal(t, int64(3), buf.Stats().MaxSize())
}

func TestCircularBuffer_DropNewest(t *testing.T) {
	var dropped []int
	buf := NewCircularBuffer(2,
		WithOverflowPolicy[int](DropNewest),
		WithDropCallback[int](func(item int) { dropped = append(dropped, item) }))

	for i := 1; i <= 4; i++ {
		require.NoError(t, buf.Write(i))
	}

	assert.Equal(t, []int{3, 4}, dropped)
	v, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.InDelta(t, 0.5, buf.Stats().DropRate(), 1e-9)
}

func TestCircularBuffer_Notify(t *testing.T) {
	buf := NewCircularBuffer[string](4)

	select {
	case <-buf.Notify():
		t.Fatal("no write yet")
	default:
	}

	require.NoError(t, buf.Write("a"))
	require.NoError(t, buf.Write("b"))

	select {
	case <-buf.Notify():
	default:
		t.Fatal("expected a notification")
	}
	assert.Equal(t, 2, buf.Size())
}

func TestCircularBuffer_Close(t *testing.T) {
	buf := NewCircularBuffer[int](2)
	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Close())

	assert.Error(t, buf.Write(2))
	v, ok := buf.Read()
	assert.True(t, ok, "buffered items survive close")
	assert.Equal(t, 1, v)

	_, ok = buf.Read()
	assert.False(t, ok)
	assert.Nil(t, buf.ReadBatch(0))
}

func TestCircularBuffer_ConcurrentWriters(t *testing.T) {
	buf := NewCircularBuffer[int](16)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				_ = buf.Write(i)
			}
		}()
	}

	reads := int64(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-buf.Notify():
				reads += int64(len(buf.ReadBatch(16)))
			default:
				if buf.Stats().Writes() == 4000 {
					reads += int64(len(buf.ReadBatch(16)))
					return
				}
			}
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, int64(4000), buf.Stats().Writes())
	assert.Equal(t, int64(4000), reads+buf.Stats().Drops())
	assert.Zero(t, buf.Size())
}
