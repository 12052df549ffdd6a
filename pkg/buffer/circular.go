package buffer

import (
	"sync"

	"github.com/c360/semstreams-robotics/errors"
)

type circularBuffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	stats    Statistics
	opts     *bufferOptions[T]
	notify   chan struct{}
	closed   bool
}

func newCircularBuffer[T any](capacity int, opts *bufferOptions[T]) *circularBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &circularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		opts:     opts,
		notify:   make(chan struct{}, 1),
	}
}

// Write adds an item to the buffer according to the overflow policy.
func (cb *circularBuffer[T]) Write(item T) error {
	cb.mu.Lock()

	if cb.closed {
		cb.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write", "buffer closed")
	}

	var (
		dropped    T
		hasDropped bool
	)

	if cb.size == cb.capacity {
		switch cb.opts.overflowPolicy {
		case DropNewest:
			cb.stats.drops.Add(1)
			cb.mu.Unlock()
			cb.dropped(item)
			return nil
		default:
			dropped, hasDropped = cb.items[cb.tail], true
			var zero T
			cb.items[cb.tail] = zero
			cb.tail = (cb.tail + 1) % cb.capacity
			cb.size--
			cb.stats.drops.Add(1)
		}
	}

	cb.items[cb.head] = item
	cb.head = (cb.head + 1) % cb.capacity
	cb.size++
	cb.stats.writes.Add(1)
	cb.stats.observeSize(int64(cb.size))
	cb.mu.Unlock()

	if hasDropped {
		cb.dropped(dropped)
	}

	select {
	case cb.notify <- struct{}{}:
	default:
	}
	return nil
}

func (cb *circularBuffer[T]) dropped(item T) {
	if cb.opts.dropCallback != nil {
		cb.opts.dropCallback(item)
	}
}

// Read retrieves and removes one item from the buffer.
func (cb *circularBuffer[T]) Read() (T, bool) {
	items := cb.ReadBatch(1)
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[0], true
}

// ReadBatch retrieves and removes up to max items from the buffer.
func (cb *circularBuffer[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	count := min(max, cb.size)
	if count == 0 {
		return nil
	}

	result := make([]T, count)
	var zero T
	for i := range result {
		result[i] = cb.items[cb.tail]
		cb.items[cb.tail] = zero
		cb.tail = (cb.tail + 1) % cb.capacity
	}
	cb.size -= count
	cb.stats.reads.Add(int64(count))
	return result
}

// Notify returns the write notification channel.
func (cb *circularBuffer[T]) Notify() <-chan struct{} {
	return cb.notify
}

// Size returns the current number of items in the buffer.
func (cb *circularBuffer[T]) Size() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size
}

// Capacity returns the maximum number of items the buffer can hold.
func (cb *circularBuffer[T]) Capacity() int {
	return cb.capacity
}

// Stats returns buffer statistics.
func (cb *circularBuffer[T]) Stats() *Statistics {
	return &cb.stats
}

// Close rejects further writes. Buffered items can still be read.
func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.closed = true
	return nil
}
