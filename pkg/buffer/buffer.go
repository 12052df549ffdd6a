// Package buffer provides a bounded, thread-safe ring buffer that never
// blocks its writer. When full, it drops the oldest or the newest item
// according to its overflow policy and reports the drop.
package buffer

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the buffer is full.
	DropNewest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropCallback is called, outside the buffer lock, with every dropped item.
type DropCallback[T any] func(item T)

// Buffer is a bounded FIFO of T
type Buffer[T any] interface {
	// Write adds an item, dropping one according to the policy when full.
	Write(item T) error

	// Read removes the oldest item.
	Read() (T, bool)

	// ReadBatch removes up to max items.
	ReadBatch(max int) []T

	// Notify is signalled after a write; it has capacity one, so several
	// writes may collapse into one notification.
	Notify() <-chan struct{}

	Size() int
	Capacity() int
	Stats() *Statistics
	Close() error
}

// NewCircularBuffer creates a ring buffer with the given capacity.
func NewCircularBuffer[T any](capacity int, options ...Option[T]) Buffer[T] {
	return newCircularBuffer(capacity, applyOptions(options...))
}
