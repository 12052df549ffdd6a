package buffer

import "sync/atomic"

// Statistics tracks buffer operations. All counters are atomic.
type Statistics struct {
	writes  atomic.Int64
	reads   atomic.Int64
	drops   atomic.Int64
	maxSize atomic.Int64
}

// Writes returns the total number of accepted writes.
func (s *Statistics) Writes() int64 {
	return s.writes.Load()
}

// Reads returns the total number of items read.
func (s *Statistics) Reads() int64 {
	return s.reads.Load()
}

// Drops returns the total number of dropped items.
func (s *Statistics) Drops() int64 {
	return s.drops.Load()
}

// MaxSize returns the high-water mark of the buffer.
func (s *Statistics) MaxSize() int64 {
	return s.maxSize.Load()
}

// DropRate returns drops per write attempt.
func (s *Statistics) DropRate() float64 {
	attempts := s.writes.Load() + s.drops.Load()
	if attempts == 0 {
		return 0
	}
	return float64(s.drops.Load()) / float64(attempts)
}

func (s *Statistics) observeSize(size int64) {
	for {
		current := s.maxSize.Load()
		if size <= current || s.maxSize.CompareAndSwap(current, size) {
			return
		}
	}
}
