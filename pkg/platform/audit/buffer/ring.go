// Package buffer holds the bounded queue shared by the asynchronous audit
// paths (recorder buffering and the stream mirror).
package buffer

import "sync"

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 10000

// Ring is a bounded, thread-safe FIFO. When full, the oldest item is
// dropped to make room for the new one.
type Ring[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

// NewRing creates a ring buffer with the given capacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an item, dropping the oldest if necessary. It reports whether
// an item was dropped.
func (b *Ring[T]) Enqueue(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := false
	if b.count >= b.capacity {
		var zero T
		b.items[b.tail] = zero
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		dropped = true
	}
	b.push(item)
	return dropped
}

func (b *Ring[T]) push(item T) {
	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	b.count++
}

// DequeueBatch removes up to n items in insertion order.
func (b *Ring[T]) DequeueBatch(n int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	var zero T
	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = b.items[b.tail]
		b.items[b.tail] = zero
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

// Len returns the current number of buffered items.
func (b *Ring[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of items dropped for lack of space.
func (b *Ring[T]) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
