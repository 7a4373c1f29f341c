// Package history provides a fixed-capacity, insertion-ordered container
// with FIFO eviction. It backs the conversation context (chronological,
// oldest evicted first) and the prompt history (newest first, oldest
// evicted from the tail).
package history

// Store is a bounded ordered container over T. The zero value is not
// usable; construct with New or NewestFirst.
type Store[T any] struct {
	capacity    int
	newestFirst bool
	items       []T
}

// New creates a chronological store: Push appends at the tail and the
// oldest item (head) is evicted once size exceeds capacity.
func New[T any](capacity int) *Store[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Store[T]{capacity: capacity}
}

// NewestFirst creates a store where Push inserts at the head and the
// oldest item (tail) is evicted once size exceeds capacity.
func NewestFirst[T any](capacity int) *Store[T] {
	s := New[T](capacity)
	s.newestFirst = true
	return s
}

// Push inserts an item, evicting from the opposite end if the store is full.
func (s *Store[T]) Push(item T) {
	if s.newestFirst {
		s.items = append([]T{item}, s.items...)
		if len(s.items) > s.capacity {
			s.items = s.items[:s.capacity]
		}
		return
	}
	s.items = append(s.items, item)
	if len(s.items) > s.capacity {
		// Copy down instead of reslicing so evicted entries don't pin
		// the backing array.
		n := copy(s.items, s.items[len(s.items)-s.capacity:])
		s.items = s.items[:n]
	}
}

// Items returns a snapshot of the stored items in order.
func (s *Store[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored items.
func (s *Store[T]) Len() int {
	return len(s.items)
}

// Capacity returns the maximum number of items the store holds.
func (s *Store[T]) Capacity() int {
	return s.capacity
}

// Clear resets the store to empty.
func (s *Store[T]) Clear() {
	s.items = nil
}
