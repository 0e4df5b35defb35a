// Package ring implements a fixed-capacity FIFO ring with O(1) membership
// checks. It backs the queuer's processed-key history: pushing onto a full
// ring evicts the oldest entry, so the history is bounded by construction
// rather than by periodic trimming.
package ring

// Ring is a bounded FIFO over comparable values. A zero-capacity ring is
// valid and drops every push immediately.
type Ring[T comparable] struct {
	buf    []T
	counts map[T]int
	head   int // next write slot
	tail   int // oldest entry
	size   int
}

// New creates a Ring with capacity n. Negative capacities are treated as zero.
func New[T comparable](n int) *Ring[T] {
	if n < 0 {
		n = 0
	}
	return &Ring[T]{
		buf:    make([]T, n),
		counts: make(map[T]int, n),
	}
}

// Push appends v, evicting and returning the oldest entry when the ring is
// full. The second return reports whether an eviction happened.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	if len(r.buf) == 0 {
		return v, true
	}
	if r.size == len(r.buf) {
		evicted = r.buf[r.tail]
		r.tail = r.next(r.tail)
		r.size--
		r.forget(evicted)
		ok = true
	}
	r.buf[r.head] = v
	r.head = r.next(r.head)
	r.size++
	r.counts[v]++
	return evicted, ok
}

// Contains reports whether v is currently held.
func (r *Ring[T]) Contains(v T) bool {
	return r.counts[v] > 0
}

// Values returns the held entries, oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, 0, r.size)
	for i, idx := 0, r.tail; i < r.size; i++ {
		out = append(out, r.buf[idx])
		idx = r.next(idx)
	}
	return out
}

// Len returns the number of held entries.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Clear drops all entries, keeping capacity.
func (r *Ring[T]) Clear() {
	r.head, r.tail, r.size = 0, 0, 0
	clear(r.counts)
}

func (r *Ring[T]) next(i int) int {
	if i == len(r.buf)-1 {
		return 0
	}
	return i + 1
}

// forget decrements the membership count for v, deleting it at zero. Counts
// are needed because the same value may be held more than once.
func (r *Ring[T]) forget(v T) {
	if c := r.counts[v]; c <= 1 {
		delete(r.counts, v)
	} else {
		r.counts[v] = c - 1
	}
}
