package queue

import (
	"time"

	"github.com/sluice-dev/sluice/internal/ring"
)

// record is one enqueued item. Immutable once created; keep-last dedup
// replaces the whole record rather than mutating it.
type record[T any] struct {
	item       T
	insertedAt time.Time
	key        string
}

// counters are the lifecycle tallies surfaced through Stats.
type counters struct {
	executed  uint64
	rejected  uint64
	expired   uint64
	succeeded uint64
	errored   uint64
	settled   uint64
}

// Stats is a point-in-time view of a queuer. Derived predicates are methods
// so they can never drift from the stored fields.
type Stats struct {
	Size        int
	ActiveCount int
	MaxSize     int
	Executed    uint64
	Rejected    uint64
	Expired     uint64
	Succeeded   uint64
	Errored     uint64
	Settled     uint64
	Running     bool
}

// IsEmpty reports whether no items are pending.
func (s Stats) IsEmpty() bool { return s.Size == 0 }

// IsFull reports whether the capacity bound is reached.
func (s Stats) IsFull() bool { return s.MaxSize > 0 && s.Size >= s.MaxSize }

// IsIdle reports whether the queuer is running with nothing pending and
// nothing in flight.
func (s Stats) IsIdle() bool { return s.Running && s.Size == 0 && s.ActiveCount == 0 }

// Status derives the observable scheduler state.
func (s Stats) Status() Status {
	switch {
	case !s.Running:
		return StatusStopped
	case s.Size == 0 && s.ActiveCount == 0:
		return StatusIdle
	default:
		return StatusRunning
	}
}

// State is a full snapshot: pending items with their insertion timestamps,
// the processed-key history, and the stats. Items and Timestamps are always
// the same length. Persisting and reseeding it is the caller's business.
type State[T any] struct {
	Items         []T
	Timestamps    []time.Time
	ProcessedKeys []string
	Stats         Stats
}

// insertOutcome says how store.insert resolved.
type insertOutcome int

const (
	inserted insertOutcome = iota
	replaced                // keep-last took the pending record's place
	duplicatePending        // keep-first kept the pending record
	duplicateProcessed      // key already in the processed history
	rejectedFull            // capacity bound reached
)

// store is the buffer shared by both queuer flavors: ordering and insertion,
// deduplication, expiration, and counters. Callers hold the engine lock; the
// store itself does no locking and fires no callbacks.
type store[T any] struct {
	opts      *Options[T]
	items     []record[T]
	processed *ring.Ring[string]
	counters  counters
	now       func() time.Time
}

func newStore[T any](opts *Options[T]) *store[T] {
	s := &store[T]{opts: opts, now: time.Now}
	if opts.DeduplicateItems {
		s.processed = ring.New[string](opts.MaxTrackedKeys)
	}
	return s
}

// insert places item per dedup, capacity, and ordering rules. existing is the
// pending item a duplicate resolved against, nil for history hits.
func (s *store[T]) insert(item T, pos Position) (insertOutcome, *T) {
	if s.opts.DeduplicateItems {
		key := s.opts.GetItemKey(item)
		if idx := s.pendingIndex(key); idx >= 0 {
			existing := s.items[idx].item
			if s.opts.DeduplicateStrategy == KeepLast {
				s.items[idx] = record[T]{item: item, insertedAt: s.now(), key: key}
				return replaced, &existing
			}
			return duplicatePending, &existing
		}
		if s.processed.Contains(key) {
			return duplicateProcessed, nil
		}
	}
	// Capacity is checked after dedup resolution: a duplicate of a pending
	// item must not be rejected as overflow.
	if s.opts.MaxSize > 0 && len(s.items) >= s.opts.MaxSize {
		s.counters.rejected++
		return rejectedFull, nil
	}
	rec := record[T]{item: item, insertedAt: s.now()}
	if s.opts.DeduplicateItems {
		rec.key = s.opts.GetItemKey(item)
	}
	switch {
	case s.opts.GetPriority != nil:
		s.insertByPriority(rec)
	case pos == Front:
		s.items = append([]record[T]{rec}, s.items...)
	default:
		s.items = append(s.items, rec)
	}
	return inserted, nil
}

// insertByPriority places rec before the first record with strictly lower
// priority, keeping insertion order among equals (FIFO among ties).
func (s *store[T]) insertByPriority(rec record[T]) {
	p := s.opts.GetPriority(rec.item)
	at := len(s.items)
	for i := range s.items {
		if s.opts.GetPriority(s.items[i].item) < p {
			at = i
			break
		}
	}
	s.items = append(s.items, record[T]{})
	copy(s.items[at+1:], s.items[at:])
	s.items[at] = rec
}

// extract removes a record from the chosen end and marks its key processed.
// With a priority extractor configured the front is always used, since
// ordering was enforced at insertion.
func (s *store[T]) extract(pos Position) (record[T], bool) {
	if len(s.items) == 0 {
		return record[T]{}, false
	}
	if s.opts.GetPriority != nil {
		pos = Front
	}
	var rec record[T]
	if pos == Back {
		rec = s.items[len(s.items)-1]
		s.items = s.items[:len(s.items)-1]
	} else {
		rec = s.items[0]
		s.items = s.items[1:]
	}
	s.markProcessed(rec)
	return rec, true
}

func (s *store[T]) markProcessed(rec record[T]) {
	if s.processed != nil {
		s.processed.Push(rec.key)
	}
}

// sweep removes every item past its expiry and returns them in buffer order.
func (s *store[T]) sweep() []record[T] {
	if s.opts.ExpirationDuration <= 0 && s.opts.GetIsExpired == nil {
		return nil
	}
	now := s.now()
	var removed []record[T]
	kept := s.items[:0]
	for _, rec := range s.items {
		if s.isExpired(rec, now) {
			removed = append(removed, rec)
			continue
		}
		kept = append(kept, rec)
	}
	s.items = kept
	s.counters.expired += uint64(len(removed))
	return removed
}

func (s *store[T]) isExpired(rec record[T], now time.Time) bool {
	if s.opts.GetIsExpired != nil {
		return s.opts.GetIsExpired(rec.item, rec.insertedAt)
	}
	return now.Sub(rec.insertedAt) > s.opts.ExpirationDuration
}

func (s *store[T]) pendingIndex(key string) int {
	for i := range s.items {
		if s.items[i].key == key {
			return i
		}
	}
	return -1
}

func (s *store[T]) peek(pos Position) (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	if s.opts.GetPriority != nil {
		pos = Front
	}
	if pos == Back {
		return s.items[len(s.items)-1].item, true
	}
	return s.items[0].item, true
}

func (s *store[T]) peekAll() []T {
	out := make([]T, len(s.items))
	for i := range s.items {
		out[i] = s.items[i].item
	}
	return out
}

// drain removes all records in buffer order.
func (s *store[T]) drain() []record[T] {
	out := s.items
	s.items = nil
	return out
}

func (s *store[T]) processedKeys() []string {
	if s.processed == nil {
		return nil
	}
	return s.processed.Values()
}

func (s *store[T]) hasProcessedKey(key string) bool {
	return s.processed != nil && s.processed.Contains(key)
}

func (s *store[T]) clearProcessedKeys() {
	if s.processed != nil {
		s.processed.Clear()
	}
}

// restore reseeds the store from a prior snapshot. Missing timestamps fall
// back to now; dedup keys are recomputed from the items.
func (s *store[T]) restore(st State[T]) {
	now := s.now()
	s.items = make([]record[T], 0, len(st.Items))
	for i, item := range st.Items {
		rec := record[T]{item: item, insertedAt: now}
		if i < len(st.Timestamps) && !st.Timestamps[i].IsZero() {
			rec.insertedAt = st.Timestamps[i]
		}
		if s.opts.DeduplicateItems {
			rec.key = s.opts.GetItemKey(item)
		}
		s.items = append(s.items, rec)
	}
	if s.processed != nil {
		s.processed.Clear()
		for _, k := range st.ProcessedKeys {
			s.processed.Push(k)
		}
	}
	s.counters = counters{
		executed:  st.Stats.Executed,
		rejected:  st.Stats.Rejected,
		expired:   st.Stats.Expired,
		succeeded: st.Stats.Succeeded,
		errored:   st.Stats.Errored,
		settled:   st.Stats.Settled,
	}
}

func (s *store[T]) snapshot(active int, running bool) State[T] {
	st := State[T]{
		Items:         s.peekAll(),
		Timestamps:    make([]time.Time, len(s.items)),
		ProcessedKeys: s.processedKeys(),
		Stats:         s.stats(active, running),
	}
	for i := range s.items {
		st.Timestamps[i] = s.items[i].insertedAt
	}
	return st
}

func (s *store[T]) stats(active int, running bool) Stats {
	return Stats{
		Size:        len(s.items),
		ActiveCount: active,
		MaxSize:     s.opts.MaxSize,
		Executed:    s.counters.executed,
		Rejected:    s.counters.rejected,
		Expired:     s.counters.expired,
		Succeeded:   s.counters.succeeded,
		Errored:     s.counters.errored,
		Settled:     s.counters.settled,
		Running:     running,
	}
}
