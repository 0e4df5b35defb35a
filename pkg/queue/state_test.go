package queue

import (
	"testing"
	"time"
)

func testStore(opts Options[int]) *store[int] {
	opts.normalize()
	return newStore(&opts)
}

func TestStoreSweepByDuration(t *testing.T) {
	s := testStore(Options[int]{ExpirationDuration: 10 * time.Millisecond})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.insert(1, Back)
	s.now = func() time.Time { return base.Add(5 * time.Millisecond) }
	s.insert(2, Back)

	s.now = func() time.Time { return base.Add(12 * time.Millisecond) }
	removed := s.sweep()
	if len(removed) != 1 || removed[0].item != 1 {
		t.Fatalf("removed = %+v", removed)
	}
	if len(s.items) != 1 || s.items[0].item != 2 {
		t.Fatalf("kept = %+v", s.items)
	}
	if s.counters.expired != 1 {
		t.Fatalf("expired counter = %d", s.counters.expired)
	}
}

func TestStoreSweepDisabled(t *testing.T) {
	s := testStore(Options[int]{})
	s.insert(1, Back)
	if removed := s.sweep(); removed != nil {
		t.Fatalf("sweep without expiry removed %+v", removed)
	}
}

func TestStoreSweepKeepsBufferOrder(t *testing.T) {
	s := testStore(Options[int]{
		GetIsExpired: func(n int, _ time.Time) bool { return n%2 == 0 },
	})
	for n := 1; n <= 5; n++ {
		s.insert(n, Back)
	}
	removed := s.sweep()
	if len(removed) != 2 || removed[0].item != 2 || removed[1].item != 4 {
		t.Fatalf("removed = %+v", removed)
	}
	kept := s.peekAll()
	if len(kept) != 3 || kept[0] != 1 || kept[1] != 3 || kept[2] != 5 {
		t.Fatalf("kept = %v", kept)
	}
}

func TestStorePriorityInsertBeforeLower(t *testing.T) {
	prio := map[int]int{10: 1, 20: 2, 30: 3}
	s := testStore(Options[int]{GetPriority: func(n int) int { return prio[n] }})
	s.insert(10, Back)
	s.insert(30, Back)
	s.insert(20, Back)
	got := s.peekAll()
	if got[0] != 30 || got[1] != 20 || got[2] != 10 {
		t.Fatalf("order = %v", got)
	}
}

func TestStoreRestoreDefaultsMissingTimestamps(t *testing.T) {
	s := testStore(Options[int]{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	stamp := base.Add(-time.Minute)
	s.restore(State[int]{
		Items:      []int{1, 2},
		Timestamps: []time.Time{stamp},
		Stats:      Stats{Executed: 7},
	})
	if !s.items[0].insertedAt.Equal(stamp) {
		t.Fatalf("timestamp not restored: %v", s.items[0].insertedAt)
	}
	if !s.items[1].insertedAt.Equal(base) {
		t.Fatalf("missing timestamp should fall back to now: %v", s.items[1].insertedAt)
	}
	if s.counters.executed != 7 {
		t.Fatalf("counters = %+v", s.counters)
	}
}
