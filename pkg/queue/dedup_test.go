package queue

import (
	"testing"
)

type job struct {
	key string
	seq int
}

func dedupQueuer(t *testing.T, opts Options[job]) *Queuer[job] {
	t.Helper()
	opts.Stopped = true
	opts.DeduplicateItems = true
	opts.GetItemKey = func(j job) string { return j.key }
	q, err := New(func(job) {}, opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return q
}

func TestDedupKeepFirst(t *testing.T) {
	var dupItem *job
	var dupExisting *job
	q := dedupQueuer(t, Options[job]{
		OnDuplicate: func(item job, existing *job) {
			dupItem = &item
			dupExisting = existing
		},
	})
	if !q.AddItem(job{"a", 1}) {
		t.Fatalf("first add should succeed")
	}
	if q.AddItem(job{"a", 2}) {
		t.Fatalf("pending duplicate should be ignored under keep-first")
	}
	if q.Size() != 1 {
		t.Fatalf("size = %d", q.Size())
	}
	got, _ := q.PeekNextItem()
	if got.seq != 1 {
		t.Fatalf("keep-first replaced the pending item: %+v", got)
	}
	if dupItem == nil || dupItem.seq != 2 || dupExisting == nil || dupExisting.seq != 1 {
		t.Fatalf("onDuplicate item=%+v existing=%+v", dupItem, dupExisting)
	}
}

func TestDedupKeepLastReplacesInPlace(t *testing.T) {
	q := dedupQueuer(t, Options[job]{DeduplicateStrategy: KeepLast})
	q.AddItem(job{"a", 1})
	q.AddItem(job{"b", 1})
	if !q.AddItem(job{"a", 2}) {
		t.Fatalf("keep-last add should report the item as held")
	}
	all := q.PeekAllItems()
	if len(all) != 2 {
		t.Fatalf("size = %d", len(all))
	}
	// The replacement keeps the original buffer position.
	if all[0].key != "a" || all[0].seq != 2 || all[1].key != "b" {
		t.Fatalf("buffer = %+v", all)
	}
}

func TestDedupProcessedHistory(t *testing.T) {
	q := dedupQueuer(t, Options[job]{})
	q.AddItem(job{"a", 1})
	q.Execute()
	if !q.HasProcessedKey("a") {
		t.Fatalf("execution did not record the key")
	}
	if q.AddItem(job{"a", 2}) {
		t.Fatalf("processed key should block re-admission")
	}
	q.ClearProcessedKeys()
	if !q.AddItem(job{"a", 3}) {
		t.Fatalf("cleared history should re-admit the key")
	}
}

func TestDedupHistoryEviction(t *testing.T) {
	q := dedupQueuer(t, Options[job]{MaxTrackedKeys: 2})
	for _, k := range []string{"a", "b", "c"} {
		q.AddItem(job{k, 1})
		q.Execute()
	}
	keys := q.PeekProcessedKeys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
		t.Fatalf("history = %v", keys)
	}
	if q.HasProcessedKey("a") {
		t.Fatalf("oldest key should have been evicted")
	}
	if !q.AddItem(job{"a", 2}) {
		t.Fatalf("evicted key should be admitted again")
	}
}

func TestDedupResolvedBeforeCapacity(t *testing.T) {
	q := dedupQueuer(t, Options[job]{MaxSize: 1, DeduplicateStrategy: KeepLast})
	q.AddItem(job{"a", 1})
	// A duplicate of a pending item is a replacement, never an overflow.
	if !q.AddItem(job{"a", 2}) {
		t.Fatalf("duplicate rejected as overflow")
	}
	if q.Stats().Rejected != 0 {
		t.Fatalf("stats = %+v", q.Stats())
	}
	if q.AddItem(job{"b", 1}) {
		t.Fatalf("distinct key should hit the capacity bound")
	}
	if q.Stats().Rejected != 1 {
		t.Fatalf("stats = %+v", q.Stats())
	}
}

func TestDedupGetNextItemRecordsKey(t *testing.T) {
	q := dedupQueuer(t, Options[job]{})
	q.AddItem(job{"a", 1})
	q.GetNextItem()
	if !q.HasProcessedKey("a") {
		t.Fatalf("manual extraction must record the key")
	}
}

func TestDedupBatchFlushRecordsKeys(t *testing.T) {
	q := dedupQueuer(t, Options[job]{})
	q.AddItem(job{"a", 1})
	q.AddItem(job{"b", 1})
	q.FlushAsBatch(func([]job) {})
	for _, k := range []string{"a", "b"} {
		if !q.HasProcessedKey(k) {
			t.Fatalf("batch flush dropped key %q", k)
		}
	}
}

func TestDedupDisabledTracksNothing(t *testing.T) {
	q, _ := New(func(int) {}, Options[int]{Stopped: true})
	q.AddItem(1)
	q.Execute()
	if q.HasProcessedKey("1") {
		t.Fatalf("history tracked without dedup enabled")
	}
	if got := q.PeekProcessedKeys(); got != nil {
		t.Fatalf("keys = %v", got)
	}
	if !q.AddItem(1) {
		t.Fatalf("repeat add should succeed without dedup")
	}
}
