package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sluice-dev/sluice/pkg/id"
	"github.com/sluice-dev/sluice/pkg/log"
)

// AsyncQueuer is the asynchronous flavor: each tick dispatches workers into
// goroutines, bounded by the concurrency ceiling. Extraction order is fixed
// by the buffer; settlement order is not.
type AsyncQueuer[T, R any] struct {
	fn     AsyncWorker[T, R]
	opts   AsyncOptions[T, R]
	logger log.Logger
	qid    id.ID

	mu      sync.Mutex
	st      *store[T]
	running bool
	timer   *time.Timer
	ticking bool
	gen     uint64

	// active is the set of records currently executing, keyed by a sortable
	// per-dispatch id. A record is never pending and active at once.
	active  map[id.ID]T
	rids    *id.Generator
	last    R
	hasLast bool
}

// NewAsync creates an AsyncQueuer around fn. The queuer starts running
// unless opts.Stopped is set.
func NewAsync[T, R any](fn AsyncWorker[T, R], opts AsyncOptions[T, R]) (*AsyncQueuer[T, R], error) {
	if fn == nil {
		return nil, ErrNilWorker
	}
	if err := validPosition(opts.AddItemsTo); err != nil {
		return nil, err
	}
	if err := validPosition(opts.GetItemsFrom); err != nil {
		return nil, err
	}
	opts.normalize()
	q := &AsyncQueuer[T, R]{
		fn:     fn,
		opts:   opts,
		qid:    queuerIDs.Next(),
		active: make(map[id.ID]T),
		rids:   id.NewGenerator(),
	}
	q.logger = opts.Logger.WithComponent("async_queue").With(log.Str("queue_id", q.qid.Short()))
	q.st = newStore(&q.opts.Options)
	q.running = !opts.Stopped
	if opts.InitialState != nil {
		q.st.restore(*opts.InitialState)
	}
	for _, item := range opts.InitialItems {
		q.AddItem(item)
	}
	q.mu.Lock()
	q.armLocked(0)
	q.mu.Unlock()
	return q, nil
}

// ID returns the instance id used in log fields.
func (q *AsyncQueuer[T, R]) ID() string { return q.qid.Short() }

// AddItem inserts item under the same dedup, capacity, and ordering rules as
// the sync flavor, arming the scheduler when it is idle.
func (q *AsyncQueuer[T, R]) AddItem(item T, pos ...Position) bool {
	q.mu.Lock()
	outcome, existing := q.st.insert(item, q.insertPos(pos))
	if outcome == inserted || outcome == replaced {
		q.armLocked(0)
	}
	q.mu.Unlock()

	switch outcome {
	case inserted:
		q.emitItemsChange()
		return true
	case replaced:
		q.emitDuplicate(item, existing)
		q.emitItemsChange()
		return true
	case duplicatePending:
		q.emitDuplicate(item, existing)
		return false
	case duplicateProcessed:
		q.emitDuplicate(item, nil)
		return false
	default: // rejectedFull
		q.logger.Debug("item rejected at capacity", log.Int("max_size", q.opts.MaxSize))
		q.emitReject(item)
		return false
	}
}

// GetNextItem removes and returns the next item without dispatching it.
func (q *AsyncQueuer[T, R]) GetNextItem(pos ...Position) (T, bool) {
	q.mu.Lock()
	rec, ok := q.st.extract(q.extractPos(pos))
	q.mu.Unlock()
	if !ok {
		var zero T
		return zero, false
	}
	q.emitItemsChange()
	return rec.item, true
}

// Execute dispatches the next item immediately, bypassing the wait interval
// but still honoring the concurrency ceiling. It returns the dispatched item.
func (q *AsyncQueuer[T, R]) Execute(pos ...Position) (T, bool) {
	dispatched := q.dispatch(1, q.extractPos(pos))
	if len(dispatched) == 0 {
		var zero T
		return zero, false
	}
	return dispatched[0], true
}

// Start admits scheduled work and arms the scheduler when items are pending.
func (q *AsyncQueuer[T, R]) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.armLocked(0)
	q.mu.Unlock()
	q.logger.Debug("queue started")
	q.emitRunningChange(true)
}

// Stop halts future ticks. In-flight workers are never aborted; they settle
// normally and their callbacks still fire.
func (q *AsyncQueuer[T, R]) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.disarmLocked()
	q.mu.Unlock()
	q.logger.Debug("queue stopped")
	q.emitRunningChange(false)
}

// IsRunning reports whether scheduled work is admitted.
func (q *AsyncQueuer[T, R]) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Flush dispatches up to n pending items (n <= 0 means all) from the chosen
// end, bypassing wait intervals but not the concurrency ceiling. The pending
// scheduled tick is cancelled first. Returns the number dispatched.
func (q *AsyncQueuer[T, R]) Flush(n int, pos ...Position) int {
	q.mu.Lock()
	q.disarmLocked()
	if n <= 0 {
		n = len(q.st.items)
	}
	q.mu.Unlock()
	return len(q.dispatch(n, q.extractPos(pos)))
}

// FlushAsBatch removes all pending items in buffer order and hands them to
// batchFn as one sequence, leaving the queue empty. The batch bypasses the
// worker entirely.
func (q *AsyncQueuer[T, R]) FlushAsBatch(batchFn BatchFunc[T]) {
	q.mu.Lock()
	q.disarmLocked()
	recs := q.st.drain()
	for _, rec := range recs {
		q.st.markProcessed(rec)
	}
	q.st.counters.executed += uint64(len(recs))
	q.mu.Unlock()
	if len(recs) == 0 {
		return
	}
	items := make([]T, len(recs))
	for i := range recs {
		items[i] = recs[i].item
	}
	safeCall(q.logger, "batchFn", func() { batchFn(items) })
	q.emitItemsChange()
}

// Clear drops all pending items. In-flight work is untouched.
func (q *AsyncQueuer[T, R]) Clear() {
	q.mu.Lock()
	n := len(q.st.items)
	q.st.items = nil
	q.mu.Unlock()
	if n > 0 {
		q.emitItemsChange()
	}
}

// Reset returns the queuer to its constructed state. The running flag and
// in-flight work are untouched.
func (q *AsyncQueuer[T, R]) Reset() {
	q.mu.Lock()
	q.disarmLocked()
	q.st.items = nil
	q.st.counters = counters{}
	q.st.clearProcessedKeys()
	q.hasLast = false
	var zero R
	q.last = zero
	q.mu.Unlock()
	q.emitItemsChange()
	for _, item := range q.opts.InitialItems {
		q.AddItem(item)
	}
}

// PeekNextItem returns the next item without removing it.
func (q *AsyncQueuer[T, R]) PeekNextItem(pos ...Position) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.peek(q.extractPos(pos))
}

// PeekAllItems returns pending items in extraction order. Active items are
// not included.
func (q *AsyncQueuer[T, R]) PeekAllItems() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.peekAll()
}

// ActiveItems returns the items currently executing, in dispatch order.
func (q *AsyncQueuer[T, R]) ActiveItems() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]id.ID, 0, len(q.active))
	for rid := range q.active {
		ids = append(ids, rid)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Compare(ids[j-1]) < 0; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	out := make([]T, len(ids))
	for i, rid := range ids {
		out[i] = q.active[rid]
	}
	return out
}

// LastResult returns the most recent successful worker result.
func (q *AsyncQueuer[T, R]) LastResult() (R, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last, q.hasLast
}

// Size returns the number of pending items.
func (q *AsyncQueuer[T, R]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.st.items)
}

// Stats returns a point-in-time view of the queuer.
func (q *AsyncQueuer[T, R]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.stats(len(q.active), q.running)
}

// Snapshot returns the full queue state for inspection or reseeding.
func (q *AsyncQueuer[T, R]) Snapshot() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.snapshot(len(q.active), q.running)
}

// HasProcessedKey reports whether key is in the processed history.
func (q *AsyncQueuer[T, R]) HasProcessedKey(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.hasProcessedKey(key)
}

// PeekProcessedKeys returns the processed history, oldest first.
func (q *AsyncQueuer[T, R]) PeekProcessedKeys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.processedKeys()
}

// ClearProcessedKeys resets the processed history only.
func (q *AsyncQueuer[T, R]) ClearProcessedKeys() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.st.clearProcessedKeys()
}

// tick is one scheduler pass: sweep expirations, then fill remaining
// concurrency capacity and return. Settlements re-arm the next tick.
func (q *AsyncQueuer[T, R]) tick(gen uint64) {
	q.mu.Lock()
	if gen != q.gen {
		q.mu.Unlock()
		return
	}
	q.timer = nil
	q.mu.Unlock()
	q.dispatch(-1, q.extractPos(nil))
}

type asyncDispatch[T any] struct {
	rid  id.ID
	item T
}

// dispatch sweeps, then extracts and launches up to max items (max < 0 means
// fill capacity), honoring the concurrency ceiling resolved before every
// extraction. It returns the dispatched items in order.
func (q *AsyncQueuer[T, R]) dispatch(max int, pos Position) []T {
	q.mu.Lock()
	if q.ticking {
		// A reentrant dispatch (callback calling Flush/Execute) defers to
		// the pass already in progress.
		q.mu.Unlock()
		return nil
	}
	q.ticking = true
	expired := q.st.sweep()
	if len(expired) > 0 {
		q.mu.Unlock()
		q.notifyExpired(expired)
		q.mu.Lock()
	}
	var batch []asyncDispatch[T]
	for (max < 0 || len(batch) < max) && len(q.active) < q.opts.concurrency() {
		if max < 0 && !q.running {
			break
		}
		rec, ok := q.st.extract(pos)
		if !ok {
			break
		}
		rid := q.rids.Next()
		q.active[rid] = rec.item
		q.st.counters.executed++
		batch = append(batch, asyncDispatch[T]{rid: rid, item: rec.item})
	}
	q.ticking = false
	q.mu.Unlock()

	if len(batch) > 0 {
		q.emitItemsChange()
	}
	items := make([]T, len(batch))
	for i, d := range batch {
		items[i] = d.item
		q.emitExecute(d.item)
		go q.run(d.rid, d.item)
	}
	return items
}

// run executes one dispatched record and settles it. It never panics: worker
// panics become errors at this boundary.
func (q *AsyncQueuer[T, R]) run(rid id.ID, item T) {
	res, err := q.invoke(item)

	q.mu.Lock()
	delete(q.active, rid)
	if err != nil {
		q.st.counters.errored++
	} else {
		q.st.counters.succeeded++
		q.last = res
		q.hasLast = true
	}
	q.st.counters.settled++
	q.mu.Unlock()

	q.emitItemsChange()
	if err != nil {
		// onError always precedes onSettled; without a handler the error is
		// reported here and the scheduler carries on.
		if cb := q.opts.OnError; cb != nil {
			safeCall(q.logger, "onError", func() { cb(err, item) })
		} else {
			q.logger.Error("worker error", log.Err(err))
		}
	} else if cb := q.opts.OnSuccess; cb != nil {
		safeCall(q.logger, "onSuccess", func() { cb(res, item) })
	}
	if cb := q.opts.OnSettled; cb != nil {
		safeCall(q.logger, "onSettled", func() { cb(item) })
	}

	wait := q.opts.waitFor()
	q.mu.Lock()
	q.armLocked(wait)
	q.mu.Unlock()
}

func (q *AsyncQueuer[T, R]) invoke(item T) (res R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("queue: worker panic: %v", p)
		}
	}()
	return q.fn(context.Background(), item)
}

func (q *AsyncQueuer[T, R]) armLocked(d time.Duration) {
	if q.timer != nil || q.ticking || !q.running || len(q.st.items) == 0 {
		return
	}
	if len(q.active) >= q.opts.concurrency() {
		// No capacity; the freeing settlement will re-arm.
		return
	}
	gen := q.gen
	q.timer = time.AfterFunc(d, func() { q.tick(gen) })
}

func (q *AsyncQueuer[T, R]) disarmLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.gen++
}

func (q *AsyncQueuer[T, R]) notifyExpired(expired []record[T]) {
	q.logger.Debug("expired items swept", log.Int("count", len(expired)))
	for _, rec := range expired {
		q.emitExpire(rec.item)
	}
	q.emitItemsChange()
}

func (q *AsyncQueuer[T, R]) emitItemsChange() {
	safeCall(q.logger, "onItemsChange", q.opts.OnItemsChange)
}

func (q *AsyncQueuer[T, R]) emitDuplicate(item T, existing *T) {
	if cb := q.opts.OnDuplicate; cb != nil {
		safeCall(q.logger, "onDuplicate", func() { cb(item, existing) })
	}
}

func (q *AsyncQueuer[T, R]) emitReject(item T) {
	if cb := q.opts.OnReject; cb != nil {
		safeCall(q.logger, "onReject", func() { cb(item) })
	}
}

func (q *AsyncQueuer[T, R]) emitExpire(item T) {
	if cb := q.opts.OnExpire; cb != nil {
		safeCall(q.logger, "onExpire", func() { cb(item) })
	}
}

func (q *AsyncQueuer[T, R]) emitExecute(item T) {
	if cb := q.opts.OnExecute; cb != nil {
		safeCall(q.logger, "onExecute", func() { cb(item) })
	}
}

func (q *AsyncQueuer[T, R]) emitRunningChange(running bool) {
	if cb := q.opts.OnIsRunningChange; cb != nil {
		safeCall(q.logger, "onIsRunningChange", func() { cb(running) })
	}
}

func (q *AsyncQueuer[T, R]) insertPos(override []Position) Position {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return q.opts.AddItemsTo
}

func (q *AsyncQueuer[T, R]) extractPos(override []Position) Position {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return q.opts.GetItemsFrom
}
