package queue

import (
	"sync"
	"time"

	"github.com/sluice-dev/sluice/pkg/id"
	"github.com/sluice-dev/sluice/pkg/log"
)

// queuerIDs hands out instance ids for log correlation.
var queuerIDs = id.NewGenerator()

// Queuer is the synchronous flavor: each scheduler tick extracts one item and
// runs the worker inline on the tick goroutine.
type Queuer[T any] struct {
	fn     Worker[T]
	opts   Options[T]
	logger log.Logger
	qid    id.ID

	mu      sync.Mutex
	st      *store[T]
	running bool
	// timer is the single owned scheduler handle; nil means no pending tick.
	timer *time.Timer
	// ticking blocks re-arming while a tick is mid-flight.
	ticking bool
	// gen invalidates timer callbacks that fired before a disarm.
	gen uint64
}

// New creates a Queuer around fn. The queuer starts running unless
// opts.Stopped is set.
func New[T any](fn Worker[T], opts Options[T]) (*Queuer[T], error) {
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
	q := &Queuer[T]{fn: fn, opts: opts, qid: queuerIDs.Next()}
	q.logger = opts.Logger.WithComponent("queue").With(log.Str("queue_id", q.qid.Short()))
	q.st = newStore(&q.opts)
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
func (q *Queuer[T]) ID() string { return q.qid.Short() }

// AddItem inserts item, resolving deduplication, capacity, and ordering in
// that order. An optional position overrides the configured insertion end
// (ignored when a priority extractor is set). It reports whether the item is
// now held by the queue.
func (q *Queuer[T]) AddItem(item T, pos ...Position) bool {
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

// GetNextItem removes and returns the next item without executing it.
func (q *Queuer[T]) GetNextItem(pos ...Position) (T, bool) {
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

// Execute removes the next item and runs the worker inline, bypassing the
// schedule. It returns the processed item.
func (q *Queuer[T]) Execute(pos ...Position) (T, bool) {
	q.mu.Lock()
	rec, ok := q.st.extract(q.extractPos(pos))
	if ok {
		q.st.counters.executed++
	}
	q.mu.Unlock()
	if !ok {
		var zero T
		return zero, false
	}
	q.emitItemsChange()
	q.runWorker(rec.item)
	return rec.item, true
}

// Start admits scheduled work and arms the scheduler when items are pending.
func (q *Queuer[T]) Start() {
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

// Stop halts future ticks. It never aborts work already handed to the
// worker: stop means stop admitting, not abort in progress.
func (q *Queuer[T]) Stop() {
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
func (q *Queuer[T]) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Flush removes and processes up to n items (n <= 0 means all pending) from
// the chosen end, bypassing wait intervals. The pending scheduled tick is
// cancelled first so nothing is processed twice. Returns the number of items
// processed.
func (q *Queuer[T]) Flush(n int, pos ...Position) int {
	q.mu.Lock()
	q.disarmLocked()
	if n <= 0 || n > len(q.st.items) {
		n = len(q.st.items)
	}
	q.mu.Unlock()

	processed := 0
	for processed < n {
		q.mu.Lock()
		rec, ok := q.st.extract(q.extractPos(pos))
		if ok {
			q.st.counters.executed++
		}
		q.mu.Unlock()
		if !ok {
			break
		}
		q.emitItemsChange()
		q.runWorker(rec.item)
		processed++
	}

	wait := q.opts.waitFor()
	q.mu.Lock()
	q.armLocked(wait)
	q.mu.Unlock()
	return processed
}

// FlushAsBatch removes all pending items in buffer order and hands them to
// batchFn as one sequence, leaving the queue empty.
func (q *Queuer[T]) FlushAsBatch(batchFn BatchFunc[T]) {
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

// Clear drops all pending items without processing them.
func (q *Queuer[T]) Clear() {
	q.mu.Lock()
	n := len(q.st.items)
	q.st.items = nil
	q.mu.Unlock()
	if n > 0 {
		q.emitItemsChange()
	}
}

// Reset returns the queuer to its constructed state: pending items replaced
// by the configured seeds, counters zeroed, processed keys cleared. The
// running flag is left as-is and in-flight work is untouched.
func (q *Queuer[T]) Reset() {
	q.mu.Lock()
	q.disarmLocked()
	q.st.items = nil
	q.st.counters = counters{}
	q.st.clearProcessedKeys()
	q.mu.Unlock()
	q.emitItemsChange()
	for _, item := range q.opts.InitialItems {
		q.AddItem(item)
	}
}

// PeekNextItem returns the next item without removing it.
func (q *Queuer[T]) PeekNextItem(pos ...Position) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.peek(q.extractPos(pos))
}

// PeekAllItems returns pending items in extraction order.
func (q *Queuer[T]) PeekAllItems() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.peekAll()
}

// Size returns the number of pending items.
func (q *Queuer[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.st.items)
}

// Stats returns a point-in-time view of the queuer.
func (q *Queuer[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.stats(0, q.running)
}

// Snapshot returns the full queue state for inspection or reseeding.
func (q *Queuer[T]) Snapshot() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.snapshot(0, q.running)
}

// HasProcessedKey reports whether key is in the processed history.
func (q *Queuer[T]) HasProcessedKey(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.hasProcessedKey(key)
}

// PeekProcessedKeys returns the processed history, oldest first.
func (q *Queuer[T]) PeekProcessedKeys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.processedKeys()
}

// ClearProcessedKeys resets the processed history only.
func (q *Queuer[T]) ClearProcessedKeys() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.st.clearProcessedKeys()
}

// tick is one scheduler pass. It sweeps expirations and then processes items
// inline, looping immediately at wait zero or re-arming after the wait.
func (q *Queuer[T]) tick(gen uint64) {
	q.mu.Lock()
	if gen != q.gen {
		q.mu.Unlock()
		return
	}
	q.timer = nil
	q.ticking = true
	for {
		if !q.running {
			break
		}
		if expired := q.st.sweep(); len(expired) > 0 {
			q.mu.Unlock()
			q.notifyExpired(expired)
			q.mu.Lock()
		}
		// Re-read running: an expire callback may have stopped us.
		if !q.running {
			break
		}
		rec, ok := q.st.extract(q.extractPos(nil))
		if !ok {
			break
		}
		q.st.counters.executed++
		q.mu.Unlock()
		q.emitItemsChange()
		q.runWorker(rec.item)
		wait := q.opts.waitFor()
		q.mu.Lock()
		if wait > 0 {
			q.ticking = false
			q.armLocked(wait)
			q.mu.Unlock()
			return
		}
	}
	q.ticking = false
	q.mu.Unlock()
}

// armLocked schedules the next tick after d when the scheduler is idle, the
// queuer is running, and items are pending.
func (q *Queuer[T]) armLocked(d time.Duration) {
	if q.timer != nil || q.ticking || !q.running || len(q.st.items) == 0 {
		return
	}
	gen := q.gen
	q.timer = time.AfterFunc(d, func() { q.tick(gen) })
}

// disarmLocked cancels any pending tick. Bumping gen also neutralizes a
// timer callback that already fired but has not taken the lock yet.
func (q *Queuer[T]) disarmLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.gen++
}

func (q *Queuer[T]) runWorker(item T) {
	panicked := true
	defer func() {
		if panicked {
			if p := recover(); p != nil {
				q.logger.Error("worker panic", log.F("panic", p))
			}
		}
	}()
	q.fn(item)
	panicked = false
	q.emitExecute(item)
}

func (q *Queuer[T]) notifyExpired(expired []record[T]) {
	q.logger.Debug("expired items swept", log.Int("count", len(expired)))
	for _, rec := range expired {
		q.emitExpire(rec.item)
	}
	// One items-changed notification per sweep, not per item.
	q.emitItemsChange()
}

func (q *Queuer[T]) emitItemsChange() {
	safeCall(q.logger, "onItemsChange", q.opts.OnItemsChange)
}

func (q *Queuer[T]) emitDuplicate(item T, existing *T) {
	if cb := q.opts.OnDuplicate; cb != nil {
		safeCall(q.logger, "onDuplicate", func() { cb(item, existing) })
	}
}

func (q *Queuer[T]) emitReject(item T) {
	if cb := q.opts.OnReject; cb != nil {
		safeCall(q.logger, "onReject", func() { cb(item) })
	}
}

func (q *Queuer[T]) emitExpire(item T) {
	if cb := q.opts.OnExpire; cb != nil {
		safeCall(q.logger, "onExpire", func() { cb(item) })
	}
}

func (q *Queuer[T]) emitExecute(item T) {
	if cb := q.opts.OnExecute; cb != nil {
		safeCall(q.logger, "onExecute", func() { cb(item) })
	}
}

func (q *Queuer[T]) emitRunningChange(running bool) {
	if cb := q.opts.OnIsRunningChange; cb != nil {
		safeCall(q.logger, "onIsRunningChange", func() { cb(running) })
	}
}

func (q *Queuer[T]) insertPos(override []Position) Position {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return q.opts.AddItemsTo
}

func (q *Queuer[T]) extractPos(override []Position) Position {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return q.opts.GetItemsFrom
}

func safeCall(logger log.Logger, name string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("callback panic", log.Str("callback", name), log.F("panic", p))
		}
	}()
	fn()
}
