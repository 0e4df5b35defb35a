// Package queue implements Sluice's queuing and concurrency-controlled
// execution engine: a buffered holding structure for pending work plus a
// scheduler that drains it under configurable ordering, concurrency,
// expiration, deduplication, and backpressure rules.
//
// Two flavors share the same buffer semantics:
//
//   - Queuer: a synchronous queue whose worker runs inline on each tick
//   - AsyncQueuer: an asynchronous queue that dispatches workers into
//     goroutines bounded by a concurrency ceiling
//
// # Buffer semantics
//
// Insertion resolves in a fixed order: deduplication first, then the capacity
// check, then placement. With a priority extractor configured, placement is a
// stable descending sort (equal priorities keep insertion order, FIFO among
// ties) and both configured ends are ignored; otherwise items land at the
// configured insertion end and leave from the configured extraction end,
// giving FIFO, LIFO, or double-ended use.
//
// Deduplication tracks both pending items and a bounded, FIFO-evicted history
// of processed keys. A key matching a pending item is resolved by strategy
// (keep-first ignores the new item, keep-last replaces the pending record in
// place); a key matching the processed history is dropped.
//
// # Scheduling
//
// The scheduler is either idle or armed on a single owned timer. Each tick
// sweeps expired items, then extracts and dispatches while capacity remains:
// one item for the sync flavor, up to the concurrency ceiling for the async
// flavor. A configured wait interval spaces ticks; adding an item to an idle
// running queue arms the scheduler immediately.
//
// Stop halts future ticks but never aborts dispatched work, and Flush drains
// items on demand outside the timed schedule.
//
// # Lifecycle counters
//
//	| Counter   | Incremented when                         |
//	|-----------|------------------------------------------|
//	| Executed  | a worker is invoked for an item          |
//	| Rejected  | an add is refused by the capacity bound  |
//	| Expired   | the sweeper removes a stale item         |
//	| Succeeded | an async worker settles without error    |
//	| Errored   | an async worker settles with an error    |
//	| Settled   | an async worker settles either way       |
//
// All mutation goes through a single entry point guarded by one mutex, and
// callbacks run outside it against fresh state, so reentrant AddItem or Stop
// calls issued from inside a callback are safe. A callback that panics is
// isolated and logged; it cannot desynchronize counters or abort a settle
// sequence.
package queue
