package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sluice-dev/sluice/pkg/log"
)

// Position names an end of the buffer.
type Position string

// Buffer ends.
const (
	Front Position = "front"
	Back  Position = "back"
)

// DedupStrategy decides how a pending duplicate is resolved.
type DedupStrategy string

// Duplicate strategies.
const (
	// KeepFirst ignores the new item and keeps the pending one.
	KeepFirst DedupStrategy = "keep-first"
	// KeepLast replaces the pending record in place, preserving its position.
	KeepLast DedupStrategy = "keep-last"
)

// Status is the observable scheduler state.
type Status string

// Statuses.
const (
	StatusStopped Status = "stopped" // not admitting scheduled work
	StatusIdle    Status = "idle"    // running, empty, nothing in flight
	StatusRunning Status = "running" // running with pending or in-flight work
)

// Worker processes one item synchronously.
type Worker[T any] func(item T)

// AsyncWorker processes one item and settles with a result or an error.
type AsyncWorker[T, R any] func(ctx context.Context, item T) (R, error)

// BatchFunc receives all drained items as one sequence.
type BatchFunc[T any] func(items []T)

// ErrNilWorker is returned when a queuer is constructed without a worker.
var ErrNilWorker = errors.New("queue: worker function is required")

// DefaultMaxTrackedKeys bounds the processed-key history when deduplication
// is enabled and no explicit bound is configured.
const DefaultMaxTrackedKeys = 128

// Options configures a Queuer. The zero value is usable: unbounded size,
// append to back, extract from front, no wait, started.
type Options[T any] struct {
	// AddItemsTo is the default insertion end. Defaults to Back.
	AddItemsTo Position
	// GetItemsFrom is the extraction end. Defaults to Front.
	GetItemsFrom Position
	// MaxSize is the backpressure ceiling; 0 means unbounded.
	MaxSize int

	// GetPriority, when set, overrides positional placement entirely.
	// Higher priorities extract first; equal priorities extract FIFO.
	GetPriority func(item T) int

	// ExpirationDuration ages items out of the buffer; 0 disables expiry.
	ExpirationDuration time.Duration
	// GetIsExpired overrides ExpirationDuration when set.
	GetIsExpired func(item T, insertedAt time.Time) bool

	// DeduplicateItems enables key-based deduplication.
	DeduplicateItems bool
	// GetItemKey derives the dedup key. Defaults to fmt.Sprint(item).
	GetItemKey func(item T) string
	// DeduplicateStrategy resolves pending duplicates. Defaults to KeepFirst.
	DeduplicateStrategy DedupStrategy
	// MaxTrackedKeys bounds the processed-key history, oldest evicted first.
	// Defaults to DefaultMaxTrackedKeys.
	MaxTrackedKeys int

	// Wait spaces scheduler ticks. WaitFunc, when set, wins and is resolved
	// at every use, never cached.
	Wait     time.Duration
	WaitFunc func() time.Duration

	// Stopped constructs the queuer without admitting scheduled work until
	// Start is called.
	Stopped bool
	// InitialItems seeds the buffer through the normal insertion path.
	InitialItems []T
	// InitialState restores a prior Snapshot: items with their original
	// timestamps, the processed-key history, and counters. Applied before
	// InitialItems.
	InitialState *State[T]

	// Callbacks. All run outside the engine lock and are isolated: a panic
	// in one is logged and cannot corrupt engine state.
	OnItemsChange     func()
	OnReject          func(item T)
	OnExpire          func(item T)
	OnDuplicate       func(item T, existing *T)
	OnExecute         func(item T)
	OnIsRunningChange func(running bool)

	// Logger receives engine events. Defaults to a no-op logger.
	Logger log.Logger
}

// AsyncOptions configures an AsyncQueuer.
type AsyncOptions[T, R any] struct {
	Options[T]

	// Concurrency is the in-flight ceiling. ConcurrencyFunc, when set, wins
	// and is resolved before every extraction. It runs under the engine lock
	// and must not call back into the queuer. Defaults to 1.
	Concurrency     int
	ConcurrencyFunc func() int

	// OnSuccess fires after a worker settles without error, before
	// OnSettled.
	OnSuccess func(result R, item T)
	// OnError fires after a worker settles with an error, before OnSettled.
	// When absent, settle errors are logged instead.
	OnError func(err error, item T)
	// OnSettled fires after every settlement, success or failure.
	OnSettled func(item T)
}

func (o *Options[T]) normalize() {
	if o.AddItemsTo == "" {
		o.AddItemsTo = Back
	}
	if o.GetItemsFrom == "" {
		o.GetItemsFrom = Front
	}
	if o.GetItemKey == nil {
		o.GetItemKey = func(item T) string { return fmt.Sprint(item) }
	}
	if o.DeduplicateStrategy == "" {
		o.DeduplicateStrategy = KeepFirst
	}
	if o.MaxTrackedKeys <= 0 {
		o.MaxTrackedKeys = DefaultMaxTrackedKeys
	}
	if o.Logger == nil {
		o.Logger = log.NewNopLogger()
	}
}

func (o *Options[T]) waitFor() time.Duration {
	if o.WaitFunc != nil {
		return o.WaitFunc()
	}
	return o.Wait
}

func (o *AsyncOptions[T, R]) concurrency() int {
	n := o.Concurrency
	if o.ConcurrencyFunc != nil {
		n = o.ConcurrencyFunc()
	}
	if n < 1 {
		n = 1
	}
	return n
}

func validPosition(p Position) error {
	switch p {
	case Front, Back, "":
		return nil
	default:
		return fmt.Errorf("queue: invalid position %q", p)
	}
}
