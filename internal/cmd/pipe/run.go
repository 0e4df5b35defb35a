package pipe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sluice-dev/sluice/internal/config"
	logpkg "github.com/sluice-dev/sluice/pkg/log"
	"github.com/sluice-dev/sluice/pkg/metrics"
	"github.com/sluice-dev/sluice/pkg/queue"
)

// Line is one unit of pipe work: an input line tagged with an id and its
// position in the stream.
type Line struct {
	ID   string
	No   int
	Text string
}

// Options configures a pipe run.
type Options struct {
	Profile config.Profile
	// MetricsAddr serves prometheus metrics when non-empty, e.g. ":9090".
	MetricsAddr string
	In          io.Reader
	Out         io.Writer
	Logger      logpkg.Logger
}

// Run feeds lines from In through an async queuer until In is exhausted or
// ctx is cancelled, then drains in-flight work. It returns the first fatal
// setup error; worker and filter failures are per-line, not fatal.
func Run(ctx context.Context, opts Options) error {
	prof := opts.Profile
	if err := prof.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	logger = logger.WithComponent("pipe")

	filter, err := newLineFilter(prof.Filter)
	if err != nil {
		return fmt.Errorf("compile filter: %w", err)
	}

	var outMu sync.Mutex
	worker := func(_ context.Context, line Line) (string, error) {
		outMu.Lock()
		defer outMu.Unlock()
		if _, err := fmt.Fprintln(opts.Out, line.Text); err != nil {
			return "", fmt.Errorf("write line %d: %w", line.No, err)
		}
		return line.ID, nil
	}

	q, err := queue.NewAsync(worker, queue.AsyncOptions[Line, string]{
		Options: queue.Options[Line]{
			MaxSize:            prof.MaxSize,
			Wait:               prof.Wait.Std(),
			ExpirationDuration: prof.Expiration.Std(),
			DeduplicateItems:   prof.Dedup,
			GetItemKey:         func(line Line) string { return line.Text },
			MaxTrackedKeys:     prof.MaxTrackedKeys,
			OnReject: func(line Line) {
				logger.Warn("line rejected at capacity", logpkg.Int("line_no", line.No))
			},
			OnExpire: func(line Line) {
				logger.Warn("line expired before processing", logpkg.Int("line_no", line.No))
			},
			Logger: logger,
		},
		Concurrency: prof.Concurrency,
		OnError: func(err error, line Line) {
			logger.Error("line failed", logpkg.Int("line_no", line.No), logpkg.Err(err))
		},
	})
	if err != nil {
		return err
	}

	stopMetrics, err := serveMetrics(opts.MetricsAddr, q, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	var limiter *rate.Limiter
	if prof.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(prof.Rate), 1)
	}

	scanner := bufio.NewScanner(opts.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		lineNo++
		text := scanner.Text()
		if !filter.Eval(text, lineNo) {
			logger.Debug("line filtered", logpkg.Int("line_no", lineNo))
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		q.AddItem(Line{ID: uuid.NewString(), No: lineNo, Text: text})
	}
	if err := scanner.Err(); err != nil {
		q.Stop()
		return fmt.Errorf("read input: %w", err)
	}

	if ctx.Err() != nil {
		// Interrupted: stop admitting and let in-flight work settle.
		q.Stop()
	}
	drain(ctx, q)

	stats := q.Stats()
	logger.Info("pipe finished",
		logpkg.Int("lines_read", lineNo),
		logpkg.Int64("executed", int64(stats.Executed)),
		logpkg.Int64("rejected", int64(stats.Rejected)),
		logpkg.Int64("expired", int64(stats.Expired)),
		logpkg.Int64("errored", int64(stats.Errored)),
	)
	return nil
}

// drain waits until nothing is pending or in flight. After an interrupt only
// in-flight work is awaited; pending items are left unprocessed.
func drain(ctx context.Context, q *queue.AsyncQueuer[Line, string]) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		s := q.Stats()
		if ctx.Err() != nil {
			if s.ActiveCount == 0 {
				return
			}
			continue
		}
		if s.Size == 0 && s.ActiveCount == 0 {
			return
		}
	}
}

// serveMetrics exposes the queue collector on addr, returning a shutdown
// func. An empty addr is a no-op.
func serveMetrics(addr string, source metrics.StatsSource, logger logpkg.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector("pipe", source)); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", logpkg.Err(err))
		}
	}()
	logger.Info("metrics listening", logpkg.Str("addr", addr))
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
