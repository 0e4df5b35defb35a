package log

import (
	"context"
	"log/slog"
)

// slog has no fatal level; offset above error keeps the mapping reversible.
const slogFatalLevel = slog.LevelError + 4

// bridgeHandler is a slog.Handler that routes records through the shared
// core's formatter/outputs pipeline.
type bridgeHandler struct {
	core  *core
	attrs []slog.Attr
}

// Enabled gates by the core's level.
func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.core.enabled(fromSlogLevel(level))
}

// Handle converts the record to an Entry and writes it.
func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(Fields, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})
	return h.core.write(&Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
	})
}

// WithAttrs returns a copy of the handler with additional base attributes.
func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup is accepted but grouping is flattened by this pipeline.
func (h *bridgeHandler) WithGroup(string) slog.Handler { return h }

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return slogFatalLevel
	default:
		return slog.LevelInfo
	}
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level >= slogFatalLevel:
		return FatalLevel
	case level >= slog.LevelError:
		return ErrorLevel
	case level >= slog.LevelWarn:
		return WarnLevel
	case level >= slog.LevelInfo:
		return InfoLevel
	default:
		return DebugLevel
	}
}
