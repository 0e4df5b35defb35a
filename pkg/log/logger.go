package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

// Log levels, lowest to highest severity.
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the canonical upper-case name of the level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name (any case) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Fields is an ordered-less map of field names to values, as handed to
// formatters.
type Fields map[string]any

// Entry is a single log record as seen by formatters and outputs.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
}

// Logger is the logging interface Sluice components program against.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal logs and then exits the process.
	Fatal(msg string, fields ...Field)

	// With returns a Logger that includes the given fields on every entry.
	With(fields ...Field) Logger
	// WithComponent tags entries with a component name.
	WithComponent(component string) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter renders an Entry to bytes.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output receives formatted entries.
type Output interface {
	Write(entry *Entry, formatted []byte) error
	Close() error
}

// core holds the mutable pipeline shared by a logger and all its derived
// loggers, so SetLevel on any of them takes effect everywhere.
type core struct {
	mu        sync.Mutex
	level     Level
	formatter Formatter
	outputs   []Output
}

func (c *core) enabled(l Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level <= l
}

func (c *core) write(e *Entry) error {
	c.mu.Lock()
	f := c.formatter
	outs := c.outputs
	c.mu.Unlock()
	b, err := f.Format(e)
	if err != nil {
		return err
	}
	for _, out := range outs {
		_ = out.Write(e, b)
	}
	return nil
}

// BaseLogger implements Logger on top of a slog.Logger wired to the bridge
// handler.
type BaseLogger struct {
	core *core
	sl   *slog.Logger
}

// Option configures a logger under construction.
type Option func(*core)

// WithLevel sets the minimum level.
func WithLevel(level Level) Option {
	return func(c *core) { c.level = level }
}

// WithFormatter sets the entry formatter.
func WithFormatter(f Formatter) Option {
	return func(c *core) { c.formatter = f }
}

// WithOutput adds an output.
func WithOutput(o Output) Option {
	return func(c *core) { c.outputs = append(c.outputs, o) }
}

// NewLogger creates a logger. Defaults: InfoLevel, text format, console
// output.
func NewLogger(options ...Option) Logger {
	c := &core{level: InfoLevel}
	for _, opt := range options {
		opt(c)
	}
	if c.formatter == nil {
		c.formatter = &TextFormatter{}
	}
	if len(c.outputs) == 0 {
		c.outputs = []Output{NewConsoleOutput()}
	}
	return &BaseLogger{core: c, sl: slog.New(&bridgeHandler{core: c})}
}

// NewNopLogger returns a logger that discards everything. Handy as a default
// for optional Logger fields.
func NewNopLogger() Logger {
	c := &core{level: FatalLevel + 1, formatter: &TextFormatter{}, outputs: []Output{nullOutput{}}}
	return &BaseLogger{core: c, sl: slog.New(&bridgeHandler{core: c})}
}

func (b *BaseLogger) log(level Level, msg string, fields []Field) {
	b.sl.LogAttrs(context.Background(), toSlogLevel(level), msg, attrs(fields)...)
}

// Debug logs at DebugLevel.
func (b *BaseLogger) Debug(msg string, fields ...Field) { b.log(DebugLevel, msg, fields) }

// Info logs at InfoLevel.
func (b *BaseLogger) Info(msg string, fields ...Field) { b.log(InfoLevel, msg, fields) }

// Warn logs at WarnLevel.
func (b *BaseLogger) Warn(msg string, fields ...Field) { b.log(WarnLevel, msg, fields) }

// Error logs at ErrorLevel.
func (b *BaseLogger) Error(msg string, fields ...Field) { b.log(ErrorLevel, msg, fields) }

// Fatal logs at FatalLevel and exits with status 1.
func (b *BaseLogger) Fatal(msg string, fields ...Field) {
	b.log(FatalLevel, msg, fields)
	osExit(1)
}

// osExit is swapped in tests.
var osExit = os.Exit

// With returns a derived logger carrying the extra fields.
func (b *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return b
	}
	anys := make([]any, len(fields))
	for i, a := range attrs(fields) {
		anys[i] = a
	}
	return &BaseLogger{core: b.core, sl: b.sl.With(anys...)}
}

// WithComponent tags entries with a component field.
func (b *BaseLogger) WithComponent(component string) Logger {
	return b.With(Component(component))
}

// SetLevel sets the minimum level for this logger and all derived loggers.
func (b *BaseLogger) SetLevel(level Level) {
	b.core.mu.Lock()
	b.core.level = level
	b.core.mu.Unlock()
}

// GetLevel returns the current minimum level.
func (b *BaseLogger) GetLevel() Level {
	b.core.mu.Lock()
	defer b.core.mu.Unlock()
	return b.core.level
}
