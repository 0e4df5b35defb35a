package log

import (
	"log/slog"
	"time"
)

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value any
}

// F creates a Field from an arbitrary value.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Str creates a string Field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an int Field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 creates an int64 Field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Bool creates a bool Field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Dur creates a duration Field.
func Dur(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err creates an "error" Field. A nil error yields a nil value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Component tags the log entry with a component name.
func Component(name string) Field { return Field{Key: "component", Value: name} }

func attrs(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	out := make([]slog.Attr, len(fields))
	for i, f := range fields {
		out[i] = slog.Any(f.Key, f.Value)
	}
	return out
}
