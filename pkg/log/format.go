package log

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TextFormatter renders entries as a human-readable line:
//
//	2026-01-02T15:04:05.000Z INFO queue started component=queue size=3
type TextFormatter struct {
	// DisableTimestamp drops the leading timestamp, useful in tests.
	DisableTimestamp bool
}

// Format implements Formatter.
func (f *TextFormatter) Format(e *Entry) ([]byte, error) {
	var b strings.Builder
	if !f.DisableTimestamp {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		b.WriteString(ts.UTC().Format("2006-01-02T15:04:05.000Z"))
		b.WriteByte(' ')
	}
	b.WriteString(e.Level.String())
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, k := range sortedKeys(e.Fields) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatValue(e.Fields[k]))
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(e *Entry) ([]byte, error) {
	obj := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		obj[k] = v
	}
	obj["level"] = strings.ToLower(e.Level.String())
	obj["msg"] = e.Message
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	obj["ts"] = ts.UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func sortedKeys(fields Fields) []string {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		if strings.ContainsAny(t, " \t\"=") {
			return fmt.Sprintf("%q", t)
		}
		return t
	case time.Duration:
		return t.String()
	case error:
		return fmt.Sprintf("%q", t.Error())
	default:
		return fmt.Sprintf("%v", t)
	}
}
