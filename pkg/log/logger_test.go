package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferLogger(level Level, f Formatter) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewLogger(WithLevel(level), WithFormatter(f), WithOutput(NewWriterOutput(buf)))
	return l, buf
}

func TestLevelGating(t *testing.T) {
	l, buf := newBufferLogger(WarnLevel, &TextFormatter{DisableTimestamp: true})
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	out := buf.String()
	if strings.Contains(out, "DEBUG") || strings.Contains(out, "INFO") {
		t.Fatalf("levels below warn should be suppressed: %q", out)
	}
	if !strings.Contains(out, "WARN w") || !strings.Contains(out, "ERROR e") {
		t.Fatalf("warn/error missing: %q", out)
	}
}

func TestSetLevelAffectsDerivedLoggers(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	child := l.WithComponent("queue")
	l.SetLevel(ErrorLevel)
	child.Info("nope")
	if buf.Len() != 0 {
		t.Fatalf("derived logger ignored SetLevel: %q", buf.String())
	}
	child.Error("yes")
	if !strings.Contains(buf.String(), "component=queue") {
		t.Fatalf("component field missing: %q", buf.String())
	}
}

func TestWithFieldsAccumulate(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	l.With(Str("queue_id", "q1")).With(Int("n", 2)).Info("tick")
	out := buf.String()
	if !strings.Contains(out, "queue_id=q1") || !strings.Contains(out, "n=2") {
		t.Fatalf("fields missing: %q", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &JSONFormatter{})
	l.Info("hello", Str("k", "v"), Int("size", 7))
	var obj map[string]any
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("invalid json: %v (%q)", err, buf.String())
	}
	if obj["msg"] != "hello" || obj["level"] != "info" || obj["k"] != "v" {
		t.Fatalf("unexpected object: %v", obj)
	}
	if obj["size"] != float64(7) {
		t.Fatalf("size field lost: %v", obj)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DebugLevel, "Info": InfoLevel, "WARN": WarnLevel,
		"warning": WarnLevel, "error": ErrorLevel, "": InfoLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestApplyConfig(t *testing.T) {
	l, err := ApplyConfig(&Config{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.GetLevel() != DebugLevel {
		t.Fatalf("level not applied")
	}
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	// must not panic or write anywhere
	l := NewNopLogger()
	l.Debug("a")
	l.Error("b", Err(nil))
	l.With(Str("x", "y")).Warn("c")
}
