package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to a single writer, serialized so
// concurrent loggers don't interleave lines.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns a ConsoleOutput writing to stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{w: os.Stderr} }

// NewWriterOutput returns a ConsoleOutput writing to w. Used by tests and by
// callers that want log lines on stdout or in a buffer.
func NewWriterOutput(w io.Writer) *ConsoleOutput { return &ConsoleOutput{w: w} }

// Write implements Output.
func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

// Close implements Output. Console writers are not owned, so this is a no-op.
func (o *ConsoleOutput) Close() error { return nil }

// nullOutput discards everything.
type nullOutput struct{}

func (nullOutput) Write(*Entry, []byte) error { return nil }
func (nullOutput) Close() error               { return nil }
