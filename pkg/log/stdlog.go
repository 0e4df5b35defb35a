package log

import (
	stdlog "log"
	"strings"
)

// RedirectStdLog points the standard library's default logger at l, so
// third-party code using "log" lands in the same pipeline at InfoLevel.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdlogWriter{l: l})
}

type stdlogWriter struct{ l Logger }

func (w stdlogWriter) Write(p []byte) (int, error) {
	w.l.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
