// Package log provides Sluice's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled, Field-based
// methods. Internally it is backed by the standard library slog via a custom
// handler that routes records through a formatter/outputs pipeline, so the
// slog ecosystem stays reachable while output format and behavior remain
// consistent across the codebase.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("queue"), log.Str("queue_id", qid))
//	l.Info("queue started", log.Int("size", 3))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting
// text or JSON formatting. ParseLevel maps level names from flags or env.
//
// # Interop
//
// RedirectStdLog points the standard library's default logger at a Logger so
// output from third-party code lands in the same pipeline.
package log
