// Package pipe exposes the shared Run entrypoint used by the CLI to feed
// stdin lines through an async queuer: optional CEL filtering and rate
// limiting on intake, concurrency-bounded processing, and optional
// prometheus metrics.
//
// Example:
//
//	prof := config.Default()
//	prof.Concurrency = 4
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	_ = pipe.Run(ctx, pipe.Options{Profile: prof, In: os.Stdin, Out: os.Stdout})
package pipe
