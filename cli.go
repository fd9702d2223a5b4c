package crosspack

import (
	"context"

	"github.com/oklog/run"
)

// RunInterruptible runs f with a context cancelled on SIGINT or SIGTERM.
// It returns ErrInterrupted when a signal stopped f.
func RunInterruptible(ctx context.Context, f func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group

	// sigterm
	sigterm := SigtermService{}
	sigterm.Init()
	g.Add(sigterm.Start, sigterm.Stop)

	// work
	g.Add(func() error {
		return f(ctx)
	}, func(error) {
		cancel()
	})

	return g.Run()
}
