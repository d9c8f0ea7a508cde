package providers

import (
	"context"
	"fmt"
	"time"
)

const (
	// httpDrainTimeout bounds how long in-flight requests, including inline
	// syncs, may run once the server stops accepting new ones.
	httpDrainTimeout = 30 * time.Second
	// syncDrainTimeout bounds the wait for canceled background runs to
	// journal their outcome.
	syncDrainTimeout = 10 * time.Second
)

// stopWithin calls stop with a deadline so one stuck component cannot hang
// injector.Shutdown.
func stopWithin(component string, timeout time.Duration, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		return fmt.Errorf("stop %s: %w", component, err)
	}
	return nil
}

// waitFor adapts a blocking, context-free shutdown to stopWithin.
func waitFor(shutdown func()) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			shutdown()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
