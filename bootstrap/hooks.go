package bootstrap

import (
	"context"
	"fmt"
)

// Hook is a lifecycle callback that runs during application startup or shutdown.
type Hook func(ctx context.Context) error

// Worker is a long-running task. It must return once ctx is canceled.
type Worker func(ctx context.Context) error

// OnStart registers hooks that run in order before workers are launched.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnStop registers hooks that run during graceful shutdown, last
// registered first.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// Go registers a worker that runs for the lifetime of the application.
// A worker returning a non-nil error triggers shutdown.
func (a *App[C]) Go(name string, w Worker) {
	a.workers = append(a.workers, namedWorker{name: name, run: w})
}

type namedWorker struct {
	name string
	run  Worker
}

// runHooks executes hooks sequentially, returning the first error.
func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}
