package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NathanNam/caltrain-commuter-app/logger"
)

// App runs a long-lived service: start hooks, background workers, then
// stop hooks on signal, context cancellation or worker failure.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger

	gracefulTimeout time.Duration
	signals         []os.Signal

	onStart []Hook
	onStop  []Hook
	workers []namedWorker
}

// NewApp applies defaults, validates the config and initializes the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	return app, nil
}

// Run executes the lifecycle: OnStart hooks, workers, block until a
// signal, ctx cancellation or a failing worker, then OnStop hooks.
// The first worker error is returned.
func (a *App[C]) Run(ctx context.Context) error {
	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	if err := runHooks(ctx, a.onStart); err != nil {
		a.stop()
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	sigCtx, stopSignals := signal.NotifyContext(ctx, a.signals...)
	defer stopSignals()

	g, gctx := errgroup.WithContext(sigCtx)
	for _, w := range a.workers {
		g.Go(func() error {
			err := w.run(gctx)
			if err != nil && !stderrors.Is(err, context.Canceled) {
				a.Logger.Error("Worker failed", logger.MergeWithError(logger.Fields("worker", w.name), err))
				return fmt.Errorf("worker %s: %w", w.name, err)
			}
			return nil
		})
	}

	a.Logger.Info("Application ready, waiting for shutdown signal", map[string]interface{}{
		"workers": len(a.workers),
	})
	<-gctx.Done()
	if ctx.Err() == nil && sigCtx.Err() != nil {
		a.Logger.Info("Received shutdown signal, graceful shutdown starting")
	}

	workerErr := g.Wait()
	if stopErr := a.stop(); stopErr != nil && workerErr == nil {
		return stopErr
	}
	return workerErr
}

// stop runs OnStop hooks in reverse registration order within the
// graceful timeout. Every hook runs; the first error is returned.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	for i := len(a.onStop) - 1; i >= 0; i-- {
		if err := a.onStop[i](ctx); err != nil {
			a.Logger.Error("OnStop hook error", logger.ErrorFields("shutdown", err))
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
	}

	a.Logger.Info("Application shutdown complete")
	return shutdownErr
}
