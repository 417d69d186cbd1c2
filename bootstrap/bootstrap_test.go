package bootstrap

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NathanNam/caltrain-commuter-app/config"
	"github.com/NathanNam/caltrain-commuter-app/logger"
)

type testConfig struct {
	config.ServiceConfig
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	app, err := NewApp(newTestConfig("test-svc", "1.0.0"), WithLogger(logger.Nop()), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

// recorder collects lifecycle events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) hook(name string, err error) Hook {
	return func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, name)
		return err
	}
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.events, ",")
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "test-svc" || app.Version != "1.0.0" {
		t.Errorf("name/version = %q/%q", app.Name, app.Version)
	}
	if app.gracefulTimeout != time.Second {
		t.Errorf("graceful timeout = %v", app.gracefulTimeout)
	}
	if !app.Cfg.Debug {
		t.Error("expected development defaults to be applied")
	}
}

func TestNewApp_ValidationError(t *testing.T) {
	_, err := NewApp(&testConfig{}, WithLogger(logger.Nop()))
	if err == nil || !strings.Contains(err.Error(), "config validation") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRun_LifecycleOrder(t *testing.T) {
	app := newTestApp(t)
	rec := &recorder{}
	app.OnStart(rec.hook("start-1", nil), rec.hook("start-2", nil))
	app.OnStop(rec.hook("stop-1", nil), rec.hook("stop-2", nil))

	ctx, cancel := context.WithCancel(context.Background())
	app.Go("worker", func(ctx context.Context) error {
		_ = rec.hook("worker", nil)(ctx)
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := rec.String(), "start-1,start-2,worker,stop-2,stop-1"; got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestRun_StartHookFailure(t *testing.T) {
	app := newTestApp(t)
	rec := &recorder{}
	boom := stderrors.New("boom")
	app.OnStart(rec.hook("start", boom), rec.hook("never", nil))
	app.OnStop(rec.hook("stop", nil))
	app.Go("worker", func(context.Context) error {
		t.Error("worker must not run after a failed start")
		return nil
	})

	err := app.Run(context.Background())
	if !stderrors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := rec.String(); got != "start,stop" {
		t.Errorf("events = %s", got)
	}
}

func TestRun_WorkerFailureStopsOthers(t *testing.T) {
	app := newTestApp(t)
	rec := &recorder{}
	app.OnStop(rec.hook("stop", nil))
	boom := stderrors.New("feed down")

	app.Go("failing", func(context.Context) error { return boom })
	app.Go("waiting", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		if !stderrors.Is(err, boom) || !strings.Contains(err.Error(), "worker failing") {
			t.Fatalf("expected worker error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after worker failure")
	}
	if got := rec.String(); got != "stop" {
		t.Errorf("events = %s", got)
	}
}

func TestRun_StopHookErrorReturned(t *testing.T) {
	app := newTestApp(t)
	rec := &recorder{}
	bad := stderrors.New("drain failed")
	app.OnStop(rec.hook("first", nil), rec.hook("second", bad))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := app.Run(ctx); !stderrors.Is(err, bad) {
		t.Fatalf("expected stop error, got %v", err)
	}
	if got := rec.String(); got != "second,first" {
		t.Errorf("every stop hook should run, events = %s", got)
	}
}
