package observability

import (
	"context"
)

// Metric names emitted by the fetch pipeline.
const (
	MetricFetchRetry    = "fetch.retry"
	MetricFetchDuration = "fetch.duration"
	MetricFetchOutcome  = "fetch.outcome"
	MetricCircuitEvent  = "circuit.event"
	MetricCacheRefresh  = "cache.refresh"
	MetricCacheLookup   = "cache.lookup"
	MetricMonitorPoll   = "monitor.poll"
)

// Severity levels for LogEvent.
const (
	SeverityDebug = "debug"
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// Sink receives counters, measurements and discrete events. It is a side
// channel: implementations must not fail the caller and must be safe for
// concurrent use.
type Sink interface {
	// Add increments the counter name by n.
	Add(ctx context.Context, name string, n int64, labels map[string]string)
	// Record adds a measurement to the distribution name.
	Record(ctx context.Context, name string, value float64, labels map[string]string)
	// LogEvent reports a discrete event.
	LogEvent(ctx context.Context, severity, msg string, attrs map[string]any)
}

// Nop is a Sink that discards everything.
type Nop struct{}

func (Nop) Add(context.Context, string, int64, map[string]string) {}
func (Nop) Record(context.Context, string, float64, map[string]string) {}
func (Nop) LogEvent(context.Context, string, string, map[string]any) {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Fanout forwards every call to each of its sinks in order.
type Fanout []Sink

func (f Fanout) Add(ctx context.Context, name string, n int64, labels map[string]string) {
	for _, s := range f {
		s.Add(ctx, name, n, labels)
	}
}

func (f Fanout) Record(ctx context.Context, name string, value float64, labels map[string]string) {
	for _, s := range f {
		s.Record(ctx, name, value, labels)
	}
}

func (f Fanout) LogEvent(ctx context.Context, severity, msg string, attrs map[string]any) {
	for _, s := range f {
		s.LogEvent(ctx, severity, msg, attrs)
	}
}
