package fetch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NathanNam/caltrain-commuter-app/cache"
	"github.com/NathanNam/caltrain-commuter-app/httpclient"
	"github.com/NathanNam/caltrain-commuter-app/logger"
	"github.com/NathanNam/caltrain-commuter-app/observability"
	"github.com/NathanNam/caltrain-commuter-app/resilience"
)

// Transport sends a single HTTP request. *httpclient.Client implements it.
type Transport interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Config holds the defaults applied to calls that do not override them.
type Config struct {
	Retry          resilience.RetryPolicy          `mapstructure:"retry"`
	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Cache          cache.Config                    `mapstructure:"cache"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Retry:          resilience.DefaultRetryPolicy(),
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(""),
		Cache:          cache.DefaultConfig("fetch"),
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithSink sets the telemetry sink.
func WithSink(s observability.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithRegistry shares an existing breaker registry.
func WithRegistry(r *resilience.Registry) Option {
	return func(o *Orchestrator) { o.breakers = r }
}

// WithCache shares an existing cache.
func WithCache(c *cache.Cache[any]) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithClock sets the clock used for durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithCallIDs sets the generator of per-call correlation ids.
func WithCallIDs(next func() string) Option {
	return func(o *Orchestrator) { o.newCallID = next }
}

// Orchestrator owns the breaker registry and the shared cache used by Get.
type Orchestrator struct {
	transport Transport
	breakers  *resilience.Registry
	cache     *cache.Cache[any]
	sink      observability.Sink
	log       *logger.Logger
	retry     resilience.RetryPolicy
	breaker   resilience.CircuitBreakerConfig
	now       func() time.Time
	newCallID func() string
}

// New creates an orchestrator that sends requests through transport.
func New(transport Transport, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport: transport,
		now:       time.Now,
		newCallID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = logger.OrComponent(o.log, "fetch")
	o.sink = observability.OrNop(o.sink)

	cfg.Retry.ApplyDefaults()
	cfg.CircuitBreaker.ApplyDefaults()
	o.retry = cfg.Retry
	o.breaker = cfg.CircuitBreaker

	if o.breakers == nil {
		o.breakers = resilience.NewRegistry(o.circuitEvent)
	}
	if o.cache == nil {
		if cfg.Cache.Name == "" {
			cfg.Cache.Name = "fetch"
		}
		o.cache = cache.New[any](cfg.Cache, cache.WithLogger(o.log), cache.WithSink(o.sink))
	}
	return o
}

// Breakers returns the breaker registry.
func (o *Orchestrator) Breakers() *resilience.Registry {
	return o.breakers
}

// Cache returns the shared cache.
func (o *Orchestrator) Cache() *cache.Cache[any] {
	return o.cache
}

// Close waits for background cache refreshes to finish.
func (o *Orchestrator) Close(ctx context.Context) error {
	return o.cache.Close(ctx)
}

func (o *Orchestrator) circuitEvent(name, event string) {
	ctx := context.Background()
	o.sink.Add(ctx, observability.MetricCircuitEvent, 1, map[string]string{
		"upstream": name,
		"event":    event,
	})
	switch event {
	case resilience.EventRejected:
		return
	case resilience.EventOpened:
		o.log.Warn("circuit opened", logger.Fields(logger.FieldUpstream, name))
	default:
		o.log.Info("circuit "+event, logger.Fields(logger.FieldUpstream, name))
	}
	o.sink.LogEvent(ctx, observability.SeverityInfo, "circuit "+event, map[string]any{"upstream": name})
}
