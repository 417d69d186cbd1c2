package cache

import (
	"container/list"
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/logger"
	"github.com/NathanNam/caltrain-commuter-app/observability"
	"github.com/NathanNam/caltrain-commuter-app/resilience"
)

// Loader produces the value for a key.
type Loader[V any] func(ctx context.Context) (V, error)

// Config configures a Cache.
type Config struct {
	// Name labels metrics and log lines.
	Name string `mapstructure:"name"`
	// MaxSize is the number of entries kept before LRU eviction.
	MaxSize int `mapstructure:"max_size" validate:"gte=0"`
	// TTL is the default freshness window.
	TTL time.Duration `mapstructure:"ttl"`
	// StaleWindow is the default window past TTL in which stale values are served.
	StaleWindow time.Duration `mapstructure:"stale_window"`
	// RefreshTimeout bounds each background refresh.
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
	// MaxConcurrentRefreshes bounds background refreshes across all keys.
	MaxConcurrentRefreshes int `mapstructure:"max_concurrent_refreshes" validate:"gte=0"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:                   name,
		MaxSize:                1000,
		TTL:                    5 * time.Minute,
		StaleWindow:            10 * time.Minute,
		RefreshTimeout:         30 * time.Second,
		MaxConcurrentRefreshes: 16,
	}
}

// ApplyDefaults fills zero fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig(c.Name)
	if c.Name == "" {
		c.Name = "default"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = d.MaxSize
	}
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.StaleWindow <= 0 {
		c.StaleWindow = d.StaleWindow
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = d.RefreshTimeout
	}
	if c.MaxConcurrentRefreshes <= 0 {
		c.MaxConcurrentRefreshes = d.MaxConcurrentRefreshes
	}
}

// Option configures optional Cache dependencies.
type Option func(*options)

type options struct {
	log  *logger.Logger
	sink observability.Sink
	now  func() time.Time
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithSink sets the telemetry sink.
func WithSink(s observability.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type node[V any] struct {
	key   string
	entry *Entry[V]
}

// Cache is a concurrency-safe stale-while-revalidate cache.
type Cache[V any] struct {
	cfg  Config
	log  *logger.Logger
	sink observability.Sink
	now  func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	lru   *list.List // front is most recently used
	// refreshing outlives the entries; Delete and Clear leave it alone.
	refreshing map[string]struct{}
	closed     bool

	group    singleflight.Group
	refreshB *resilience.Bulkhead
	wg       sync.WaitGroup
}

// New creates a cache.
func New[V any](cfg Config, opts ...Option) *Cache[V] {
	cfg.ApplyDefaults()
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		cfg:        cfg,
		log:        logger.OrComponent(o.log, "cache").WithFields(map[string]interface{}{"cache": cfg.Name}),
		sink:       observability.OrNop(o.sink),
		now:        o.now,
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		refreshing: make(map[string]struct{}),
		refreshB: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          cfg.Name + ".refresh",
			MaxConcurrent: cfg.MaxConcurrentRefreshes,
		}),
	}
}

// Get returns the value for key, calling loader on a miss or expiry and
// starting a background refresh for a stale entry.
func (c *Cache[V]) Get(ctx context.Context, key string, loader Loader[V], cfg EntryConfig) (V, error) {
	now := c.now()

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		n := el.Value.(*node[V])
		switch n.entry.State(now) {
		case StateFresh:
			c.lru.MoveToFront(el)
			v := n.entry.Value
			c.mu.Unlock()
			c.lookup(ctx, "fresh")
			return v, nil
		case StateStale:
			c.lru.MoveToFront(el)
			v := n.entry.Value
			start := c.markRefreshLocked(key)
			c.mu.Unlock()
			c.lookup(ctx, "stale")
			if start {
				c.refresh(ctx, key, loader, cfg)
			}
			return v, nil
		}
	}
	c.mu.Unlock()

	c.lookup(ctx, "miss")
	return c.load(ctx, key, loader, cfg)
}

// markRefreshLocked claims the refresh slot for key. Caller holds c.mu.
func (c *Cache[V]) markRefreshLocked(key string) bool {
	if c.closed {
		return false
	}
	if _, busy := c.refreshing[key]; busy {
		return false
	}
	c.refreshing[key] = struct{}{}
	c.wg.Add(1)
	return true
}

func (c *Cache[V]) clearRefresh(key string) {
	c.mu.Lock()
	delete(c.refreshing, key)
	c.mu.Unlock()
}

// load runs loader once per key for all concurrent callers. The shared call
// is detached from any single caller; each caller still returns as soon as
// its own context ends.
func (c *Cache[V]) load(ctx context.Context, key string, loader Loader[V], cfg EntryConfig) (V, error) {
	var zero V
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, cfg)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, errors.Timeout(fmt.Sprintf("cache load %q", key), ctx.Err())
		}
		return zero, errors.Canceled(fmt.Sprintf("cache load %q", key), ctx.Err())
	}
}

// refresh reloads key in the background. The caller has claimed the refresh
// slot and the wait group.
func (c *Cache[V]) refresh(parent context.Context, key string, loader Loader[V], cfg EntryConfig) {
	release, ok := c.refreshB.TryAcquire()
	if !ok {
		c.clearRefresh(key)
		c.wg.Done()
		c.refreshed(parent, "rejected")
		c.log.Debug("refresh skipped, bulkhead full", logger.Fields(logger.FieldCacheKey, key))
		return
	}

	go func() {
		defer c.wg.Done()
		defer release()
		defer c.clearRefresh(key)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.cfg.RefreshTimeout)
		defer cancel()
		ctx, span := observability.StartSpan(ctx, observability.SpanCacheRefresh)
		defer span.End()

		v, err := loader(ctx)
		if err != nil {
			observability.SetSpanError(span, err)
			c.refreshed(ctx, "error")
			c.log.WithContext(ctx).Warn("background refresh failed", logger.MergeWithError(
				logger.Fields(logger.FieldCacheKey, key), err))
			return
		}
		c.Set(key, v, cfg)
		c.refreshed(ctx, "success")
	}()
}

// Set stores value under key, evicting least recently used entries beyond MaxSize.
func (c *Cache[V]) Set(key string, value V, cfg EntryConfig) {
	e := &Entry[V]{
		Value:       value,
		StoredAt:    c.now(),
		TTL:         cfg.TTL,
		StaleWindow: cfg.StaleWindow,
	}
	if e.TTL <= 0 {
		e.TTL = c.cfg.TTL
	}
	if e.StaleWindow <= 0 {
		e.StaleWindow = c.cfg.StaleWindow
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*node[V]).entry = e
		c.lru.MoveToFront(el)
		return
	}
	c.items[key] = c.lru.PushFront(&node[V]{key: key, entry: e})
	for c.lru.Len() > c.cfg.MaxSize {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*node[V]).key)
	}
}

// Has reports whether key holds a fresh or stale entry. It does not load,
// refresh, or change recency.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Peek(key)
	return ok
}

// Peek returns the value for key if it is fresh or stale. It does not load,
// refresh, or change recency.
func (c *Cache[V]) Peek(key string) (V, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		n := el.Value.(*node[V])
		if n.entry.State(now) != StateExpired {
			return n.entry.Value, true
		}
	}
	var zero V
	return zero, false
}

// Inspect describes the entry for key, including expired entries.
func (c *Cache[V]) Inspect(key string) (EntryInfo, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	_, inFlight := c.refreshing[key]
	el, ok := c.items[key]
	if !ok {
		return EntryInfo{Key: key, RefreshInFlight: inFlight}, false
	}
	e := el.Value.(*node[V]).entry
	return EntryInfo{
		Key:             key,
		StoredAt:        e.StoredAt,
		Age:             e.Age(now),
		TTL:             e.TTL,
		StaleWindow:     e.StaleWindow,
		State:           e.State(now).String(),
		RefreshInFlight: inFlight,
	}, true
}

// Delete removes key. An in-flight refresh for key still completes and
// stores its result.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.lru.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries. In-flight refreshes still complete.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close stops new background refreshes and waits for running ones until
// ctx ends. Reads keep working after Close.
func (c *Cache[V]) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache[V]) lookup(ctx context.Context, result string) {
	c.sink.Add(ctx, observability.MetricCacheLookup, 1, map[string]string{"cache": c.cfg.Name, "result": result})
}

func (c *Cache[V]) refreshed(ctx context.Context, result string) {
	c.sink.Add(ctx, observability.MetricCacheRefresh, 1, map[string]string{"cache": c.cfg.Name, "result": result})
}
