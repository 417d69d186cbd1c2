// Package monitor keeps the live status of scheduled trips current by
// polling the GTFS-Realtime feeds.
package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/NathanNam/caltrain-commuter-app/cache"
	"github.com/NathanNam/caltrain-commuter-app/delay"
	"github.com/NathanNam/caltrain-commuter-app/fetch"
	"github.com/NathanNam/caltrain-commuter-app/logger"
	"github.com/NathanNam/caltrain-commuter-app/observability"
	"github.com/NathanNam/caltrain-commuter-app/realtime"
)

// Config configures a Monitor.
type Config struct {
	// TripUpdatesURL is the GTFS-Realtime trip updates feed.
	TripUpdatesURL string `mapstructure:"trip_updates_url" validate:"required,url"`
	// AlertsURL is the optional service alerts feed.
	AlertsURL string `mapstructure:"alerts_url" validate:"omitempty,url"`
	// Upstream names the breaker shared by both feeds.
	Upstream string `mapstructure:"upstream"`
	// PollInterval is the time between polls.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gte=0"`
	// ServiceID selects the scheduled trips to reconcile.
	ServiceID string `mapstructure:"service_id" validate:"required"`
	// Timezone is the agency timezone used for service days.
	Timezone string `mapstructure:"timezone"`
	// ServiceDayCutoff is the local time of day before which the previous
	// day's service is still running.
	ServiceDayCutoff time.Duration `mapstructure:"service_day_cutoff"`
	// AlertsCache sets freshness of the cached alerts feed. Trip updates
	// are fetched on every poll.
	AlertsCache cache.EntryConfig `mapstructure:"alerts_cache"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Upstream == "" {
		c.Upstream = "gtfs-rt"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.Timezone == "" {
		c.Timezone = "America/Los_Angeles"
	}
	if c.ServiceDayCutoff <= 0 {
		c.ServiceDayCutoff = 3 * time.Hour
	}
	if c.AlertsCache.TTL <= 0 {
		c.AlertsCache.TTL = 5 * time.Minute
	}
	if c.AlertsCache.StaleWindow <= 0 {
		c.AlertsCache.StaleWindow = 10 * time.Minute
	}
}

// Snapshot is the result of the last successful poll.
type Snapshot struct {
	UpdatedAt     time.Time             `json:"updated_at"`
	FeedTimestamp time.Time             `json:"feed_timestamp"`
	ServiceDate   string                `json:"service_date"`
	Statuses      []delay.TripStatus    `json:"statuses"`
	Updates       []realtime.TripUpdate `json:"-"`
	Alerts        []realtime.Alert      `json:"alerts"`
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// WithSink sets the telemetry sink.
func WithSink(s observability.Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor polls the feeds and reconciles them against the schedule.
type Monitor struct {
	cfg        Config
	fetcher    *fetch.Orchestrator
	reconciler *delay.Reconciler
	loc        *time.Location
	log        *logger.Logger
	sink       observability.Sink
	now        func() time.Time

	snapshot atomic.Pointer[Snapshot]
	lastErr  atomic.Pointer[error]
}

// New creates a monitor.
func New(cfg Config, fetcher *fetch.Orchestrator, reconciler *delay.Reconciler, opts ...Option) (*Monitor, error) {
	cfg.ApplyDefaults()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("monitor: load timezone %q: %w", cfg.Timezone, err)
	}
	m := &Monitor{
		cfg:        cfg,
		fetcher:    fetcher,
		reconciler: reconciler,
		loc:        loc,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logger.OrComponent(m.log, "monitor")
	m.sink = observability.OrNop(m.sink)
	return m, nil
}

// Run polls until ctx ends. The first poll runs immediately. Poll errors
// are logged and the previous snapshot is kept.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor started", logger.Fields(
		"url", m.cfg.TripUpdatesURL,
		"interval", m.cfg.PollInterval.String(),
	))
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		_, _ = m.Poll(ctx)
		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches the feeds once and publishes a new snapshot.
func (m *Monitor) Poll(ctx context.Context) (*Snapshot, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanMonitorPoll)
	defer span.End()

	snap, err := m.poll(ctx)
	result := "success"
	if err != nil {
		result = "error"
		observability.SetSpanError(span, err)
		m.lastErr.Store(&err)
		m.log.WithContext(ctx).Warn("poll failed", logger.ErrorFields("monitor.poll", err))
	} else {
		m.lastErr.Store(nil)
		m.snapshot.Store(snap)
		span.SetAttributes(attribute.Int(observability.AttrEntities, len(snap.Updates)))
	}
	m.sink.Add(ctx, observability.MetricMonitorPoll, 1, map[string]string{"result": result})
	return snap, err
}

func (m *Monitor) poll(ctx context.Context) (*Snapshot, error) {
	feed, err := fetch.Get(ctx, m.fetcher, m.cfg.TripUpdatesURL, fetch.Options[*realtime.Feed]{
		Upstream: m.cfg.Upstream,
		Parser:   realtime.DecodeFeed,
		Headers:  map[string]string{"Accept": "application/x-protobuf"},
	})
	if err != nil {
		return nil, err
	}

	now := m.now()
	day := m.ServiceDay(now)
	statuses, err := m.reconciler.Reconcile(ctx, m.cfg.ServiceID, day, feed.TripUpdates)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		UpdatedAt:     now,
		FeedTimestamp: feed.Timestamp,
		ServiceDate:   day.Format("2006-01-02"),
		Statuses:      statuses,
		Updates:       feed.TripUpdates,
		Alerts:        feed.Alerts,
	}
	if m.cfg.AlertsURL != "" {
		alerts, err := fetch.Get(ctx, m.fetcher, m.cfg.AlertsURL, fetch.Options[*realtime.Feed]{
			Upstream: m.cfg.Upstream,
			CacheKey: "gtfs-rt:alerts",
			Cache:    m.cfg.AlertsCache,
			Parser:   realtime.DecodeFeed,
			Headers:  map[string]string{"Accept": "application/x-protobuf"},
		})
		if err != nil {
			m.log.WithContext(ctx).Warn("alerts unavailable", logger.ErrorFields("alerts", err))
		} else {
			snap.Alerts = append(snap.Alerts, alerts.Alerts...)
		}
	}
	return snap, nil
}

// ServiceDay returns midnight of the service day running at t.
func (m *Monitor) ServiceDay(t time.Time) time.Time {
	local := t.In(m.loc).Add(-m.cfg.ServiceDayCutoff)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.loc)
}

// Snapshot returns the last published snapshot, or nil before the first
// successful poll.
func (m *Monitor) Snapshot() *Snapshot {
	return m.snapshot.Load()
}

// LastError returns the error of the last poll, nil if it succeeded.
func (m *Monitor) LastError() error {
	if p := m.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// TripStatus returns the reconciled status of tripID.
func (m *Monitor) TripStatus(tripID string) (delay.TripStatus, bool) {
	snap := m.Snapshot()
	if snap == nil {
		return delay.TripStatus{}, false
	}
	for _, st := range snap.Statuses {
		if st.TripID == tripID {
			return st, true
		}
	}
	return delay.TripDelay(snap.Updates, tripID)
}

// StopStatus returns the status of tripID at stopID.
func (m *Monitor) StopStatus(tripID, stopID string) (delay.TripStatus, bool, error) {
	var updates []realtime.TripUpdate
	if snap := m.Snapshot(); snap != nil {
		updates = snap.Updates
	}
	return delay.StopDelay(updates, tripID, stopID)
}

// AnyTripStopStatus returns the status at stopID of the first trip serving
// it, whichever train that is.
func (m *Monitor) AnyTripStopStatus(stopID string) (delay.TripStatus, bool) {
	snap := m.Snapshot()
	if snap == nil {
		return delay.TripStatus{}, false
	}
	return delay.AnyTripStopDelay(snap.Updates, stopID)
}
