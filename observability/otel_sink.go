package observability

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/NathanNam/caltrain-commuter-app/logger"
)

// OTelSink records counters and measurements as OpenTelemetry instruments.
// Events are left to LogSink.
type OTelSink struct {
	meter metric.Meter
	log   *logger.Logger

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOTelSink creates a sink on meter. Instruments are created on first use.
func NewOTelSink(meter metric.Meter, log *logger.Logger) *OTelSink {
	return &OTelSink{
		meter:      meter,
		log:        logger.OrComponent(log, "telemetry"),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (s *OTelSink) Add(ctx context.Context, name string, n int64, labels map[string]string) {
	c, err := s.counter(name)
	if err != nil {
		s.log.Warn("creating counter failed", logger.Fields("metric", name, logger.FieldError, err.Error()))
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attributes(labels)...))
}

func (s *OTelSink) Record(ctx context.Context, name string, value float64, labels map[string]string) {
	h, err := s.histogram(name)
	if err != nil {
		s.log.Warn("creating histogram failed", logger.Fields("metric", name, logger.FieldError, err.Error()))
		return
	}
	h.Record(ctx, value, metric.WithAttributes(attributes(labels)...))
}

func (s *OTelSink) LogEvent(context.Context, string, string, map[string]any) {}

func (s *OTelSink) counter(name string) (metric.Int64Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[name]; ok {
		return c, nil
	}
	c, err := s.meter.Int64Counter(name, metric.WithDescription(describe(name)))
	if err != nil {
		return nil, err
	}
	s.counters[name] = c
	return c, nil
}

func (s *OTelSink) histogram(name string) (metric.Float64Histogram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.histograms[name]; ok {
		return h, nil
	}
	h, err := s.meter.Float64Histogram(name, metric.WithDescription(describe(name)), metric.WithUnit(unit(name)))
	if err != nil {
		return nil, err
	}
	s.histograms[name] = h
	return h, nil
}

// attributes converts labels in key order so identical label sets produce
// identical attribute sets.
func attributes(labels map[string]string) []attribute.KeyValue {
	keys := sortedKeys(labels)
	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, labels[k]))
	}
	return attrs
}

func sortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var descriptions = map[string]string{
	MetricFetchRetry:    "Retries scheduled by the fetch pipeline",
	MetricFetchDuration: "Duration of top-level fetch calls",
	MetricFetchOutcome:  "Outcomes of top-level fetch calls",
	MetricCircuitEvent:  "Circuit breaker transitions and rejections",
	MetricCacheRefresh:  "Background cache refresh results",
	MetricCacheLookup:   "Cache lookups by result",
	MetricMonitorPoll:   "Realtime feed polls by result",
}

func describe(name string) string {
	if d, ok := descriptions[name]; ok {
		return d
	}
	return name
}

func unit(name string) string {
	if name == MetricFetchDuration {
		return "ms"
	}
	return ""
}
