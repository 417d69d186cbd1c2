package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NathanNam/caltrain-commuter-app/logger"
)

// PrometheusSink exposes sink metrics on a Prometheus registry.
//
// Vectors are created on first use with the sorted label keys of that call.
// Later calls with a different label set are dropped and logged.
type PrometheusSink struct {
	namespace string
	reg       *prometheus.Registry
	log       *logger.Logger

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusSink creates a sink with its own registry. Metric names are
// prefixed with namespace.
func NewPrometheusSink(namespace string, log *logger.Logger) *PrometheusSink {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &PrometheusSink{
		namespace:  namespace,
		reg:        reg,
		log:        logger.OrComponent(log, "telemetry"),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry returns the underlying registry.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.reg
}

// Handler returns an HTTP handler serving the registry.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg})
}

func (s *PrometheusSink) Add(_ context.Context, name string, n int64, labels map[string]string) {
	vec, err := s.counterVec(name, labels)
	if err != nil {
		s.drop(name, err)
		return
	}
	c, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		s.drop(name, err)
		return
	}
	c.Add(float64(n))
}

func (s *PrometheusSink) Record(_ context.Context, name string, value float64, labels map[string]string) {
	vec, err := s.histogramVec(name, labels)
	if err != nil {
		s.drop(name, err)
		return
	}
	h, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		s.drop(name, err)
		return
	}
	h.Observe(value)
}

// LogEvent is a no-op; events are written by LogSink.
func (s *PrometheusSink) LogEvent(context.Context, string, string, map[string]any) {}

func (s *PrometheusSink) counterVec(name string, labels map[string]string) (*prometheus.CounterVec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.counters[name]; ok {
		return v, nil
	}
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: s.namespace,
		Name:      promName(name) + "_total",
		Help:      describe(name),
	}, sortedKeys(labels))
	if err := s.reg.Register(v); err != nil {
		return nil, err
	}
	s.counters[name] = v
	return v, nil
}

func (s *PrometheusSink) histogramVec(name string, labels map[string]string) (*prometheus.HistogramVec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.histograms[name]; ok {
		return v, nil
	}
	metricName := promName(name)
	if u := unit(name); u == "ms" {
		metricName += "_milliseconds"
	}
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: s.namespace,
		Name:      metricName,
		Help:      describe(name),
		Buckets:   prometheus.ExponentialBuckets(5, 2, 14),
	}, sortedKeys(labels))
	if err := s.reg.Register(v); err != nil {
		return nil, err
	}
	s.histograms[name] = v
	return v, nil
}

func (s *PrometheusSink) drop(name string, err error) {
	s.log.Warn("dropping metric", logger.Fields("metric", name, logger.FieldError, err.Error()))
}

func promName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
