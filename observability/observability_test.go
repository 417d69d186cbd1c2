package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/NathanNam/caltrain-commuter-app/logger"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("caltrain-realtime")
	if cfg.ServiceName != "caltrain-realtime" {
		t.Errorf("expected ServiceName 'caltrain-realtime', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("caltrain-realtime")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.2.3", "test")
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if kv.Key == "service.name" && kv.Value.AsString() == "svc" {
			found = true
		}
	}
	if !found {
		t.Error("expected service.name attribute")
	}
}

func TestNopSink(t *testing.T) {
	var s Sink = OrNop(nil)
	s.Add(context.Background(), MetricFetchOutcome, 1, nil)
	s.Record(context.Background(), MetricFetchDuration, 1, nil)
	s.LogEvent(context.Background(), SeverityInfo, "x", nil)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	r.Add(ctx, MetricFetchOutcome, 1, map[string]string{"upstream": "a", "outcome": "success"})
	r.Add(ctx, MetricFetchOutcome, 2, map[string]string{"outcome": "success", "upstream": "a"})
	r.Add(ctx, MetricFetchOutcome, 1, map[string]string{"upstream": "b", "outcome": "success"})
	r.Record(ctx, MetricFetchDuration, 12.5, map[string]string{"upstream": "a"})
	r.LogEvent(ctx, SeverityWarn, "refresh failed", map[string]any{"key": "k"})

	if got := r.Count(MetricFetchOutcome, map[string]string{"upstream": "a", "outcome": "success"}); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
	if got := r.Total(MetricFetchOutcome); got != 4 {
		t.Errorf("Total = %d, want 4", got)
	}
	if got := r.Samples(MetricFetchDuration, map[string]string{"upstream": "a"}); len(got) != 1 || got[0] != 12.5 {
		t.Errorf("Samples = %v", got)
	}
	if r.SampleCount(MetricFetchDuration) != 1 {
		t.Errorf("SampleCount = %d", r.SampleCount(MetricFetchDuration))
	}
	if ev := r.Events(); len(ev) != 1 || ev[0].Severity != SeverityWarn {
		t.Errorf("Events = %+v", ev)
	}
}

func TestFanout(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	f := Fanout{a, b}
	f.Add(context.Background(), MetricCacheLookup, 1, map[string]string{"result": "hit"})
	f.Record(context.Background(), MetricFetchDuration, 3, nil)
	f.LogEvent(context.Background(), SeverityInfo, "e", nil)
	for i, r := range []*Recorder{a, b} {
		if r.Total(MetricCacheLookup) != 1 || r.SampleCount(MetricFetchDuration) != 1 || len(r.Events()) != 1 {
			t.Errorf("sink %d missed a call", i)
		}
	}
}

func TestOTelSinkWithNoopMeter(t *testing.T) {
	s := NewOTelSink(noop.NewMeterProvider().Meter("test"), logger.Nop())
	ctx := context.Background()
	s.Add(ctx, MetricFetchRetry, 1, map[string]string{"upstream": "weather"})
	s.Record(ctx, MetricFetchDuration, 10, nil)
	s.LogEvent(ctx, SeverityInfo, "circuit opened", map[string]any{"upstream": "weather"})
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, "test", &buf)
	s := NewLogSink(log)
	ctx := logger.ContextWithCallID(context.Background(), "call-7")

	s.Add(ctx, MetricCircuitEvent, 1, nil)
	s.Record(ctx, MetricFetchDuration, 5, nil)
	if buf.Len() != 0 {
		t.Fatalf("counters and measurements must not log, got %q", buf.String())
	}

	s.LogEvent(ctx, SeverityWarn, "circuit opened", map[string]any{"upstream": "gtfs-rt"})
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for k, want := range map[string]any{
		"level":    "warn",
		"message":  "circuit opened",
		"upstream": "gtfs-rt",
		"call_id":  "call-7",
	} {
		if entry[k] != want {
			t.Errorf("%s = %v, want %v", k, entry[k], want)
		}
	}
}

func TestOTelSinkRecordsInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	s := NewOTelSink(mp.Meter("test"), logger.Nop())
	ctx := context.Background()
	labels := map[string]string{"upstream": "trains", "outcome": "success"}
	s.Add(ctx, MetricFetchOutcome, 1, labels)
	s.Add(ctx, MetricFetchOutcome, 1, labels)
	s.Record(ctx, MetricFetchDuration, 42, map[string]string{"upstream": "trains"})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	var sawCounter, sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != MetricFetchOutcome {
					continue
				}
				sawCounter = true
				if len(data.DataPoints) != 1 || data.DataPoints[0].Value != 2 {
					t.Errorf("unexpected counter points %+v", data.DataPoints)
				}
				if v, ok := data.DataPoints[0].Attributes.Value(attribute.Key("outcome")); !ok || v.AsString() != "success" {
					t.Errorf("expected outcome attribute, got %v", data.DataPoints[0].Attributes)
				}
			case metricdata.Histogram[float64]:
				if m.Name != MetricFetchDuration {
					continue
				}
				sawHistogram = true
				if m.Unit != "ms" {
					t.Errorf("expected unit ms, got %q", m.Unit)
				}
				if len(data.DataPoints) != 1 || data.DataPoints[0].Count != 1 {
					t.Errorf("unexpected histogram points %+v", data.DataPoints)
				}
			}
		}
	}
	if !sawCounter || !sawHistogram {
		t.Errorf("counter=%v histogram=%v", sawCounter, sawHistogram)
	}
}

func TestPrometheusSink(t *testing.T) {
	s := NewPrometheusSink("caltrain", logger.Nop())
	ctx := context.Background()
	s.Add(ctx, MetricCircuitEvent, 1, map[string]string{"upstream": "weather", "event": "opened"})
	s.Record(ctx, MetricFetchDuration, 25, map[string]string{"upstream": "weather"})
	// Mismatched label set is dropped without panicking.
	s.Add(ctx, MetricCircuitEvent, 1, map[string]string{"other": "x"})
	s.LogEvent(ctx, SeverityInfo, "ignored", nil)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`caltrain_circuit_event_total{event="opened",upstream="weather"} 1`,
		`caltrain_fetch_duration_milliseconds_count{upstream="weather"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in scrape output", want)
		}
	}
}

func TestPromName(t *testing.T) {
	if got := promName("cache.refresh"); got != "cache_refresh" {
		t.Errorf("promName = %q", got)
	}
}

func TestStartSpanAndSetError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), SpanFetch)
	if SpanFromContext(ctx) != span {
		t.Error("expected span in context")
	}
	SetSpanError(span, errors.New("boom"))
	SetSpanError(span, nil)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Description != "boom" {
		t.Errorf("expected error status, got %+v", spans[0].Status)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected one recorded error event, got %d", len(spans[0].Events))
	}
}

func TestStartSpanDefaultProvider(t *testing.T) {
	_, span := StartSpan(context.Background(), SpanFeedDecode)
	defer span.End()
	SetSpanError(span, errors.New("not recorded"))
}

func TestServiceHealth_AddComponent(t *testing.T) {
	sh := NewServiceHealth("svc", "1.0.0")
	sh.AddComponent(Health{Name: "a", Status: HealthStatusUp})
	if sh.Status != HealthStatusUp {
		t.Errorf("expected up, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "b", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "c", Status: HealthStatusDown})
	sh.AddComponent(Health{Name: "d", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Errorf("expected down to stick, got %s", sh.Status)
	}
}

func TestCheck(t *testing.T) {
	up := HealthCheckFunc(func(context.Context) Health { return Health{Name: "cache", Status: HealthStatusUp} })
	degraded := HealthCheckFunc(func(context.Context) Health {
		return Health{Name: "breakers", Status: HealthStatusDegraded, Details: map[string]any{"weather": "open"}}
	})
	sh := Check(context.Background(), "svc", "1.0.0", up, degraded)
	if sh.Status != HealthStatusDegraded || len(sh.Components) != 2 {
		t.Errorf("unexpected health %+v", sh)
	}
}

func TestInitTracerAndMeter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tp, err := InitTracer(ctx, DefaultTracerConfig("test"))
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	_ = tp.Shutdown(ctx)

	cfg := DefaultMeterConfig("test")
	cfg.Interval = time.Hour
	mp, err := InitMeter(ctx, cfg)
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	_ = mp.Shutdown(ctx)
}
