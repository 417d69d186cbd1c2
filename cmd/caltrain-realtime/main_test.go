package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/NathanNam/caltrain-commuter-app/bootstrap"
	"github.com/NathanNam/caltrain-commuter-app/logger"
	"github.com/NathanNam/caltrain-commuter-app/observability"
)

func TestTelemetry_DefaultConfigLogsEvents(t *testing.T) {
	cfg := loadFile(t, "config.yml")
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, serviceName, &buf)
	app, err := bootstrap.NewApp(cfg, bootstrap.WithLogger(log))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	s, err := telemetry(context.Background(), app)
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	if len(s.Fanout) != 2 {
		t.Errorf("sinks = %d, want event log and prometheus only", len(s.Fanout))
	}

	s.LogEvent(context.Background(), observability.SeverityWarn, "cache refresh failed", map[string]any{"key": "gtfs-rt:alerts"})
	if out := buf.String(); !strings.Contains(out, "cache refresh failed") || !strings.Contains(out, "gtfs-rt:alerts") {
		t.Errorf("expected event in log output, got %q", out)
	}
}
