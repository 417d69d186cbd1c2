package observability

import (
	"context"

	"github.com/NathanNam/caltrain-commuter-app/logger"
)

// LogSink writes events to the structured logger and ignores counters and
// measurements. Pair it with a metric sink in a Fanout.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a sink that logs through log, or the global logger
// when log is nil.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: logger.OrComponent(log, "telemetry")}
}

func (s *LogSink) Add(context.Context, string, int64, map[string]string)     {}
func (s *LogSink) Record(context.Context, string, float64, map[string]string) {}

// LogEvent logs msg at severity with attrs as fields and the call id from ctx.
func (s *LogSink) LogEvent(ctx context.Context, severity, msg string, attrs map[string]any) {
	s.log.WithContext(ctx).Log(severity, msg, attrs)
}
