// Package observability carries the telemetry side channel of the fetch
// pipeline: a Sink for counters, measurements and events, OpenTelemetry and
// Prometheus implementations of it, tracing helpers, and health reporting.
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("caltrain-realtime"))
//	defer mp.Shutdown(ctx)
//	prom := observability.NewPrometheusSink("caltrain", log)
//	sink := observability.Fanout{observability.NewOTelSink(observability.Meter("fetch"), log), prom}
//
// Sink failures never reach the caller. Tests use Recorder to assert on
// emitted series.
package observability
