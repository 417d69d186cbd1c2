// Command caltrain-realtime polls the Caltrain GTFS-Realtime feeds and
// serves live trip and stop status over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	_ "time/tzdata"

	"github.com/NathanNam/caltrain-commuter-app/bootstrap"
	"github.com/NathanNam/caltrain-commuter-app/delay"
	"github.com/NathanNam/caltrain-commuter-app/fetch"
	"github.com/NathanNam/caltrain-commuter-app/httpclient"
	"github.com/NathanNam/caltrain-commuter-app/logger"
	"github.com/NathanNam/caltrain-commuter-app/monitor"
	"github.com/NathanNam/caltrain-commuter-app/observability"
	"github.com/NathanNam/caltrain-commuter-app/schedule"
	"github.com/NathanNam/caltrain-commuter-app/server"
	"github.com/NathanNam/caltrain-commuter-app/server/endpoint"
	"github.com/NathanNam/caltrain-commuter-app/version"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	build := version.Get()
	if cfg.Version == "" {
		cfg.Version = build.String()
	}

	cfg.ApplyDefaults()
	app, err := bootstrap.NewApp(cfg, bootstrap.WithGracefulTimeout(cfg.Server.ShutdownTimeout+cfg.HTTP.Timeout))
	if err != nil {
		return err
	}
	log := app.Logger

	sink, err := telemetry(ctx, app)
	if err != nil {
		return err
	}

	client, err := httpclient.New(cfg.HTTP)
	if err != nil {
		return err
	}
	fetcher := fetch.New(client, cfg.Fetch, fetch.WithLogger(log), fetch.WithSink(sink))
	app.OnStop(fetcher.Close)

	timetable, err := schedule.LoadYAMLFile(cfg.Schedule.File)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	log.Info("Schedule loaded", logger.Fields("file", cfg.Schedule.File, "services", timetable.Services()))

	mon, err := monitor.New(cfg.Feeds, fetcher, delay.NewReconciler(timetable, log),
		monitor.WithLogger(log), monitor.WithSink(sink))
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	endpoint.Register(srv.GinEngine(), endpoint.Routes{
		Service:  cfg.Name,
		Version:  cfg.Version,
		Build:    build,
		Status:   mon,
		Checkers: []observability.HealthChecker{mon, fetcher},
		Metrics:  sink.prometheus.Handler(),
	})

	app.OnStart(srv.Start)
	app.OnStop(srv.Stop)
	app.Go("monitor", mon.Run)

	return app.Run(ctx)
}

// sinks is the process-wide telemetry fanout plus the Prometheus sink
// whose registry backs /metrics.
type sinks struct {
	observability.Fanout
	prometheus *observability.PrometheusSink
}

// telemetry always installs the event log and Prometheus sinks and adds
// the OTLP tracer and meter when enabled.
func telemetry(ctx context.Context, app *bootstrap.App[*AppConfig]) (*sinks, error) {
	cfg := app.Cfg
	log := app.Logger

	prom := observability.NewPrometheusSink(cfg.Telemetry.Namespace, log)
	s := &sinks{Fanout: observability.Fanout{observability.NewLogSink(log), prom}, prometheus: prom}

	if t := cfg.Telemetry.Tracing; t.Enabled {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       t.Endpoint,
			Insecure:       t.Insecure,
			SampleRate:     t.SampleRate,
		})
		if err != nil {
			return nil, err
		}
		app.OnStop(tp.Shutdown)
		log.Info("Tracing enabled", logger.Fields("endpoint", t.Endpoint))
	}

	if m := cfg.Telemetry.Metrics; m.Enabled {
		mp, err := observability.InitMeter(ctx, observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       m.Endpoint,
			Insecure:       m.Insecure,
			Interval:       m.Interval,
		})
		if err != nil {
			return nil, err
		}
		app.OnStop(mp.Shutdown)
		s.Fanout = append(s.Fanout, observability.NewOTelSink(mp.Meter(cfg.Name), log))
		log.Info("OTLP metrics enabled", logger.Fields("endpoint", m.Endpoint))
	}
	return s, nil
}
