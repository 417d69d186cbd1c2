package main

import (
	"fmt"
	"time"

	"github.com/NathanNam/caltrain-commuter-app/config"
	"github.com/NathanNam/caltrain-commuter-app/fetch"
	"github.com/NathanNam/caltrain-commuter-app/httpclient"
	"github.com/NathanNam/caltrain-commuter-app/monitor"
	"github.com/NathanNam/caltrain-commuter-app/server"
	"github.com/NathanNam/caltrain-commuter-app/validation"
)

const serviceName = "caltrain-realtime"

// AppConfig is the full service configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Feeds     monitor.Config    `yaml:"feeds" mapstructure:"feeds"`
	HTTP      httpclient.Config `yaml:"http" mapstructure:"http"`
	Fetch     fetch.Config      `yaml:"fetch" mapstructure:"fetch"`
	Schedule  ScheduleConfig    `yaml:"schedule" mapstructure:"schedule"`
	Server    server.Config     `yaml:"server" mapstructure:"server"`
	Telemetry TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
}

// ScheduleConfig locates the static timetable.
type ScheduleConfig struct {
	File string `yaml:"file" mapstructure:"file" validate:"required"`
}

// TelemetryConfig toggles OTLP exporters. Prometheus is always served.
type TelemetryConfig struct {
	Namespace string         `yaml:"namespace" mapstructure:"namespace"`
	Tracing   ExporterConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics   ExporterConfig `yaml:"metrics" mapstructure:"metrics"`
}

// ExporterConfig configures one OTLP HTTP exporter.
type ExporterConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// newAppConfig returns a config preloaded with defaults that file and
// environment values override.
func newAppConfig() *AppConfig {
	return &AppConfig{
		ServiceConfig: config.ServiceConfig{Name: serviceName},
		Fetch:         fetch.DefaultConfig(),
		Schedule:      ScheduleConfig{File: "cmd/caltrain-realtime/schedule.yml"},
		Telemetry: TelemetryConfig{
			Namespace: "caltrain",
			Tracing:   ExporterConfig{Endpoint: "localhost:4318", Insecure: true, SampleRate: 1},
			Metrics:   ExporterConfig{Endpoint: "localhost:4318", Insecure: true, Interval: 15 * time.Second},
		},
	}
}

// loadConfig reads config.yml and CALTRAIN_* environment overrides.
func loadConfig(opts ...config.LoaderOption) (*AppConfig, error) {
	cfg := newAppConfig()
	opts = append([]config.LoaderOption{config.WithEnvPrefix("CALTRAIN")}, opts...)
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every section's zero fields.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Feeds.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Fetch.Retry.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = "caltrain"
	}
}

// Validate checks the service section, then struct tags on the rest.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("config.http: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}
