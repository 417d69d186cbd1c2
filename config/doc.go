// Package config loads service configuration from a YAML file, an optional
// .env file, and environment variables.
//
// Environment variables override file values. Keys are upper-cased, dots
// become underscores, and an optional prefix is applied, so feeds.poll_interval
// is read from CALTRAIN_FEEDS_POLL_INTERVAL when the prefix is CALTRAIN.
//
//	var cfg AppConfig
//	err := config.LoadConfig("caltrain-realtime", &cfg, config.WithEnvPrefix("CALTRAIN"))
package config
