// Package server is the HTTP surface of the realtime service: a Gin
// engine behind an h2c handler, with recovery, request id, CORS and
// request logging middleware.
//
// Endpoints (server/endpoint):
//
//   - /health: component health, degraded while any circuit is not closed
//   - /alive: liveness probe
//   - /version: build information
//   - /metrics: Prometheus scrape
//   - /v1/trips/:tripID/status: live status of a trip
//   - /v1/stops/:stopID/status: live status of a trip at a stop
//   - /v1/alerts: active service alerts
package server
