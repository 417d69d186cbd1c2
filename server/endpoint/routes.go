package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NathanNam/caltrain-commuter-app/observability"
	"github.com/NathanNam/caltrain-commuter-app/version"
)

// Routes collects what Register needs to mount every endpoint.
type Routes struct {
	Service  string
	Version  string
	Build    version.Info
	Status   StatusSource
	Checkers []observability.HealthChecker
	// Metrics is the scrape handler; /metrics is not mounted when nil.
	Metrics http.Handler
}

// Register mounts the probe, scrape and status endpoints on r.
func Register(r gin.IRouter, rt Routes) {
	r.GET("/health", Health(rt.Service, rt.Version, rt.Checkers...))
	r.GET("/alive", Liveness(rt.Service))
	r.GET("/version", Version(rt.Build))
	if rt.Metrics != nil {
		r.GET("/metrics", Metrics(rt.Metrics))
	}

	v1 := r.Group("/v1")
	v1.GET("/trips/:tripID/status", TripStatus(rt.Status))
	v1.GET("/stops/:stopID/status", StopStatus(rt.Status))
	v1.GET("/alerts", Alerts(rt.Status, nil))
}
