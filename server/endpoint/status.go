package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NathanNam/caltrain-commuter-app/delay"
	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/monitor"
	"github.com/NathanNam/caltrain-commuter-app/realtime"
)

// StatusSource answers live status queries. *monitor.Monitor implements it.
type StatusSource interface {
	Snapshot() *monitor.Snapshot
	TripStatus(tripID string) (delay.TripStatus, bool)
	StopStatus(tripID, stopID string) (delay.TripStatus, bool, error)
	AnyTripStopStatus(stopID string) (delay.TripStatus, bool)
}

// statusResponse carries a trip status along with feed freshness.
type statusResponse struct {
	delay.TripStatus
	StopID        string    `json:"stop_id,omitempty"`
	FeedTimestamp time.Time `json:"feed_timestamp"`
}

// TripStatus serves GET /v1/trips/:tripID/status.
func TripStatus(src StatusSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := ready(c, src)
		if !ok {
			return
		}
		tripID := c.Param("tripID")
		st, found := src.TripStatus(tripID)
		if !found {
			respondError(c, errors.NoData("trip "+tripID))
			return
		}
		c.JSON(http.StatusOK, statusResponse{TripStatus: st, FeedTimestamp: snap.FeedTimestamp})
	}
}

// StopStatus serves GET /v1/stops/:stopID/status?trip_id=... A trip id is
// required unless match=any asks for whichever train serves the stop first.
func StopStatus(src StatusSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		stopID := c.Param("stopID")
		tripID := c.Query("trip_id")

		if c.Query("match") != "any" && tripID == "" {
			respondError(c, errors.Validation("trip_id is required"))
			return
		}
		snap, ok := ready(c, src)
		if !ok {
			return
		}

		var (
			st    delay.TripStatus
			found bool
		)
		if tripID == "" {
			st, found = src.AnyTripStopStatus(stopID)
		} else {
			var err error
			st, found, err = src.StopStatus(tripID, stopID)
			if err != nil {
				respondError(c, err)
				return
			}
		}
		if !found {
			respondError(c, errors.NoData("stop "+stopID))
			return
		}
		c.JSON(http.StatusOK, statusResponse{TripStatus: st, StopID: stopID, FeedTimestamp: snap.FeedTimestamp})
	}
}

// Alerts serves GET /v1/alerts with the alerts active now.
func Alerts(src StatusSource, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		snap, ok := ready(c, src)
		if !ok {
			return
		}
		at := now()
		active := make([]realtime.Alert, 0, len(snap.Alerts))
		for _, a := range snap.Alerts {
			if a.ActiveAt(at) {
				active = append(active, a)
			}
		}
		c.JSON(http.StatusOK, gin.H{"data": active})
	}
}

func ready(c *gin.Context, src StatusSource) (*monitor.Snapshot, bool) {
	snap := src.Snapshot()
	if snap == nil {
		respondError(c, errors.Unavailable("realtime feed not yet available"))
		return nil, false
	}
	return snap, true
}

func respondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
