package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NathanNam/caltrain-commuter-app/delay"
	"github.com/NathanNam/caltrain-commuter-app/monitor"
	"github.com/NathanNam/caltrain-commuter-app/observability"
	"github.com/NathanNam/caltrain-commuter-app/realtime"
	"github.com/NathanNam/caltrain-commuter-app/version"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var feedTime = time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

type fakeSource struct {
	snap  *monitor.Snapshot
	trips map[string]delay.TripStatus
}

func (f *fakeSource) Snapshot() *monitor.Snapshot { return f.snap }

func (f *fakeSource) TripStatus(tripID string) (delay.TripStatus, bool) {
	st, ok := f.trips[tripID]
	return st, ok
}

func (f *fakeSource) StopStatus(tripID, stopID string) (delay.TripStatus, bool, error) {
	st, ok := f.trips[tripID]
	return st, ok && stopID == "70011", nil
}

func (f *fakeSource) AnyTripStopStatus(stopID string) (delay.TripStatus, bool) {
	if stopID != "70011" {
		return delay.TripStatus{}, false
	}
	return f.trips["101"], true
}

func newSource() *fakeSource {
	return &fakeSource{
		snap: &monitor.Snapshot{
			FeedTimestamp: feedTime,
			Alerts: []realtime.Alert{
				{ID: "now", Header: "Delays near Millbrae"},
				{ID: "past", Periods: []realtime.ActivePeriod{{End: feedTime.Add(-time.Hour)}}},
			},
		},
		trips: map[string]delay.TripStatus{
			"101": {TripID: "101", DelayMinutes: 5, Status: delay.Delayed},
		},
	}
}

func newRouter(src StatusSource, checkers ...observability.HealthChecker) *gin.Engine {
	r := gin.New()
	Register(r, Routes{
		Service:  "caltrain-realtime",
		Version:  "test",
		Build:    version.Info{Version: "1.4.0", Commit: "abc1234"},
		Status:   src,
		Checkers: checkers,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	})
	r.GET("/v1/alerts-at", Alerts(src, func() time.Time { return feedTime }))
	return r
}

func get(t *testing.T, r http.Handler, path string, out any) int {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	if out != nil {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("%s: invalid JSON %q: %v", path, rr.Body.String(), err)
		}
	}
	return rr.Code
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

func TestTripStatus(t *testing.T) {
	r := newRouter(newSource())

	var body struct {
		TripID        string    `json:"trip_id"`
		DelayMinutes  int       `json:"delay_minutes"`
		Status        string    `json:"status"`
		FeedTimestamp time.Time `json:"feed_timestamp"`
	}
	if code := get(t, r, "/v1/trips/101/status", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.TripID != "101" || body.DelayMinutes != 5 || body.Status != "delayed" || !body.FeedTimestamp.Equal(feedTime) {
		t.Errorf("body = %+v", body)
	}

	var eb errorBody
	if code := get(t, r, "/v1/trips/999/status", &eb); code != http.StatusNotFound || eb.Error.Code != "NO_DATA" {
		t.Errorf("unknown trip: %d %+v", code, eb)
	}
}

func TestStopStatus(t *testing.T) {
	r := newRouter(newSource())

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantErr  string
	}{
		{"with trip", "/v1/stops/70011/status?trip_id=101", http.StatusOK, ""},
		{"missing trip id", "/v1/stops/70011/status", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"any trip", "/v1/stops/70011/status?match=any", http.StatusOK, ""},
		{"unknown stop", "/v1/stops/70999/status?trip_id=101", http.StatusNotFound, "NO_DATA"},
		{"any trip unknown stop", "/v1/stops/70999/status?match=any", http.StatusNotFound, "NO_DATA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			code := get(t, r, tt.path, &body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%v)", code, tt.wantCode, body)
			}
			if tt.wantErr != "" {
				e, _ := body["error"].(map[string]any)
				if e["code"] != tt.wantErr {
					t.Errorf("error code = %v, want %s", e["code"], tt.wantErr)
				}
				return
			}
			if body["stop_id"] != "70011" || body["trip_id"] != "101" {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestStatus_NotReady(t *testing.T) {
	r := newRouter(&fakeSource{})

	for _, path := range []string{"/v1/trips/101/status", "/v1/stops/70011/status?trip_id=101", "/v1/alerts"} {
		var eb errorBody
		if code := get(t, r, path, &eb); code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d", path, code)
		}
		if eb.Error.Code != "UNAVAILABLE" || !eb.Error.Retryable {
			t.Errorf("%s: body = %+v", path, eb)
		}
	}
}

func TestAlerts_FiltersInactive(t *testing.T) {
	r := newRouter(newSource())

	var body struct {
		Data []realtime.Alert `json:"data"`
	}
	if code := get(t, r, "/v1/alerts-at", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Data) != 1 || body.Data[0].ID != "now" {
		t.Errorf("alerts = %+v", body.Data)
	}
}

func TestHealth(t *testing.T) {
	up := observability.HealthCheckFunc(func(context.Context) observability.Health {
		return observability.Health{Name: "a", Status: observability.HealthStatusUp}
	})
	degraded := observability.HealthCheckFunc(func(context.Context) observability.Health {
		return observability.Health{Name: "b", Status: observability.HealthStatusDegraded}
	})
	down := observability.HealthCheckFunc(func(context.Context) observability.Health {
		return observability.Health{Name: "c", Status: observability.HealthStatusDown}
	})

	tests := []struct {
		name       string
		checkers   []observability.HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no checkers", nil, http.StatusOK, "up"},
		{"all up", []observability.HealthChecker{up}, http.StatusOK, "up"},
		{"degraded still serves", []observability.HealthChecker{up, degraded}, http.StatusOK, "degraded"},
		{"down", []observability.HealthChecker{degraded, down}, http.StatusServiceUnavailable, "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			code := get(t, newRouter(newSource(), tt.checkers...), "/health", &body)
			if code != tt.wantCode || body["status"] != tt.wantStatus {
				t.Errorf("got %d %v, want %d %s", code, body["status"], tt.wantCode, tt.wantStatus)
			}
			if body["version"] != "test" {
				t.Errorf("version = %v", body["version"])
			}
		})
	}
}

func TestProbesAndMetrics(t *testing.T) {
	r := newRouter(newSource())

	var body map[string]any
	if code := get(t, r, "/alive", &body); code != http.StatusOK || body["status"] != "alive" {
		t.Errorf("alive: %d %v", code, body)
	}

	var build version.Info
	if code := get(t, r, "/version", &build); code != http.StatusOK || build.String() != "1.4.0-abc1234" {
		t.Errorf("version: %d %+v", code, build)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rr.Code != http.StatusOK || rr.Body.String() != "# metrics\n" {
		t.Errorf("metrics: %d %q", rr.Code, rr.Body.String())
	}
}
