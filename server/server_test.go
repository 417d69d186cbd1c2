package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/logger"
)

func testConfig() Config {
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	cfg.Port = 0
	return cfg
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.ShutdownTimeout != 5*time.Second || cfg.IdleTimeout != time.Minute {
		t.Errorf("defaults = %+v", cfg)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("cors origins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Port: 8080}, false},
		{"port zero binds any", Config{Port: 0}, false},
		{"port too large", Config{Port: 70000}, true},
		{"negative timeout", Config{Port: 80, ReadTimeout: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServer_StartServeStop(t *testing.T) {
	srv := New(testConfig(), logger.Nop())
	srv.ApplyMiddleware()
	srv.GinEngine().GET("/ping", func(c *gin.Context) { RespondOK(c, "pong") })
	srv.Handle("/raw", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("raw"))
	}))

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = srv.Stop(context.Background()) }()

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	if err != nil {
		t.Fatalf("GET /ping: %v", err)
	}
	defer resp.Body.Close()

	var body DataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data != "pong" {
		t.Errorf("data = %v", body.Data)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected request id middleware to run")
	}

	raw, err := http.Get("http://" + srv.Addr() + "/raw")
	if err != nil {
		t.Fatalf("GET /raw: %v", err)
	}
	defer raw.Body.Close()
	if b, _ := io.ReadAll(raw.Body); string(b) != "raw" {
		t.Errorf("raw body = %q", b)
	}

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := http.Get("http://" + srv.Addr() + "/ping"); err == nil {
		t.Error("expected connection failure after Stop")
	}
}

func TestServer_StartBindError(t *testing.T) {
	first := New(testConfig(), logger.Nop())
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = first.Stop(context.Background()) }()

	cfg := testConfig()
	cfg.Port = first.addr.(*net.TCPAddr).Port
	second := New(cfg, logger.Nop())
	if err := second.Start(context.Background()); err == nil {
		_ = second.Stop(context.Background())
		t.Fatal("expected bind error on a port in use")
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  errors.ErrorCode
	}{
		{"validation", errors.Validation("trip_id is required"), http.StatusBadRequest, errors.ErrCodeValidation},
		{"no data", errors.NoData("trip 101"), http.StatusNotFound, errors.ErrCodeNoData},
		{"circuit open", errors.CircuitOpen("gtfs-rt"), http.StatusServiceUnavailable, errors.ErrCodeCircuitOpen},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, errors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			RespondWithError(c, tt.err)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			var body errors.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.wantErr {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.wantErr)
			}
		})
	}
}
