package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"remoting-proxy-go/internal/config"
	"remoting-proxy-go/internal/metrics"
)

func TestNewEcho_RateLimit(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    []int
	}{
		{"enabled rejects past burst", true, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}},
		{"disabled admits all", false, []int{http.StatusNoContent, http.StatusNoContent, http.StatusNoContent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Endpoint:  config.EndpointConfig{TimeoutSeconds: 5},
				Server:    config.ServerConfig{BodyMaxBytes: 1024},
				RateLimit: config.RateLimitConfig{Enabled: tt.enabled, RequestsPerSecond: 0.001, Burst: 2},
			}
			e := newEcho(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.New())
			e.POST("/:interface/:method", func(c echo.Context) error {
				return c.NoContent(http.StatusNoContent)
			})

			for i, code := range tt.want {
				req := httptest.NewRequest(http.MethodPost, "/Diagnostics/ping", http.NoBody)
				rec := httptest.NewRecorder()
				e.ServeHTTP(rec, req)
				if rec.Code != code {
					t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, code)
				}
			}
		})
	}
}
