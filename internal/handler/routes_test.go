package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := testInvoker(t)

	e := echo.New()
	RegisterRoutes(e, NewInvokerHandler(inv, logger), NewHealthHandler(inv, "test"))

	ping := `{"lookup":"remoting/diagnostics","method":"ping","argTypes":[],"argValues":[]}`
	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		wantStatus  int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"GET /status", http.MethodGet, "/status", "", "", http.StatusOK},
		{"POST invocation", http.MethodPost, "/Diagnostics/ping", ping, "application/json", http.StatusOK},
		{"POST invocation without JSON content type", http.MethodPost, "/Diagnostics/ping", ping, "text/plain", http.StatusUnsupportedMediaType},
		{"GET invocation path", http.MethodGet, "/Diagnostics/ping", "", "", http.StatusMethodNotAllowed},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", "", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
