package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"remoting-proxy-go/internal/client"
	"remoting-proxy-go/internal/service"
	"remoting-proxy-go/remoting"
)

func serveInvocation(t *testing.T, inv *service.Invoker, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := NewInvokerHandler(inv, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.POST("/:interface/:method", h.Handle)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestInvokerHandler_Handle(t *testing.T) {
	inv := testInvoker(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "value result",
			path:       "/Diagnostics/add",
			body:       `{"lookup":"remoting/diagnostics","method":"add","argTypes":["long","long"],"argValues":[2,40]}`,
			wantStatus: http.StatusOK,
			wantBody:   "42",
		},
		{
			name:       "error-only method",
			path:       "/Diagnostics/sleep",
			body:       `{"lookup":"remoting/diagnostics","method":"sleep","argTypes":["long"],"argValues":[0]}`,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "malformed body",
			path:       "/Diagnostics/ping",
			body:       `{"lookup":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "path method differs from payload",
			path:       "/Diagnostics/echo",
			body:       `{"lookup":"remoting/diagnostics","method":"ping","argTypes":[],"argValues":[]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown lookup",
			path:       "/Diagnostics/ping",
			body:       `{"lookup":"nope","method":"ping","argTypes":[],"argValues":[]}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown method",
			path:       "/Diagnostics/reboot",
			body:       `{"lookup":"remoting/diagnostics","method":"reboot","argTypes":[],"argValues":[]}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "method error",
			path:       "/Diagnostics/fail",
			body:       `{"lookup":"remoting/diagnostics","method":"fail","argTypes":["java.lang.String"],"argValues":["boom"]}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveInvocation(t, inv, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestInvokerHandler_Unauthorized(t *testing.T) {
	inv := service.NewInvoker(slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(_ context.Context, _ string, c service.Caller) error {
			if c.Principal != "admin" {
				return errors.New("denied")
			}
			return nil
		})
	if err := inv.Register(service.DiagnosticsLookup, service.NewDiagnostics("test")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	rec := serveInvocation(t, inv, "/Diagnostics/ping",
		`{"lookup":"remoting/diagnostics","method":"ping","argTypes":[],"argValues":[],"java.naming.security.principal":"Z3Vlc3Q="}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] == "" || strings.Contains(body["error"], "denied") {
		t.Errorf("error = %q, want a generic message", body["error"])
	}
}

// Diagnostics mirrors the built-in diagnostics bean as a client-side service definition.
type Diagnostics struct {
	Ping  func(ctx context.Context) (string, error)           `remote:"ping"`
	Echo  func(ctx context.Context, s string) (string, error) `remote:"echo"`
	Add   func(a, b int64) (*remoting.Future[int64], error)   `remote:"add"`
	Info  func() *remoting.Single[service.ServerInfo]         `remote:"info"`
	Sleep func(ctx context.Context, ms int64) error           `remote:"sleep"`
	Fail  func(msg string) error                              `remote:"fail"`
	Who   func(ctx context.Context) (string, error)           `remote:"who"`
}

func TestInvokerHandler_RoundTrip(t *testing.T) {
	var principal string
	inv := service.NewInvoker(slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(_ context.Context, _ string, c service.Caller) error {
			principal = c.Principal
			return nil
		})
	if err := inv.Register(service.DiagnosticsLookup, service.NewDiagnostics("9.9.9")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e := echo.New()
	RegisterRoutes(e, NewInvokerHandler(inv, slog.New(slog.NewTextHandler(io.Discard, nil))), NewHealthHandler(inv, "9.9.9"))
	server := httptest.NewServer(e)
	defer server.Close()

	target, err := remoting.NewTarget(server.URL)
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	svc, err := remoting.New[Diagnostics](target, service.DiagnosticsLookup,
		remoting.WithOptions(map[string]any{remoting.SecurityPrincipal: "alice"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if got, err := svc.Ping(ctx); err != nil || got != "pong" {
		t.Errorf("Ping() = %q, %v; want pong", got, err)
	}
	if principal != "alice" {
		t.Errorf("principal seen by server = %q, want alice", principal)
	}
	if got, err := svc.Echo(ctx, "héllo"); err != nil || got != "héllo" {
		t.Errorf("Echo() = %q, %v; want héllo", got, err)
	}

	fut, err := svc.Add(40, 2)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got, err := fut.Get(ctx); err != nil || got != 42 {
		t.Errorf("Add().Get() = %d, %v; want 42", got, err)
	}

	info, err := svc.Info().Await(ctx)
	if err != nil || info.Version != "9.9.9" {
		t.Errorf("Info() = %+v, %v; want version 9.9.9", info, err)
	}

	if err := svc.Sleep(ctx, 1); err != nil {
		t.Errorf("Sleep() error = %v", err)
	}

	var se *client.StatusError
	if err := svc.Fail("boom"); !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Errorf("Fail() error = %v, want 500 StatusError", err)
	}
	if _, err := svc.Who(ctx); !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("Who() error = %v, want 404 StatusError", err)
	}
}
