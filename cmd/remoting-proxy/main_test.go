package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"remoting-proxy-go/internal/codec"
	"remoting-proxy-go/internal/config"
	"remoting-proxy-go/remoting"
)

func TestLoggerTo(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		format   string
		wantLine string
		wantNone bool
	}{
		{"json info", "info", "json", `"msg":"hello"`, false},
		{"text debug", "debug", "text", "msg=hello", false},
		{"warn hides info", "warn", "text", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &config.Config{Log: config.LogConfig{Level: tt.level, Format: tt.format}}
			loggerTo(&buf, cfg).Info("hello")

			if tt.wantNone {
				if buf.Len() != 0 {
					t.Errorf("log = %q, want nothing", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tt.wantLine) {
				t.Errorf("log = %q, want it to contain %q", buf.String(), tt.wantLine)
			}
		})
	}
}

func TestWriteResult(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"ok":true}`, "{\"ok\":true}\n"},
		{" 42 \n", "42\n"},
		{"", ""},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := writeResult(&buf, codec.RawMessage(tt.in)); err != nil {
			t.Fatalf("writeResult(%q) error = %v", tt.in, err)
		}
		if buf.String() != tt.want {
			t.Errorf("writeResult(%q) = %q, want %q", tt.in, buf.String(), tt.want)
		}
	}
}

func TestWriteMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"pong"`))
	}))
	defer server.Close()

	cfg := &config.Config{Endpoint: config.EndpointConfig{TimeoutSeconds: 5}}
	m := remoting.NewMetrics()
	base, err := remoting.NewTarget(server.URL)
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	h, err := remoting.Dial(base, "Diagnostics", "remoting/diagnostics",
		remoting.WithTransport(remoting.NewHTTPTransport(cfg, nil, m)))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	var out codec.RawMessage
	if err := h.Invoke(context.Background(), "ping", nil, nil, &out); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	var buf bytes.Buffer
	if err := writeMetrics(&buf, m); err != nil {
		t.Fatalf("writeMetrics() error = %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		`remoting_invocations_total{outcome="success",shape="sync"} 1`,
		`remoting_upstream_responses_total{status_code="200"} 1`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("metrics output missing %q:\n%s", want, got)
		}
	}
	for _, unwanted := range []string{"go_goroutines", "remoting_endpoint_"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("metrics output contains %q", unwanted)
		}
	}
}
