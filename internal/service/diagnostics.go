package service

import (
	"context"
	"errors"
	"time"
)

// DiagnosticsLookup is the lookup name the serve command registers Diagnostics under.
const DiagnosticsLookup = "remoting/diagnostics"

// Diagnostics is a built-in bean used to check an invoker endpoint end to end.
type Diagnostics struct {
	version string
	started time.Time
}

// NewDiagnostics creates a Diagnostics bean reporting version.
func NewDiagnostics(version string) *Diagnostics {
	return &Diagnostics{version: version, started: time.Now()}
}

// ServerInfo is returned by Diagnostics.Info.
type ServerInfo struct {
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

func (d *Diagnostics) Ping() string { return "pong" }

func (d *Diagnostics) Echo(s string) string { return s }

func (d *Diagnostics) Add(a, b int64) int64 { return a + b }

func (d *Diagnostics) Info() ServerInfo {
	return ServerInfo{
		Version:       d.version,
		UptimeSeconds: int64(time.Since(d.started).Seconds()),
	}
}

// Sleep waits for ms milliseconds or until the request is canceled.
func (d *Diagnostics) Sleep(ctx context.Context, ms int64) error {
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail always returns an error carrying msg.
func (d *Diagnostics) Fail(msg string) error {
	return errors.New(msg)
}
