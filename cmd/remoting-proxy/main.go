package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"remoting-proxy-go/internal/config"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cli struct {
	config.CLI `kong:"embed"`

	Version kong.VersionFlag `kong:"help='Print version and exit.'"`

	Invoke invokeCmd `kong:"cmd,help='Invoke one remote method and print its JSON result.'"`
	Serve  serveCmd  `kong:"cmd,help='Run a local invoker endpoint with the built-in diagnostics bean.'"`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("remoting-proxy"),
		kong.Description("Client and test endpoint for HTTP remote method invocation."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&c.CLI))
}

func newLogger(cfg *config.Config) *slog.Logger {
	return loggerTo(os.Stdout, cfg)
}

func loggerTo(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		h = slog.NewJSONHandler(w, opts)
	}

	return slog.New(h)
}
