package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"remoting-proxy-go/internal/config"
	"remoting-proxy-go/internal/handler"
	"remoting-proxy-go/internal/metrics"
	"remoting-proxy-go/internal/middleware"
	"remoting-proxy-go/internal/service"
)

type serveCmd struct{}

func (serveCmd) Run(g *config.CLI) error {
	app := fx.New(
		fx.Supply(g),
		fx.Provide(
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			metrics.New,
			newInvoker,
			newEcho,
			handler.NewInvokerHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, registerMetrics, warnConfigPermissions, startServer),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

// newInvoker registers the diagnostics bean. When security.principal is
// configured, callers must present the configured principal and credentials.
func newInvoker(cfg *config.Config, logger *slog.Logger, v handler.Version) (*service.Invoker, error) {
	var auth service.Authenticator
	if cfg.Security.Principal != "" {
		want := cfg.Security
		auth = func(_ context.Context, _ string, c service.Caller) error {
			if !c.Present {
				return errors.New("credentials required")
			}
			okUser := subtle.ConstantTimeCompare([]byte(c.Principal), []byte(want.Principal)) == 1
			okPass := subtle.ConstantTimeCompare([]byte(c.Credentials), []byte(want.Credentials)) == 1
			if !okUser || !okPass {
				return errors.New("principal or credentials mismatch")
			}
			return nil
		}
	}

	inv := service.NewInvoker(logger, auth)
	if err := inv.Register(service.DiagnosticsLookup, service.NewDiagnostics(string(v))); err != nil {
		return nil, err
	}
	return inv, nil
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Endpoint.TimeoutSeconds) * time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.MetricsMiddleware(m))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())

	if cfg.RateLimit.Enabled {
		store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		e.Use(echomw.RateLimiter(store))
		logger.Info("rate limiter enabled", "rps", cfg.RateLimit.RequestsPerSecond, "burst", cfg.RateLimit.Burst)
	}

	return e
}

func registerMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Metrics.Enabled {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting invoker endpoint", "addr", addr, "version", version)
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down invoker endpoint")
			return e.Shutdown(ctx)
		},
	})
}
