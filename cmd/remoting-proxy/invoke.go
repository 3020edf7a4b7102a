package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/common/expfmt"

	"remoting-proxy-go/internal/codec"
	"remoting-proxy-go/internal/config"
	"remoting-proxy-go/remoting"
)

type invokeCmd struct {
	Lookup    string   `kong:"required,help='Lookup identifier of the target bean.'"`
	Interface string   `kong:"required,short='i',help='Interface simple name, the first path segment.'"`
	Method    string   `kong:"arg,help='Remote method name.'"`
	ArgType   []string `kong:"name='arg-type',short='t',sep='none',help='Argument type name; repeat once per argument.'"`
	Arg       []string `kong:"name='arg',short='a',sep='none',help='Argument value as JSON; repeat once per argument.'"`
	Metrics   bool     `kong:"help='Print client metrics to stderr after the call.'"`
}

func (c *invokeCmd) Run(g *config.CLI) error {
	cfg, err := config.Load(g)
	if err != nil {
		return err
	}
	logger := loggerTo(os.Stderr, cfg)
	cfg.WarnPermissions(logger)

	values := make([]any, len(c.Arg))
	for i, a := range c.Arg {
		if err := codec.Default.Decode([]byte(a), &values[i]); err != nil {
			return fmt.Errorf("--arg %d: %w", i+1, err)
		}
	}

	base, err := remoting.NewTarget(cfg.Endpoint.BaseURL)
	if err != nil {
		return err
	}
	m := remoting.NewMetrics()
	h, err := remoting.Dial(base, c.Interface, c.Lookup,
		remoting.WithTransport(remoting.NewHTTPTransport(cfg, logger, m)),
		remoting.WithLogger(logger),
		remoting.WithHeader(cfg.Endpoint.Header()),
		remoting.WithCookies(cfg.Endpoint.HTTPCookies()...),
		remoting.WithOptions(cfg.Security.Options()),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var out codec.RawMessage
	err = h.Invoke(ctx, c.Method, c.ArgType, values, &out)
	if c.Metrics {
		if werr := writeMetrics(os.Stderr, m); werr != nil {
			logger.Warn("write metrics", "err", werr)
		}
	}
	if err != nil {
		return err
	}
	return writeResult(os.Stdout, out)
}

// writeMetrics prints the client-side remoting_* families in the Prometheus text format.
func writeMetrics(w io.Writer, m *remoting.Metrics) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), "remoting_") || strings.HasPrefix(f.GetName(), "remoting_endpoint_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, f); err != nil {
			return err
		}
	}
	return nil
}

// writeResult prints a JSON result followed by a newline. Empty results print nothing.
func writeResult(w io.Writer, out codec.RawMessage) error {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "%s\n", out)
	return err
}
