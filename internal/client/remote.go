// Package client provides the HTTP transport that carries remote invocations
// to the invoker endpoint.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"remoting-proxy-go/internal/codec"
	"remoting-proxy-go/internal/config"
	"remoting-proxy-go/internal/metrics"
	"remoting-proxy-go/internal/model"
)

// maxErrorBody caps how much of a failed response body is kept on StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned when the invoker endpoint answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("invoke %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("invoke %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// RemoteClient sends invocation exchanges to the invoker endpoint.
// It is safe for concurrent use.
type RemoteClient struct {
	httpClient *http.Client
	codec      codec.Codec
	limiter    *rate.Limiter
	slots      *semaphore.Weighted
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewRemoteClient creates a RemoteClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable metrics recording.
func NewRemoteClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *RemoteClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Endpoint.IdleConnections,
		MaxIdleConnsPerHost: cfg.Endpoint.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), max(cfg.RateLimit.Burst, 1))
	}

	slots := cfg.Async.MaxInFlight
	if slots <= 0 {
		slots = 64
	}

	return &RemoteClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Endpoint.TimeoutSeconds) * time.Second,
		},
		codec:   codec.Default,
		limiter: limiter,
		slots:   semaphore.NewWeighted(slots),
		logger:  logger.With("component", "remote_client"),
		metrics: m,
	}
}

// NewDefault creates a RemoteClient with default settings, no rate limiting,
// no metrics and a discarding logger.
func NewDefault() *RemoteClient {
	cfg := &config.Config{
		Endpoint: config.EndpointConfig{
			TimeoutSeconds:  30,
			IdleConnections: 100,
		},
		Async: config.AsyncConfig{MaxInFlight: 64},
	}
	return NewRemoteClient(cfg, slog.New(slog.DiscardHandler), nil)
}

// Invoke executes one exchange and blocks until the response has been decoded
// into out. A nil out, or an empty response body, leaves out untouched.
func (c *RemoteClient) Invoke(ctx context.Context, ex *model.Exchange, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			shape := ex.Shape.String()
			c.metrics.InvocationDuration.WithLabelValues(shape).Observe(time.Since(start).Seconds())
			c.metrics.InvocationsTotal.WithLabelValues(shape, metrics.Outcome(err)).Inc()
		}
	}()

	body, err := c.codec.Encode(ex.Payload)
	if err != nil {
		return fmt.Errorf("encode invocation payload: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, ex.Method, ex.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build invocation request: %w", err)
	}
	if ex.Header != nil {
		req.Header = ex.Header.Clone()
	}
	req.Header.Set("Content-Type", codec.ContentType)
	req.Header.Set("Accept", codec.ContentType)
	for _, ck := range ex.Cookies {
		req.AddCookie(ck)
	}

	c.logger.Debug("remote invocation",
		"url", ex.URL,
		"method", ex.Payload.Method,
		"shape", ex.Shape.String(),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", ex.URL, err)
	}
	defer func() { _ = CleanlyCloseBody(resp.Body) }()

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			URL:        ex.URL,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(excerpt)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s: %w", ex.URL, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := c.codec.Decode(data, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", ex.URL, err)
	}
	return nil
}

// Go runs fn on a new goroutine and returns immediately. At most
// async.max_in_flight functions run at once; the rest wait for a slot or
// for ctx to end, in which case fn still runs and observes the canceled ctx.
func (c *RemoteClient) Go(ctx context.Context, fn func(context.Context)) {
	go func() {
		if err := c.slots.Acquire(ctx, 1); err == nil {
			defer c.slots.Release(1)
		}
		if c.metrics != nil {
			c.metrics.AsyncInFlight.Inc()
			defer c.metrics.AsyncInFlight.Dec()
		}
		fn(ctx)
	}()
}

// CleanlyCloseBody drains and closes an HTTP response body so the underlying
// connection can be reused.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}
