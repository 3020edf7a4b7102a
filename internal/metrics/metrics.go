// Package metrics provides Prometheus metrics for remote invocations and the
// local invoker endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for invocation latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds all Prometheus metric collectors.
type Metrics struct {
	Registry *prometheus.Registry

	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	AsyncInFlight      prometheus.Gauge

	UpstreamResponses *prometheus.CounterVec

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		InvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remoting_invocations_total",
			Help: "Total remote invocations by return shape and outcome.",
		}, []string{"shape", "outcome"}),

		InvocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remoting_invocation_duration_seconds",
			Help:    "Remote invocation latency in seconds, measured around the HTTP exchange.",
			Buckets: defaultBuckets,
		}, []string{"shape"}),

		AsyncInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remoting_async_in_flight",
			Help: "Number of asynchronous exchanges currently running.",
		}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remoting_upstream_responses_total",
			Help: "Total invoker endpoint responses by status code.",
		}, []string{"status_code"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remoting_endpoint_requests_total",
			Help: "Total inbound requests served by the local invoker endpoint.",
		}, []string{"method", "status_code"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remoting_endpoint_request_duration_seconds",
			Help:    "Inbound request latency of the local invoker endpoint in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remoting_endpoint_requests_in_flight",
			Help: "Number of inbound requests currently being processed.",
		}),
	}

	reg.MustRegister(
		m.InvocationsTotal,
		m.InvocationDuration,
		m.AsyncInFlight,
		m.UpstreamResponses,
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// Outcome maps an invocation error to its outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
