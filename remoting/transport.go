package remoting

import (
	"log/slog"
	"sync"

	"remoting-proxy-go/internal/client"
	"remoting-proxy-go/internal/config"
	"remoting-proxy-go/internal/metrics"
)

// Transport configuration and metrics, re-exported for NewHTTPTransport.
type (
	Config      = config.Config
	Metrics     = metrics.Metrics
	StatusError = client.StatusError
)

// LoadConfig reads a TOML config file. An empty path searches the default locations.
func LoadConfig(path string) (*Config, error) {
	return config.Load(&config.CLI{Config: path})
}

// NewMetrics creates a metrics set on its own Prometheus registry.
func NewMetrics() *Metrics {
	return metrics.New()
}

// NewHTTPTransport builds the HTTP transport from the endpoint, async and
// rate_limit sections of cfg. logger and m may be nil.
func NewHTTPTransport(cfg *Config, logger *slog.Logger, m *Metrics) Transport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return client.NewRemoteClient(cfg, logger, m)
}

// defaultTransport is shared by every proxy bound without WithTransport.
var defaultTransport = sync.OnceValue(func() Transport {
	return client.NewDefault()
})
