// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"remoting-proxy-go/internal/model"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/remoting-proxy/config.toml",
	"configs/config.toml",
}

// CLI holds the global command-line flags parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	BaseURL  string `kong:"name='base-url',help='Invoker endpoint base URL (overrides config).',env='REMOTING_BASE_URL'"`
	Host     string `kong:"help='Listen host for serve (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Listen port for serve (overrides config).',env='PORT'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Endpoint  EndpointConfig  `toml:"endpoint"`
	Security  SecurityConfig  `toml:"security"`
	Async     AsyncConfig     `toml:"async"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// EndpointConfig describes the remote invoker endpoint and its connection settings.
type EndpointConfig struct {
	BaseURL         string            `toml:"base_url"`
	TimeoutSeconds  int               `toml:"timeout_seconds"`
	IdleConnections int               `toml:"idle_connections"`
	Headers         map[string]string `toml:"headers"`
	Cookies         []CookieConfig    `toml:"cookies"`
}

// CookieConfig is a single request cookie sent with every invocation.
type CookieConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// SecurityConfig holds the caller identity forwarded with each invocation.
type SecurityConfig struct {
	Principal   string `toml:"principal"`
	Credentials string `toml:"credentials"`
}

// AsyncConfig bounds asynchronous exchanges.
type AsyncConfig struct {
	MaxInFlight int64 `toml:"max_in_flight"`
}

// RateLimitConfig controls outbound (and, for serve, inbound) request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// ServerConfig holds settings for the local invoker endpoint started by serve.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"` // 0 means "use default" (8080)
	BodyMaxBytes int64  `toml:"body_max_bytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/remoting-proxy/config.toml then configs/config.toml.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.BaseURL != "" {
		c.Endpoint.BaseURL = cli.BaseURL
	}
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if c.Endpoint.BaseURL == "" {
		return fmt.Errorf("endpoint.base_url is required")
	}
	u, err := url.Parse(c.Endpoint.BaseURL)
	if err != nil {
		return fmt.Errorf("endpoint.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint.base_url must use http or https; got %q", c.Endpoint.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint.base_url has no host; got %q", c.Endpoint.BaseURL)
	}

	if c.Endpoint.TimeoutSeconds < 0 {
		return fmt.Errorf("endpoint.timeout_seconds must be non-negative; got %d", c.Endpoint.TimeoutSeconds)
	}
	if c.Endpoint.IdleConnections < 0 {
		return fmt.Errorf("endpoint.idle_connections must be non-negative; got %d", c.Endpoint.IdleConnections)
	}
	for i, ck := range c.Endpoint.Cookies {
		if ck.Name == "" {
			return fmt.Errorf("endpoint.cookies[%d].name is required", i)
		}
	}
	for name := range c.Endpoint.Headers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("endpoint.headers contains an empty header name")
		}
	}

	if c.Async.MaxInFlight < 0 {
		return fmt.Errorf("async.max_in_flight must be non-negative; got %d", c.Async.MaxInFlight)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must be non-negative; got %d", c.RateLimit.Burst)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		if p == "/healthz" {
			return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, "/healthz")
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// Zero means "unset" for integer fields because TOML cannot distinguish an
// explicit 0 from an omitted key.
func (c *Config) setDefaults() {
	if c.Endpoint.TimeoutSeconds == 0 {
		c.Endpoint.TimeoutSeconds = 30
	}
	if c.Endpoint.IdleConnections == 0 {
		c.Endpoint.IdleConnections = 100
	}
	if c.Async.MaxInFlight == 0 {
		c.Async.MaxInFlight = 64
	}
	if c.RateLimit.Enabled && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 1
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 4 * 1024 * 1024 // 4 MB
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Header returns the configured static headers as a canonicalized http.Header.
func (c *EndpointConfig) Header() http.Header {
	h := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		h.Add(k, v)
	}
	return h
}

// HTTPCookies returns the configured cookies in declaration order.
func (c *EndpointConfig) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(c.Cookies))
	for _, ck := range c.Cookies {
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

// Options returns the auxiliary invocation options derived from the security
// section. Empty fields are left out so they are never sent.
func (c *SecurityConfig) Options() map[string]any {
	opts := make(map[string]any, 2)
	if c.Principal != "" {
		opts[model.SecurityPrincipal] = c.Principal
	}
	if c.Credentials != "" {
		opts[model.SecurityCredentials] = c.Credentials
	}
	return opts
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
