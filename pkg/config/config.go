// Package config provides the configuration for the clovertg client
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kart-io/clovertg/pkg/logger"
)

// DefaultTimeout is the request timeout used when none is configured
const DefaultTimeout = 30 * time.Second

// Config represents the client configuration
type Config struct {
	// URL is the base URL of the relay API
	URL string `json:"url" yaml:"url"`
	// Token is the default channel token used when neither the call nor the
	// builder supplies one
	Token   string        `json:"token" yaml:"token"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	Log       LogConfig       `json:"log" yaml:"log"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	// Instance-level settings
	LoggerInstance logger.Logger `json:"-" yaml:"-"`
}

// LogConfig configures logging behavior
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// TelemetryConfig configures OpenTelemetry export
type TelemetryConfig struct {
	Enabled        bool              `json:"enabled" yaml:"enabled"`
	ServiceName    string            `json:"service_name" yaml:"service_name"`
	ServiceVersion string            `json:"service_version" yaml:"service_version"`
	Environment    string            `json:"environment" yaml:"environment"`
	OTLPEndpoint   string            `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPHeaders    map[string]string `json:"otlp_headers" yaml:"otlp_headers"`
	Insecure       bool              `json:"insecure" yaml:"insecure"`
	SampleRate     float64           `json:"sample_rate" yaml:"sample_rate"`
}

// Option defines a functional option for configuration
type Option func(*Config) error

// Default returns the configuration defaults
func Default() *Config {
	return &Config{
		Timeout: DefaultTimeout,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "clovertg",
			ServiceVersion: "1.1.0",
			Environment:    "development",
			OTLPEndpoint:   "http://localhost:4318",
			SampleRate:     1.0,
		},
	}
}

// New creates a new configuration with the given options
func New(opts ...Option) (*Config, error) {
	cfg := Default()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", c.URL)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry: OTLP endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.SampleRate <= 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry: sample rate must be in (0, 1]")
		}
		if c.Telemetry.ServiceName == "" {
			c.Telemetry.ServiceName = "clovertg"
		}
	}

	return nil
}

// Logger returns the configured logger instance, building one from Log when
// none was injected
func (c *Config) Logger() logger.Logger {
	if c.LoggerInstance != nil {
		return c.LoggerInstance
	}
	return c.buildLogger()
}
