package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/clovertg/pkg/logger"
)

// Environment variables read by WithEnvDefaults
const (
	EnvURL          = "CLOVERTG_URL"
	EnvToken        = "CLOVERTG_TOKEN"
	EnvTimeout      = "CLOVERTG_TIMEOUT"
	EnvLogLevel     = "CLOVERTG_LOG_LEVEL"
	EnvOTLPEndpoint = "CLOVERTG_OTLP_ENDPOINT"
)

// WithURL sets the relay API base URL
func WithURL(url string) Option {
	return func(cfg *Config) error {
		cfg.URL = url
		return nil
	}
}

// WithToken sets the default token
func WithToken(token string) Option {
	return func(cfg *Config) error {
		cfg.Token = token
		return nil
	}
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		cfg.Timeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger instance
func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) error {
		cfg.LoggerInstance = l
		return nil
	}
}

// WithLogLevel sets the level of the built-in logger
func WithLogLevel(level string) Option {
	return func(cfg *Config) error {
		if _, err := logger.ParseLevel(level); err != nil {
			return err
		}
		cfg.Log.Level = level
		return nil
	}
}

// WithTelemetry replaces the telemetry configuration
func WithTelemetry(t TelemetryConfig) Option {
	return func(cfg *Config) error {
		cfg.Telemetry = t
		return nil
	}
}

// WithOTLPEndpoint enables telemetry export to the given OTLP/HTTP endpoint
func WithOTLPEndpoint(endpoint string) Option {
	return func(cfg *Config) error {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.OTLPEndpoint = endpoint
		return nil
	}
}

// WithEnvDefaults loads configuration from environment variables.
// Only variables that are set override the current values.
func WithEnvDefaults() Option {
	return func(cfg *Config) error {
		if v := os.Getenv(EnvURL); v != "" {
			cfg.URL = v
		}
		if v := os.Getenv(EnvToken); v != "" {
			cfg.Token = v
		}
		if v := os.Getenv(EnvTimeout); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: invalid duration %q: %w", EnvTimeout, v, err)
			}
			cfg.Timeout = d
		}
		if v := os.Getenv(EnvLogLevel); v != "" {
			cfg.Log.Level = v
		}
		if v := os.Getenv(EnvOTLPEndpoint); v != "" {
			cfg.Telemetry.Enabled = true
			cfg.Telemetry.OTLPEndpoint = v
		}
		return nil
	}
}

// WithFile merges the YAML or JSON file at path into the configuration
func WithFile(path string) Option {
	return func(cfg *Config) error {
		return decodeFile(path, cfg)
	}
}

// Load reads the configuration file at path and validates it
func Load(path string) (*Config, error) {
	return New(WithFile(path))
}

func decodeFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return fmt.Errorf("read config %s: unsupported extension %q", path, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	// JSON documents are valid YAML, so one decoder serves both formats.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) buildLogger() logger.Logger {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		level = logger.Warn
	}
	if strings.EqualFold(c.Log.Format, "json") {
		return logger.NewJSON(os.Stderr, level)
	}
	return logger.NewConsole(os.Stderr, level)
}
