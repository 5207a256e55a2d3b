// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Temporal      TemporalConfig      `yaml:"temporal"`
	Auth          AuthConfig          `yaml:"auth"`
	Classifier    ClassifierConfig    `yaml:"classifier"`
	Session       SessionConfig       `yaml:"session"`
	Polling       PollingConfig       `yaml:"polling"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// TemporalConfig describes how to reach the durable-execution engine.
// HostPort and Namespace are externally supplied; absent values fall back to
// the engine's documented local defaults.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
}

// AuthConfig describes JWT verification settings. When JWKSURL is empty the
// HMAC secret is used instead, which keeps local development self-contained.
type AuthConfig struct {
	Issuer       string        `yaml:"issuer"`
	Audience     string        `yaml:"audience"`
	JWKSURL      string        `yaml:"jwks_url"`
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl"`
	HMACSecret   string        `yaml:"hmac_secret"`
	Algorithms   []string      `yaml:"algorithms"`
}

// ClassifierConfig describes the generative event classifier endpoint. The
// classifier is opt-in: when disabled, every chat message is treated as a
// plain conversational turn. KeywordPrescreen additionally skips the
// classifier for messages without any workflow vocabulary, trading
// classifier calls for misses on unlisted phrasing.
type ClassifierConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Endpoint         string        `yaml:"endpoint"`
	Model            string        `yaml:"model"`
	APIKeyEnv        string        `yaml:"api_key_env"`
	Timeout          time.Duration `yaml:"timeout"`
	KeywordPrescreen bool          `yaml:"keyword_prescreen"`
}

// SessionConfig describes durable chat-session settings and the guest
// entitlement.
type SessionConfig struct {
	TaskQueue         string        `yaml:"task_queue"`
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
	GuestDailyLimit   int           `yaml:"guest_daily_limit"`
	HistoryLimit      int           `yaml:"history_limit"`
	OutboxSize        int           `yaml:"outbox_size"`
}

// PollingConfig describes the progress polling contract advertised to
// clients.
type PollingConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Guest-Id",
					"X-Correlation-Id"},
				MaxAge: 86400,
			},
		},
		Temporal: TemporalConfig{
			HostPort:  "127.0.0.1:7233",
			Namespace: "default",
		},
		Auth: AuthConfig{
			JWKSCacheTTL: 1 * time.Hour,
			Algorithms:   []string{"RS256", "HS256"},
		},
		Classifier: ClassifierConfig{
			Enabled:   false,
			Model:     "gpt-4o-mini",
			APIKeyEnv: "CLASSIFIER_API_KEY",
			Timeout:   10 * time.Second,
		},
		Session: SessionConfig{
			TaskQueue:         "chat-session-task-queue",
			InactivityTimeout: 24 * time.Hour,
			GuestDailyLimit:   50,
			HistoryLimit:      100,
			OutboxSize:        256,
		},
		Polling: PollingConfig{
			Interval: 2 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields. A missing file is not an error: defaults
// plus environment overrides apply, so the bridge can run against a local
// engine with no config file at all.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to env overrides and defaults.
	default:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required")
	}
	if c.Temporal.Namespace == "" {
		errs = append(errs, "temporal.namespace is required")
	}
	if c.Classifier.Enabled && c.Classifier.Endpoint == "" {
		errs = append(errs, "classifier.endpoint is required when classifier.enabled")
	}
	if c.Session.GuestDailyLimit < 0 {
		errs = append(errs, "session.guest_daily_limit must not be negative")
	}
	if c.Session.OutboxSize < 1 {
		errs = append(errs, "session.outbox_size must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads CHATBRIDGE_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHATBRIDGE_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CHATBRIDGE_TEMPORAL_HOST_PORT"); v != "" {
		cfg.Temporal.HostPort = v
	}
	if v := os.Getenv("CHATBRIDGE_TEMPORAL_NAMESPACE"); v != "" {
		cfg.Temporal.Namespace = v
	}
	if v := os.Getenv("CHATBRIDGE_CLASSIFIER_ENDPOINT"); v != "" {
		cfg.Classifier.Endpoint = v
	}
	if v := os.Getenv("CHATBRIDGE_AUTH_HMAC_SECRET"); v != "" {
		cfg.Auth.HMACSecret = v
	}
	if v := os.Getenv("CHATBRIDGE_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("CHATBRIDGE_SESSION_GUEST_DAILY_LIMIT"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			cfg.Session.GuestDailyLimit = n
		}
	}
}
