package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Temporal.HostPort != "127.0.0.1:7233" {
		t.Errorf("Temporal.HostPort = %q", cfg.Temporal.HostPort)
	}
	if cfg.Session.GuestDailyLimit != 50 {
		t.Errorf("Session.GuestDailyLimit = %d, want 50", cfg.Session.GuestDailyLimit)
	}
	if cfg.Polling.Interval != 2*time.Second {
		t.Errorf("Polling.Interval = %v, want 2s", cfg.Polling.Interval)
	}
	if cfg.Session.InactivityTimeout != 24*time.Hour {
		t.Errorf("Session.InactivityTimeout = %v, want 24h", cfg.Session.InactivityTimeout)
	}
}

func TestLoad_yamlOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
temporal:
  host_port: temporal.internal:7233
  namespace: bridge
session:
  guest_daily_limit: 10
  inactivity_timeout: 1h
classifier:
  enabled: false
  keyword_prescreen: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Temporal.Namespace != "bridge" {
		t.Errorf("Temporal.Namespace = %q", cfg.Temporal.Namespace)
	}
	if cfg.Session.GuestDailyLimit != 10 {
		t.Errorf("Session.GuestDailyLimit = %d, want 10", cfg.Session.GuestDailyLimit)
	}
	if cfg.Session.InactivityTimeout != time.Hour {
		t.Errorf("Session.InactivityTimeout = %v, want 1h", cfg.Session.InactivityTimeout)
	}
	if !cfg.Classifier.KeywordPrescreen {
		t.Error("Classifier.KeywordPrescreen = false, want true")
	}
	// Untouched fields keep their defaults.
	if cfg.Session.OutboxSize != 256 {
		t.Errorf("Session.OutboxSize = %d, want 256", cfg.Session.OutboxSize)
	}
}

func TestLoad_envOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
classifier:
  enabled: false
`)

	t.Setenv("CHATBRIDGE_SERVER_PORT", "7070")
	t.Setenv("CHATBRIDGE_TEMPORAL_NAMESPACE", "staging")
	t.Setenv("CHATBRIDGE_SESSION_GUEST_DAILY_LIMIT", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Temporal.Namespace != "staging" {
		t.Errorf("Temporal.Namespace = %q, want staging", cfg.Temporal.Namespace)
	}
	if cfg.Session.GuestDailyLimit != 5 {
		t.Errorf("Session.GuestDailyLimit = %d, want 5", cfg.Session.GuestDailyLimit)
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"classifier enabled with endpoint", func(c *Config) {
			c.Classifier.Enabled = true
			c.Classifier.Endpoint = "https://api.example/v1/chat/completions"
		}, true},
		{"classifier enabled without endpoint", func(c *Config) {
			c.Classifier.Enabled = true
		}, false},
		{"port out of range", func(c *Config) {
			c.Server.Port = 0
		}, false},
		{"missing temporal host", func(c *Config) {
			c.Temporal.HostPort = ""
		}, false},
		{"negative guest limit", func(c *Config) {
			c.Session.GuestDailyLimit = -1
		}, false},
		{"zero outbox", func(c *Config) {
			c.Session.OutboxSize = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}
