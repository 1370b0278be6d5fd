// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Cache.Capacity != 100 {
		t.Errorf("Cache.Capacity = %d, want 100", cfg.Cache.Capacity)
	}
	if cfg.Broadcast.PulseDelay != time.Second {
		t.Errorf("Broadcast.PulseDelay = %v, want 1s", cfg.Broadcast.PulseDelay)
	}
	if cfg.Broadcast.Transport != "memory" {
		t.Errorf("Broadcast.Transport = %q, want memory", cfg.Broadcast.Transport)
	}
	if cfg.Session.Store != "memory" {
		t.Errorf("Session.Store = %q, want memory", cfg.Session.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"API_BASE_URL", "api.base_url"},
		{"CACHE_TTL", "cache.ttl"},
		{"CACHE_CAPACITY", "cache.capacity"},
		{"FETCH_TIMEOUT", "fetch.timeout"},
		{"BROADCAST_TRANSPORT", "broadcast.transport"},
		{"BROADCAST_PULSE_DELAY", "broadcast.pulse_delay"},
		{"NATS_EMBEDDED", "nats.embedded_server"},
		{"SESSION_STORE_PATH", "session.path"},
		{"HTTP_PORT", "server.port"},
		{"CORS_ORIGINS", "server.cors_origins"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
		{"RANDOM_VAR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("API_BASE_URL", "https://crm.example.com/api")
	t.Setenv("CACHE_TTL", "45s")
	t.Setenv("CACHE_CAPACITY", "12")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CORS_ORIGINS", "http://a.local, http://b.local")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.API.BaseURL != "https://crm.example.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Cache.TTL != 45*time.Second {
		t.Errorf("Cache.TTL = %v, want 45s", cfg.Cache.TTL)
	}
	if cfg.Cache.Capacity != 12 {
		t.Errorf("Cache.Capacity = %d, want 12", cfg.Cache.Capacity)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.local" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// untouched defaults survive
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 30s", cfg.Fetch.Timeout)
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaddesk.yaml")
	content := `
api:
  base_url: "https://backend.internal/api"
cache:
  capacity: 250
broadcast:
  transport: nats
  poll_interval: 500ms
nats:
  url: "nats://nats.internal:4222"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CACHE_CAPACITY", "300")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.API.BaseURL != "https://backend.internal/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Cache.Capacity != 300 {
		t.Errorf("env should override file: Cache.Capacity = %d, want 300", cfg.Cache.Capacity)
	}
	if cfg.Broadcast.Transport != "nats" {
		t.Errorf("Broadcast.Transport = %q, want nats", cfg.Broadcast.Transport)
	}
	if cfg.Broadcast.PollInterval != 500*time.Millisecond {
		t.Errorf("Broadcast.PollInterval = %v, want 500ms", cfg.Broadcast.PollInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, "API_BASE_URL is required"},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "scheme must be http or https"},
		{"zero capacity", func(c *Config) { c.Cache.Capacity = 0 }, "CACHE_CAPACITY"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "CACHE_TTL"},
		{"zero fetch timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "FETCH_TIMEOUT"},
		{"unknown transport", func(c *Config) { c.Broadcast.Transport = "redis" }, "BROADCAST_TRANSPORT"},
		{"bad nats url", func(c *Config) {
			c.Broadcast.Transport = "nats"
			c.NATS.URL = "http://nats"
		}, "NATS_URL scheme"},
		{"badger without secret", func(c *Config) { c.Session.Store = "badger" }, "SESSION_ENCRYPTION_SECRET"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad breaker ratio", func(c *Config) { c.API.BreakerFailureRatio = 1.5 }, "API_BREAKER_FAILURE_RATIO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_EmbeddedNATSSkipsURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Broadcast.Transport = "nats"
	cfg.NATS.EmbeddedServer = true
	cfg.NATS.URL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("embedded server should not require NATS_URL: %v", err)
	}
}
