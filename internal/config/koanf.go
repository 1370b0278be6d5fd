// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"leaddesk.yaml",
	"leaddesk.yml",
	"/etc/leaddesk/config.yaml",
}

// ConfigPathEnvVar names the environment variable holding an explicit config path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:             "http://localhost:5000/api",
			Timeout:             30 * time.Second,
			RateLimit:           20,
			RateBurst:           40,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      30 * time.Second,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
		},
		Session: SessionConfig{
			Store: "memory",
			Path:  "/data/leaddesk/session",
		},
		Cache: CacheConfig{
			TTL:      5 * time.Minute,
			Capacity: 100,
		},
		Fetch: FetchConfig{
			Timeout: 30 * time.Second,
		},
		Broadcast: BroadcastConfig{
			Transport:    "memory",
			Bucket:       "leaddesk_broadcast",
			PulseDelay:   time.Second,
			PollInterval: 2 * time.Second,
		},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "/data/leaddesk/nats",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            7420,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Authz: AuthzConfig{
			CacheTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf layers defaults, the optional YAML file, and environment
// variables, then unmarshals and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values into string slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"api_base_url":              "api.base_url",
	"api_timeout":               "api.timeout",
	"api_rate_limit":            "api.rate_limit",
	"api_rate_burst":            "api.rate_burst",
	"api_breaker_max_requests":  "api.breaker_max_requests",
	"api_breaker_interval":      "api.breaker_interval",
	"api_breaker_timeout":       "api.breaker_timeout",
	"api_breaker_min_requests":  "api.breaker_min_requests",
	"api_breaker_failure_ratio": "api.breaker_failure_ratio",

	"session_store":             "session.store",
	"session_store_path":        "session.path",
	"session_encryption_secret": "session.encryption_secret",
	"session_token":             "session.token",

	"cache_ttl":      "cache.ttl",
	"cache_capacity": "cache.capacity",

	"fetch_timeout": "fetch.timeout",

	"broadcast_transport":     "broadcast.transport",
	"broadcast_bucket":        "broadcast.bucket",
	"broadcast_pulse_delay":   "broadcast.pulse_delay",
	"broadcast_poll_interval": "broadcast.poll_interval",

	"nats_url":       "nats.url",
	"nats_embedded":  "nats.embedded_server",
	"nats_host":      "nats.host",
	"nats_port":      "nats.port",
	"nats_store_dir": "nats.store_dir",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",

	"authz_policy_path": "authz.policy_path",
	"authz_cache_ttl":   "authz.cache_ttl",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unknown variables map to "" and are ignored by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
