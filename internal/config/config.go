// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package config loads LeadDesk configuration from defaults, an optional YAML
// file, and environment variables (in that order of precedence, lowest first).
//
// Configuration sources:
//   - Built-in defaults (defaultConfig)
//   - YAML file from CONFIG_PATH or one of DefaultConfigPaths
//   - Environment variables listed in envMappings
package config

import "time"

// Config holds all application configuration.
type Config struct {
	API       APIConfig       `koanf:"api"`
	Session   SessionConfig   `koanf:"session"`
	Cache     CacheConfig     `koanf:"cache"`
	Fetch     FetchConfig     `koanf:"fetch"`
	Broadcast BroadcastConfig `koanf:"broadcast"`
	NATS      NATSConfig      `koanf:"nats"`
	Server    ServerConfig    `koanf:"server"`
	Authz     AuthzConfig     `koanf:"authz"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// APIConfig describes the remote CRM backend.
type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit is the sustained request rate (requests per second) and
	// RateBurst the bucket size. A RateLimit of 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// Circuit breaker settings.
	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
}

// SessionConfig controls where the bearer token and current user live.
type SessionConfig struct {
	// Store is "memory" or "badger".
	Store string `koanf:"store"`
	Path  string `koanf:"path"`

	// EncryptionSecret derives the key that encrypts the token at rest.
	// Required when Store is "badger".
	EncryptionSecret string `koanf:"encryption_secret"`

	// Token seeds the session at startup (useful for headless deployments).
	Token string `koanf:"token"`
}

// CacheConfig sizes the fetch cache.
type CacheConfig struct {
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity"`
}

// FetchConfig bounds in-flight fetches.
type FetchConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// BroadcastConfig controls the cross-process event channel.
type BroadcastConfig struct {
	// Transport is "memory" (single process) or "nats" (shared JetStream KV).
	Transport    string        `koanf:"transport"`
	Bucket       string        `koanf:"bucket"`
	PulseDelay   time.Duration `koanf:"pulse_delay"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// NATSConfig is used when the broadcast transport is "nats".
type NATSConfig struct {
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	StoreDir       string `koanf:"store_dir"`
}

// ServerConfig is the local HTTP surface (health, metrics, WebSocket feed).
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// AuthzConfig controls role gating of mutations.
type AuthzConfig struct {
	// PolicyPath replaces the built-in casbin policy when set.
	PolicyPath string        `koanf:"policy_path"`
	CacheTTL   time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
