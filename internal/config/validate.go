// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateAPI,
		c.validateSession,
		c.validateCache,
		c.validateFetch,
		c.validateBroadcast,
		c.validateServer,
		c.validateAuthz,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if err := validateHTTPURL(c.API.BaseURL, "API_BASE_URL"); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive, got %v", c.API.Timeout)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must not be negative, got %v", c.API.RateLimit)
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		return fmt.Errorf("API_RATE_BURST must be at least 1 when rate limiting is enabled")
	}
	if c.API.BreakerFailureRatio <= 0 || c.API.BreakerFailureRatio > 1 {
		return fmt.Errorf("API_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.API.BreakerFailureRatio)
	}
	return nil
}

func (c *Config) validateSession() error {
	switch c.Session.Store {
	case "memory":
		return nil
	case "badger":
		if c.Session.Path == "" {
			return fmt.Errorf("SESSION_STORE_PATH is required when SESSION_STORE=badger")
		}
		if len(c.Session.EncryptionSecret) < 16 {
			return fmt.Errorf("SESSION_ENCRYPTION_SECRET must be at least 16 characters when SESSION_STORE=badger")
		}
		return nil
	default:
		return fmt.Errorf("SESSION_STORE must be memory or badger, got %q", c.Session.Store)
	}
}

func (c *Config) validateCache() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.Cache.TTL)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("CACHE_CAPACITY must be at least 1, got %d", c.Cache.Capacity)
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %v", c.Fetch.Timeout)
	}
	return nil
}

func (c *Config) validateBroadcast() error {
	if c.Broadcast.PulseDelay <= 0 {
		return fmt.Errorf("BROADCAST_PULSE_DELAY must be positive, got %v", c.Broadcast.PulseDelay)
	}
	if c.Broadcast.PollInterval <= 0 {
		return fmt.Errorf("BROADCAST_POLL_INTERVAL must be positive, got %v", c.Broadcast.PollInterval)
	}

	switch c.Broadcast.Transport {
	case "memory":
		return nil
	case "nats":
		if c.Broadcast.Bucket == "" {
			return fmt.Errorf("BROADCAST_BUCKET is required when BROADCAST_TRANSPORT=nats")
		}
		if c.NATS.EmbeddedServer {
			if c.NATS.StoreDir == "" {
				return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
			}
			return nil
		}
		return validateNATSURL(c.NATS.URL)
	default:
		return fmt.Errorf("BROADCAST_TRANSPORT must be memory or nats, got %q", c.Broadcast.Transport)
	}
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative, got %d", c.Server.RateLimitReqs)
	}
	return nil
}

func (c *Config) validateAuthz() error {
	if c.Authz.CacheTTL < 0 {
		return fmt.Errorf("AUTHZ_CACHE_TTL must not be negative, got %v", c.Authz.CacheTTL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

// validateHTTPURL checks scheme and host. Unlike server base URLs, the CRM
// API base URL may carry a path prefix such as /api.
func validateHTTPURL(rawURL, fieldName string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, u.RawQuery)
	}
	return nil
}

func validateNATSURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("NATS_URL failed to parse: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("NATS_URL scheme must be nats, tls, ws, or wss, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("NATS_URL host is required")
	}
	return nil
}
