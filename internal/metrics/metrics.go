// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package metrics holds the Prometheus collectors for the cache, the fetch
// orchestrator, the backend client, and the broadcast channel. Collectors are
// registered with the default registry via promauto and served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_cache_misses_total",
			Help: "Total number of cache misses (absent or expired)",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_cache_evictions_total",
			Help: "Total number of cache removals by reason",
		},
		[]string{"cache", "reason"}, // reason: "capacity", "expired", "invalidated"
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leaddesk_cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache"},
	)

	// Fetch Orchestrator Metrics
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_fetch_requests_total",
			Help: "Fetch calls by outcome",
		},
		[]string{"outcome"}, // "cache_hit", "network", "coalesced", "offline", "fallback", "error", "timeout"
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leaddesk_fetch_duration_seconds",
			Help:    "Duration of network fetches issued by the orchestrator",
			Buckets: prometheus.DefBuckets,
		},
	)

	FetchOffline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leaddesk_fetch_offline",
			Help: "1 when the orchestrator is in offline mode",
		},
	)

	// Backend Metrics
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_backend_requests_total",
			Help: "Requests sent to the CRM backend",
		},
		[]string{"method", "status"},
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leaddesk_backend_request_duration_seconds",
			Help:    "Latency of CRM backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leaddesk_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Broadcast Metrics
	BroadcastsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_broadcasts_published_total",
			Help: "Events written to the broadcast channel",
		},
		[]string{"kind"},
	)

	BroadcastsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_broadcasts_received_total",
			Help: "Events delivered to listeners",
		},
		[]string{"kind", "source"}, // source: "watch", "poll"
	)

	BroadcastsMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leaddesk_broadcasts_malformed_total",
			Help: "Broadcast payloads that failed to decode",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leaddesk_websocket_connections",
			Help: "Current number of UI WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leaddesk_websocket_messages_sent_total",
			Help: "Messages pushed to UI clients",
		},
	)

	// Local HTTP surface
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaddesk_http_requests_total",
			Help: "Requests served by the local HTTP surface",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordFetch records the outcome of one orchestrator call.
func RecordFetch(outcome string) {
	FetchRequests.WithLabelValues(outcome).Inc()
}

// RecordNetworkFetch records a settled network fetch.
func RecordNetworkFetch(duration time.Duration) {
	FetchDuration.Observe(duration.Seconds())
}

// SetOffline mirrors the orchestrator's offline flag.
func SetOffline(offline bool) {
	if offline {
		FetchOffline.Set(1)
		return
	}
	FetchOffline.Set(0)
}

// RecordBackendRequest records one backend round trip.
func RecordBackendRequest(method, status string, duration time.Duration) {
	BackendRequests.WithLabelValues(method, status).Inc()
	BackendDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordBroadcastPublished counts an event written to the channel.
func RecordBroadcastPublished(kind string) {
	BroadcastsPublished.WithLabelValues(kind).Inc()
}

// RecordBroadcastReceived counts an event handed to listeners.
func RecordBroadcastReceived(kind, source string) {
	BroadcastsReceived.WithLabelValues(kind, source).Inc()
}

// RecordHTTPRequest counts a request to the local HTTP surface.
func RecordHTTPRequest(method, route, status string) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
}
