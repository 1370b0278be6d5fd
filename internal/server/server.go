// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package server exposes the local HTTP surface of the dashboard data layer:
// the UI WebSocket feed, a health report and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/leaddesk/internal/cache"
	"github.com/tomtom215/leaddesk/internal/logging"
)

// Config configures the listener and middleware.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// BreakerReporter reports the backend circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

// OfflineReporter reports whether fetches are served from fallbacks.
type OfflineReporter interface {
	Offline() bool
}

// Deps are the components the routes read from. Nil fields are omitted from
// the health report; a nil WebSocket handler disables /ws.
type Deps struct {
	Backend   BreakerReporter
	Fetcher   OfflineReporter
	Cache     *cache.Manager
	WebSocket http.HandlerFunc
	Clients   func() int
}

// Health is the /healthz body.
type Health struct {
	Status    string       `json:"status"`
	Breaker   string       `json:"breaker,omitempty"`
	Offline   bool         `json:"offline"`
	Clients   int          `json:"clients"`
	Cache     *CacheHealth `json:"cache,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// CacheHealth summarises cache occupancy.
type CacheHealth struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	HitRate  float64 `json:"hitRate"`
}

// Server serves the HTTP surface.
type Server struct {
	cfg     Config
	deps    Deps
	handler http.Handler
}

// New builds the router.
func New(cfg Config, deps Deps) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{cfg: cfg, deps: deps}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(s.cfg.CORSOrigins))
	r.Use(Metrics)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RateLimitReqs, s.cfg.RateLimitWindow))
		if s.deps.WebSocket != nil {
			r.Get("/ws", s.deps.WebSocket)
		}
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logging.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) health() Health {
	h := Health{Status: "ok", Timestamp: time.Now().UTC()}
	if s.deps.Backend != nil {
		h.Breaker = s.deps.Backend.BreakerState()
		if h.Breaker != "closed" {
			h.Status = "degraded"
		}
	}
	if s.deps.Fetcher != nil && s.deps.Fetcher.Offline() {
		h.Offline = true
		h.Status = "degraded"
	}
	if s.deps.Clients != nil {
		h.Clients = s.deps.Clients()
	}
	if s.deps.Cache != nil {
		st := s.deps.Cache.Stats()
		h.Cache = &CacheHealth{Size: st.Size, Capacity: s.deps.Cache.Capacity(), HitRate: st.HitRate()}
	}
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.health()
	status := http.StatusOK
	if h.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, h)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to write response")
	}
}
