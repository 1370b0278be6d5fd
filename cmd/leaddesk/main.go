// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Command leaddesk runs the CRM dashboard data layer as a local service.
//
// Components are built in dependency order:
//
//  1. Configuration (koanf: defaults, optional YAML, environment)
//  2. Session store (memory or badger), optionally seeded from SESSION_TOKEN
//  3. Backend client with rate limiting and a circuit breaker
//  4. Cache and fetch orchestrator, following the breaker for offline mode
//  5. Broadcast channel (memory, or NATS JetStream KV with -tags nats)
//  6. Notifier, listener, dashboard view-model
//  7. WebSocket hub and HTTP surface (/healthz, /metrics, /ws)
//
// Long-running parts run under a suture supervisor tree and stop on SIGINT or
// SIGTERM.
//
// Example:
//
//	export API_BASE_URL=https://crm.example.com/api
//	export SESSION_STORE=badger
//	export SESSION_ENCRYPTION_SECRET=$(openssl rand -base64 32)
//	./leaddesk
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/leaddesk/internal/authz"
	"github.com/tomtom215/leaddesk/internal/backend"
	"github.com/tomtom215/leaddesk/internal/cache"
	"github.com/tomtom215/leaddesk/internal/config"
	"github.com/tomtom215/leaddesk/internal/crm"
	"github.com/tomtom215/leaddesk/internal/dashboard"
	"github.com/tomtom215/leaddesk/internal/fetcher"
	"github.com/tomtom215/leaddesk/internal/logging"
	"github.com/tomtom215/leaddesk/internal/models"
	"github.com/tomtom215/leaddesk/internal/notify"
	"github.com/tomtom215/leaddesk/internal/server"
	"github.com/tomtom215/leaddesk/internal/session"
	"github.com/tomtom215/leaddesk/internal/supervisor"
	ws "github.com/tomtom215/leaddesk/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("api", cfg.API.BaseURL).
		Str("session_store", cfg.Session.Store).
		Str("broadcast", cfg.Broadcast.Transport).
		Msg("Starting LeadDesk data layer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("LeadDesk stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("LeadDesk stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := session.NewStore(cfg.Session.Store, cfg.Session.Path, cfg.Session.EncryptionSecret)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store)
	if cfg.Session.Token != "" {
		if err := seedSession(ctx, sessions, cfg.Session.Token); err != nil {
			_ = sessions.Close()
			return err
		}
	}

	client := backend.New(backend.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
		Breaker: backend.BreakerConfig{
			MaxRequests:  cfg.API.BreakerMaxRequests,
			Interval:     cfg.API.BreakerInterval,
			Timeout:      cfg.API.BreakerTimeout,
			MinRequests:  cfg.API.BreakerMinRequests,
			FailureRatio: cfg.API.BreakerFailureRatio,
		},
	}, sessions)
	api := crm.New(client)

	fetchCache := cache.New(cache.Config{TTL: cfg.Cache.TTL, Capacity: cfg.Cache.Capacity, Name: "fetch"})
	orchestrator := fetcher.New(fetchCache, fetcher.Config{Timeout: cfg.Fetch.Timeout})
	orchestrator.FollowBackend(client)

	chCfg := notify.ChannelConfig{
		Transport: cfg.Broadcast.Transport,
		Bucket:    cfg.Broadcast.Bucket,
		NATSURL:   cfg.NATS.URL,
	}
	if cfg.NATS.EmbeddedServer {
		chCfg.Embedded = &notify.EmbeddedConfig{Host: cfg.NATS.Host, Port: cfg.NATS.Port, StoreDir: cfg.NATS.StoreDir}
	}
	channel, err := notify.OpenChannel(ctx, chCfg)
	if err != nil {
		_ = sessions.Close()
		return err
	}

	enforcer, err := authz.NewEnforcer(authz.Config{PolicyPath: cfg.Authz.PolicyPath, CacheTTL: cfg.Authz.CacheTTL})
	if err != nil {
		_ = channel.Close()
		_ = sessions.Close()
		return err
	}

	hub := ws.NewHub()
	notifier := notify.NewNotifier(fetchCache, channel, notify.NotifierConfig{PulseDelay: cfg.Broadcast.PulseDelay})
	listener := notify.NewListener(channel, notify.ListenerConfig{
		PollInterval: cfg.Broadcast.PollInterval,
		CurrentUser:  sessions.UserID,
		Toaster:      hub,
	})
	listener.OnRefresh(hub.Refresh)

	dash := dashboard.New(dashboard.Deps{
		Loader:   fetcher.NewLoader(orchestrator, api),
		API:      api,
		Notifier: notifier,
		Listener: listener,
		Enforcer: enforcer,
		Session:  sessions,
	})
	defer dash.Close()

	httpServer := server.New(server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimitReqs:   cfg.Server.RateLimitReqs,
		RateLimitWindow: cfg.Server.RateLimitWindow,
	}, server.Deps{
		Backend:   client,
		Fetcher:   orchestrator,
		Cache:     fetchCache,
		WebSocket: hub.ServeWS,
		Clients:   hub.ClientCount,
	})

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddData(supervisor.NewCloser("session-store", sessions.Close))
	tree.AddData(supervisor.NewService("dashboard-warmup", func(ctx context.Context) error {
		if _, err := dash.RefreshAll(ctx, false); err != nil {
			logging.Warn().Err(err).Msg("Initial dashboard load failed")
		}
		return nil
	}))
	tree.AddMessaging(supervisor.NewService("broadcast-listener", listener.Serve))
	tree.AddMessaging(supervisor.NewCloser("broadcast-channel", func() error {
		notifier.Close()
		return channel.Close()
	}))
	tree.AddAPI(supervisor.NewService("websocket-hub", hub.Serve))
	tree.AddAPI(supervisor.NewService("http-server", httpServer.Serve))

	logging.Info().Str("addr", httpServer.Addr()).Msg("Supervisor tree starting")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	return err
}

// seedSession signs in with a configured token, taking the user from its
// claims when it is a JWT.
func seedSession(ctx context.Context, sessions *session.Manager, token string) error {
	var user models.User
	if claims, err := session.ParseClaims(token); err == nil {
		user = models.User{ID: claims.UserID, Email: claims.Email, Role: claims.Role}
		if user.ID == "" {
			user.ID = claims.Subject
		}
	}
	if err := sessions.SignIn(ctx, token, user); err != nil {
		return err
	}
	logging.Info().Str("user_id", user.ID).Msg("Session seeded from configuration")
	return nil
}
