// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for the Servonix server.
//
// Servonix is a bus complaint management service for city transit
// operators. Passengers file complaints against districts, routes, and
// buses; district admins work them through a pending -> in_progress ->
// resolved lifecycle; a head of operations manages admins and district
// assignments. Every state change produces a durable notification that
// is mirrored in real time over WebSocket to the affected users.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered loading (defaults, config file,
//     environment variables)
//  2. Logging: zerolog, configured from the logging section
//  3. Database: DuckDB, schema migration and optional demo seed
//  4. Auth store: BadgerDB for pending registrations and OTP state
//  5. Mailer: SMTP with rate limiting and a circuit breaker
//  6. Event bus: Watermill in-process pub/sub
//  7. WebSocket hub and the bus-to-hub bridge
//  8. HTTP server: chi router, RBAC via casbin
//
// The hub, bridge, and HTTP server run under a suture supervision tree
// and restart independently on failure. SIGINT and SIGTERM trigger a
// graceful shutdown: the HTTP server drains in-flight requests, the hub
// closes live connections, and storage closes last.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/servonix/servonix/internal/api"
	"github.com/servonix/servonix/internal/assignment"
	"github.com/servonix/servonix/internal/audit"
	"github.com/servonix/servonix/internal/auth"
	"github.com/servonix/servonix/internal/authstore"
	"github.com/servonix/servonix/internal/authz"
	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/events"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/mail"
	"github.com/servonix/servonix/internal/notify"
	"github.com/servonix/servonix/internal/supervisor"
	"github.com/servonix/servonix/internal/supervisor/services"
	ws "github.com/servonix/servonix/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, so the default logger reports this.
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("mail_enabled", cfg.Mail.Enabled).
		Msg("starting servonix")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	store, err := authstore.Open(cfg.AuthStore)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open auth store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing auth store")
		}
	}()

	mailer := mail.NewMailer(cfg.Mail)

	jwtMgr, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create token manager")
	}
	authSvc := auth.NewService(db, store, mailer, jwtMgr, cfg.Security)

	enforcer, err := authz.NewEnforcer(cfg.Security.Casbin)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize authorization")
	}

	bus := events.NewBus(cfg.Events)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event bus")
		}
	}()

	hub := ws.NewHub(cfg.WebSocket)
	bridge := events.NewBridge(bus, hub)

	notifySvc := notify.NewService(db, bus)
	janitor := notify.NewJanitor(db, cfg.API.NotificationRetention)
	assigner := assignment.NewService(db, notifySvc)

	auditStore := audit.NewDuckDBStore(db.Conn())
	if err := auditStore.CreateTable(context.Background()); err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize audit store")
	}
	auditLog := audit.NewLogger(auditStore, audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		Retention:  cfg.Audit.Retention,
	})
	defer auditLog.Close()

	handler := api.NewHandler(db, authSvc, notifySvc, assigner, hub, bus, mailer, auditLog, cfg)
	mw := api.NewMiddleware(jwtMgr, enforcer, &cfg.Security)
	router := api.NewRouter(handler, mw).Setup()

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewRunnerService("websocket-hub", services.RunnerFunc(hub.RunWithContext)))
	tree.AddMessagingService(services.NewRunnerService("event-bridge", services.RunnerFunc(bridge.Run)))
	tree.AddMessagingService(services.NewRunnerService("notification-janitor", janitor))
	tree.AddMessagingService(services.NewRunnerService("audit-retention", services.RunnerFunc(auditLog.Run)))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("servonix ready")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor tree exited")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}

	logging.Info().Msg("servonix stopped")
}
