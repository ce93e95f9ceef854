// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package main is the entry point for the Today Watch server.
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional config file and environment (Koanf v2)
//  2. Database: DuckDB history and candidate pool
//  3. Store: BadgerDB (or memory) profiles, feedback and settings
//  4. Planner and WebSocket hub
//  5. Event bus (optional): Watermill over GoChannel or NATS JetStream
//  6. HTTP server: chi router under /api/v1
//
// Everything long-lived runs under a suture supervisor tree. SIGINT and
// SIGTERM cancel the tree, which stops the HTTP server first and closes
// the bus and the embedded NATS server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/todaywatch/internal/api"
	"github.com/tomtom215/todaywatch/internal/config"
	"github.com/tomtom215/todaywatch/internal/database"
	"github.com/tomtom215/todaywatch/internal/eventprocessor"
	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/planner"
	"github.com/tomtom215/todaywatch/internal/store"
	"github.com/tomtom215/todaywatch/internal/supervisor"
	"github.com/tomtom215/todaywatch/internal/supervisor/services"
	ws "github.com/tomtom215/todaywatch/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Today Watch stopped with an error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("store_backend", cfg.Storage.Backend).
		Bool("events_enabled", cfg.Events.Enabled).
		Msg("Starting Today Watch")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	st, err := store.NewStore(store.Backend(cfg.Storage.Backend), cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewTree(logging.NewComponentSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	hub := ws.NewHub()
	plans := planner.New(planner.ConfigFrom(cfg), db, st, hub)
	processor := eventprocessor.NewProcessor(db, plans)

	var ingestor api.Ingestor = processor
	if cfg.Events.Enabled {
		publisher, err := startEventBus(ctx, cfg, tree, processor)
		if err != nil {
			return err
		}
		ingestor = publisher
	} else {
		logging.Info().Msg("Event bus disabled, ingesting synchronously")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows any origin, restrict CORS_ORIGINS outside development")
			break
		}
	}

	handler := api.NewHandler(plans,
		api.WithIngestor(ingestor),
		api.WithDatabase(db),
		api.WithHub(hub),
		api.WithAllowedOrigins(cfg.Security.CORSOrigins),
		api.WithVersion(version),
	)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(&cfg.Security)))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree.AddDataService(services.NewPruneService(db, cfg.TodayWatch.CandidateMaxAge, cfg.TodayWatch.PruneInterval, logging.WithComponent("prune")))
	tree.AddDataService(services.NewRebuildService(plans, cfg.TodayWatch.RebuildInterval, logging.WithComponent("rebuild")))
	tree.AddAPIService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Today Watch listening")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Today Watch stopped")
	return nil
}

// startEventBus opens the bus, registers the consumers on a router and adds
// both to the messaging layer. The returned publisher becomes the ingestor.
func startEventBus(ctx context.Context, cfg *config.Config, tree *supervisor.Tree, processor *eventprocessor.Processor) (*eventprocessor.Publisher, error) {
	busCfg := eventprocessor.BusConfigFrom(cfg)
	wmLogger := eventprocessor.NewWatermillLogger()

	bus, err := eventprocessor.NewBus(ctx, &busCfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}

	router, err := eventprocessor.NewRouter(&busCfg.Router, bus.Publisher(), wmLogger)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("create event router: %w", err)
	}
	processor.Register(router, bus.Subscriber())

	publisher := eventprocessor.NewPublisher(bus.Publisher())

	tree.AddMessagingService(router)
	tree.AddMessagingService(services.NewBusService(closers{publisher, bus}, logging.WithComponent("events")))

	logging.Info().
		Str("backend", bus.Backend()).
		Strs("topics", eventprocessor.Topics()).
		Msg("Event bus started")
	return publisher, nil
}

// closers closes each element in order and returns the first error.
type closers []services.Closer

func (c closers) Close() error {
	var first error
	for _, cl := range c {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
