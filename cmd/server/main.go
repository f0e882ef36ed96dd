package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowrunio/flowrun/internal/application/runner"
	"github.com/flowrunio/flowrun/internal/config"
	"github.com/flowrunio/flowrun/internal/domain"
	"github.com/flowrunio/flowrun/internal/executor"
	"github.com/flowrunio/flowrun/internal/infrastructure/api/rest"
	"github.com/flowrunio/flowrun/internal/infrastructure/logger"
	"github.com/flowrunio/flowrun/internal/infrastructure/monitoring"
	"github.com/flowrunio/flowrun/internal/infrastructure/storage"
	ws "github.com/flowrunio/flowrun/internal/infrastructure/websocket"
	"github.com/flowrunio/flowrun/internal/node"
	"github.com/flowrunio/flowrun/internal/node/builtin"
	"github.com/flowrunio/flowrun/internal/parser"
)

func main() {
	var (
		port    = flag.String("port", "", "server port (overrides config)")
		dslPath = flag.String("dsl", "", "workflow document path (overrides config)")
		noDB    = flag.Bool("no-db", false, "disable the persistent store")
	)
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	if *dslPath != "" {
		cfg.DSLPath = *dslPath
	}

	log := logger.Setup(cfg.LogLevel)
	log.Info().Str("port", cfg.Port).Str("dsl", cfg.DSLPath).Bool("no_db", *noDB).Msg("starting flowrun server")

	// Store selection: Postgres via bun unless disabled; fall back to the
	// in-memory store when the database is unreachable.
	var store domain.Store
	ctx := context.Background()
	if *noDB {
		store = storage.NewMemoryStore()
		log.Info().Msg("persistence disabled, using in-memory store")
	} else {
		bunStore := storage.NewBunStore(cfg.DatabaseDSN)
		if err := bunStore.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("database unavailable, falling back to in-memory store")
			store = storage.NewMemoryStore()
		} else {
			store = bunStore
			log.Info().Msg("database schema initialized")
		}
	}

	content, err := os.ReadFile(cfg.DSLPath)
	if err != nil {
		log.Fatal().Str("path", cfg.DSLPath).Err(err).Msg("failed to read workflow document")
	}
	graph, err := parser.Parse(content)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile workflow document")
	}
	log.Info().Str("workflow", graph.WorkflowID).Str("version", graph.Version).Int("nodes", len(graph.Nodes)).Msg("workflow loaded")

	workflowID := uuid.New()
	record := &domain.WorkflowRecord{
		ID:         workflowID,
		Name:       graph.WorkflowID,
		Definition: string(content),
		CreatedAt:  time.Now(),
	}
	if err := store.SaveWorkflow(ctx, record); err != nil {
		log.Warn().Err(err).Msg("failed to persist workflow definition")
	}

	registry := node.NewRegistry()
	if err := builtin.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("failed to register builtin nodes")
	}

	observers := monitoring.NewObserverManager()
	observers.Attach(monitoring.NewMetrics(prometheus.DefaultRegisterer))
	hub := ws.NewHub(log.With().Str("component", "websocket").Logger())
	observers.Attach(ws.NewRunObserver(hub))

	engineCfg := executor.DefaultConfig()
	engineCfg.MaxWorkers = cfg.MaxParallelNodes
	run := runner.New(store, registry, observers, engineCfg, log.With().Str("component", "runner").Logger())

	srv := rest.NewServer(
		rest.ServerConfig{DSLPath: cfg.DSLPath, WorkflowID: workflowID},
		graph, store, run, hub,
		log.With().Str("component", "rest").Logger(),
	)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
