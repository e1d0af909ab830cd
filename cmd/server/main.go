package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/activities"
	"github.com/transkin/billetterie/internal/config"
	"github.com/transkin/billetterie/internal/events"
	"github.com/transkin/billetterie/internal/handlers"
	"github.com/transkin/billetterie/internal/logging"
	"github.com/transkin/billetterie/internal/postgres"
	"github.com/transkin/billetterie/internal/router"
	"github.com/transkin/billetterie/internal/service"
	"github.com/transkin/billetterie/internal/store"
	"github.com/transkin/billetterie/internal/websocket"
	"github.com/transkin/billetterie/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.AppEnv, cfg.LogLevel, "billetterie-api")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event bus and websocket hub for operator dashboards
	bus := events.NewGoChannelBus(logger)
	publisher := events.NewPublisher(bus, logger)
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Pick the store backend
	var st store.Store
	if cfg.UsePostgres() {
		if err := postgres.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		st = postgres.NewStore(pool, publisher)
		logger.Info("Using Postgres store")
	} else {
		mem := store.NewMemoryStore(publisher)
		store.Seed(mem)
		st = mem
		logger.Info("Using in-memory store with demo data")
	}

	bridge := events.NewBridge(bus, st, hub, logger)
	go func() {
		if err := bridge.Run(ctx); err != nil {
			logger.Error("Event bridge stopped", zap.Error(err))
		}
	}()

	// Connect to Temporal
	temporalClient, err := client.Dial(client.Options{HostPort: cfg.TemporalHost})
	if err != nil {
		logger.Fatal("Failed to create Temporal client", zap.Error(err))
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", zap.String("host", cfg.TemporalHost))

	// With the in-memory store a separate worker process would not see this
	// server's data, so the worker runs embedded.
	if cfg.EmbeddedWorker {
		w := worker.New(temporalClient, workflows.TaskQueue, worker.Options{})
		w.RegisterWorkflow(workflows.PurchaseWorkflow)
		acts := activities.NewActivities(st)
		w.RegisterActivityWithOptions(acts.ProcessPayment, activity.RegisterOptions{Name: "ProcessPayment"})
		w.RegisterActivityWithOptions(acts.IssueTickets, activity.RegisterOptions{Name: "IssueTickets"})
		go func() {
			if err := w.Run(worker.InterruptCh()); err != nil {
				logger.Fatal("Embedded worker failed", zap.Error(err))
			}
		}()
		logger.Info("Embedded purchase worker started", zap.String("taskQueue", workflows.TaskQueue))
	}

	ticketingService := service.NewTicketingService(st, temporalClient, logger)
	h := handlers.NewHandler(ticketingService, logger)
	r := router.SetupRouter(h, hub, logger)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API server starting", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
