package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/transkin/billetterie/internal/activities"
	"github.com/transkin/billetterie/internal/config"
	"github.com/transkin/billetterie/internal/logging"
	"github.com/transkin/billetterie/internal/postgres"
	"github.com/transkin/billetterie/internal/workflows"
)

// The standalone worker needs the shared Postgres store: against the
// in-memory store it would issue tickets into its own private state, so run
// the API server with EMBEDDED_WORKER=true instead.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.UsePostgres() {
		log.Fatal("DATABASE_URL is required for the standalone worker")
	}

	logger, err := logging.NewLogger(cfg.AppEnv, cfg.LogLevel, "billetterie-worker")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	if err := postgres.MigrateUp(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("Connected to database")

	st := postgres.NewStore(pool, nil)

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalHost})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer c.Close()
	logger.Info("Connected to Temporal", zap.String("host", cfg.TemporalHost))

	w := worker.New(c, workflows.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.PurchaseWorkflow)

	acts := activities.NewActivities(st)
	w.RegisterActivityWithOptions(acts.ProcessPayment, activity.RegisterOptions{Name: "ProcessPayment"})
	w.RegisterActivityWithOptions(acts.IssueTickets, activity.RegisterOptions{Name: "IssueTickets"})

	logger.Info("Starting purchase worker", zap.String("taskQueue", workflows.TaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("Worker failed", zap.Error(err))
	}
}
