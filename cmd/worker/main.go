package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/ticketdesk/internal/database"
	"github.com/hugh/ticketdesk/internal/tasks"
	"github.com/hugh/ticketdesk/pkg/config"
	"github.com/hugh/ticketdesk/pkg/queue"
	"github.com/hugh/ticketdesk/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	if err := util.ValidateCronExpr(cfg.Sessions.PurgeCron); err != nil {
		logger.Error("invalid SESSION_PURGE_CRON", "error", err)
		os.Exit(1)
	}

	logger.Info("starting ticketdesk worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 4)

	// Create task handler
	handler := tasks.NewHandler(db, logger, cfg.Sessions.Retention())

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Schedule the session purge
	scheduler := queue.NewScheduler(&cfg.Redis, logger)
	purge, err := tasks.NewSessionPurgeTask(tasks.SessionPurgePayload{})
	if err != nil {
		logger.Error("failed to build session purge task", "error", err)
		os.Exit(1)
	}
	entryID, err := scheduler.Register(cfg.Sessions.PurgeCron, purge)
	if err != nil {
		logger.Error("failed to register session purge", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Sessions.PurgeCron, time.Now()); err == nil {
		logger.Info("session purge scheduled", "entry_id", entryID, "cron", cfg.Sessions.PurgeCron, "next_run", next)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started, waiting for tasks...")
	runErr := serve(ctx, srv, scheduler, mux, logger)
	stop()

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	if runErr != nil {
		logger.Error("worker error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

type processor interface {
	Start(handler asynq.Handler) error
	Shutdown()
}

type periodic interface {
	Start() error
	Shutdown()
}

// serve starts the scheduler and the task processor and blocks until ctx is
// done. A component that fails to start stops the other and returns its error.
func serve(ctx context.Context, srv processor, scheduler periodic, handler asynq.Handler, logger *slog.Logger) error {
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	if err := srv.Start(handler); err != nil {
		scheduler.Shutdown()
		return fmt.Errorf("starting worker: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
	return nil
}
