package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/hugh/ticketdesk/internal/database"
	"github.com/hugh/ticketdesk/pkg/config"
	"github.com/hugh/ticketdesk/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)

	logger.Info("running migrations", "direction", *direction, "database", cfg.Database.Name)
	if err := database.Migrate(cfg.Database.URL(), *direction); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete")
}
