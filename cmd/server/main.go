package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hugh/ticketdesk/internal/api"
	"github.com/hugh/ticketdesk/internal/api/validation"
	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/database"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"github.com/hugh/ticketdesk/pkg/config"
	"github.com/hugh/ticketdesk/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting ticketdesk server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	for _, domain := range cfg.Auth.AgentDomains {
		if !validation.IsValidDomain(domain) {
			logger.Warn("ignoring malformed agent domain", "domain", domain)
		}
	}

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Schema is owned by cmd/migrate; development databases are brought up to
	// date here so a fresh checkout runs without a separate step.
	if cfg.Server.IsDevelopment() {
		if err := database.Migrate(cfg.Database.URL(), "up"); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, auth rate limiting will fail open", "error", err)
	}

	// Initialize services
	codec, err := auth.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.AccessTTL())
	if err != nil {
		logger.Error("failed to create token codec", "error", err)
		os.Exit(1)
	}
	authService := auth.NewService(db, codec, logger, auth.ServiceConfig{
		RefreshTTL:   cfg.Auth.RefreshTTL(),
		AgentDomains: cfg.Auth.AgentDomains,
	})
	resolver := auth.NewResolver(db, codec)

	if _, err := tenancy.NewStore(db).EnsureOperationsTenant(context.Background()); err != nil {
		logger.Error("failed to ensure operations tenant", "error", err)
		os.Exit(1)
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		AuthService:    authService,
		Identity:       resolver,
		FrontendOrigin: cfg.Auth.FrontendOrigin,
		SecureCookies:  cfg.Server.IsProduction(),
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		TrustProxy:     cfg.Server.TrustProxy,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Close Redis connection
	redisClient.Close()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
