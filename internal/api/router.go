package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/ticketdesk/internal/api/handlers"
	"github.com/hugh/ticketdesk/internal/api/middleware"
	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"github.com/hugh/ticketdesk/internal/tickets"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          redis.UniversalClient
	Logger         *slog.Logger
	AuthService    auth.Authenticator
	Identity       auth.IdentityResolver
	FrontendOrigin string // The only origin allowed to make credentialed requests
	SecureCookies  bool
	RateLimitReqs  int  // Auth rate limit requests per window
	RateLimitSecs  int  // Auth rate limit window in seconds
	TrustProxy     bool // Attribute requests by X-Forwarded-For / X-Real-IP
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger, cfg.TrustProxy))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize services
	tenantStore := tenancy.NewStore(cfg.DB)
	ticketService := tickets.NewService(cfg.DB, cfg.Identity, cfg.Logger)
	tenantGuard := tenancy.NewGuard(tenancy.NewElevatedResolver(
		tenantStore, cfg.Identity, tenancy.NewStoreResolver(tenantStore),
	))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Logger, cfg.SecureCookies)
	meHandler := handlers.NewMeHandler(cfg.Identity, tenantStore, cfg.Logger)
	tenantHandler := handlers.NewTenantHandler(tenantStore, cfg.Logger)
	ticketHandler := handlers.NewTicketHandler(ticketService, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireOrigin(cfg.FrontendOrigin))

		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			if cfg.Redis != nil && cfg.RateLimitReqs > 0 {
				limiter := middleware.NewRateLimiter(cfg.Redis, "auth", cfg.RateLimitReqs, cfg.RateLimitSecs, cfg.TrustProxy, cfg.Logger)
				r.Use(limiter.Limit)
			}
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Identity, cfg.Logger))

			r.Get("/me", meHandler.Get)

			r.Route("/tenants/{tenantID}", func(r chi.Router) {
				r.Get("/tickets", ticketHandler.List)
				r.Post("/tickets", ticketHandler.Create)
				r.With(middleware.RequireTenantRole(tenantGuard, models.RoleAdmin, cfg.Logger)).
					Get("/members", tenantHandler.Members)
			})

			r.Route("/tickets/{ticketID}", func(r chi.Router) {
				r.Get("/", ticketHandler.Get)
				r.Patch("/", ticketHandler.Patch)
				r.Post("/messages", ticketHandler.Reply)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NotFound","message":"Route not found"}}`))
	})

	return &Router{r}
}
