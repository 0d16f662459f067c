// Package api wires the HTTP surface: router, middleware and handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/srishtiii28/alphascan/internal/aggregator"
	"github.com/srishtiii28/alphascan/internal/api/handler"
	customMiddleware "github.com/srishtiii28/alphascan/internal/api/middleware"
	"github.com/srishtiii28/alphascan/internal/config"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/ledger"
	"github.com/srishtiii28/alphascan/internal/repository/redis"
	"github.com/srishtiii28/alphascan/internal/security"
	"github.com/srishtiii28/alphascan/internal/service"
	"github.com/srishtiii28/alphascan/internal/watcher"
)

// Deps carries everything the router needs. The components are constructed in
// main so shutdown order stays in one place.
type Deps struct {
	Config      *config.Config
	JWTManager  *security.JWTManager
	AuthService *service.AuthService
	WatchSvc    *service.WatchService
	Aggregator  *aggregator.Aggregator
	Supervisor  *watcher.Supervisor
	Audit       domain.AuditRepository
	Tokens      domain.TokenHistoryRepository
	Ledger      ledger.Service
	Store       handler.Pinger
	RateLimiter *redis.RateLimiter
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Handlers
	authHandler := handler.NewAuthHandler(deps.AuthService)
	watchHandler := handler.NewWatchHandler(deps.WatchSvc)
	activityHandler := handler.NewActivityHandler(deps.Aggregator, deps.Supervisor, deps.Audit, deps.Tokens, deps.Ledger)

	authMiddleware := customMiddleware.NewAuthMiddleware(deps.JWTManager)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(deps.RateLimiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Store))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/verify", authHandler.Verify)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Route("/watches", func(r chi.Router) {
				r.Get("/", watchHandler.List)
				r.Post("/", watchHandler.Create)
				r.Delete("/", watchHandler.Delete)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", watchHandler.Groups)
				r.Get("/{groupID}/topics", watchHandler.Topics)
			})

			r.Get("/queue", activityHandler.Queue)
			r.Get("/logs", activityHandler.Logs)
			r.Get("/tokens", activityHandler.Tokens)
		})
	})

	return r
}
