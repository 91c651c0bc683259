package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/waqf-policy-engine/app"
	"github.com/upb/waqf-policy-engine/handlers"
	"github.com/upb/waqf-policy-engine/middleware"
	"github.com/upb/waqf-policy-engine/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument(routePattern))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match", middleware.HeaderRequestID},
		ExposedHeaders:   []string{"ETag", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	health := handlers.NewHealthHandler(deps.Store, deps.Logger)
	r.Get("/health", health.HandleHealth)
	r.Get("/health/ready", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	docs := handlers.NewDocumentHandler(deps.Documents, deps.Logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)
		if deps.Throttle != nil {
			r.Use(deps.Throttle.Handler)
		}

		r.Route("/collections/{collection}/documents", func(r chi.Router) {
			r.Get("/", docs.HandleList)
			r.Get("/{key}", docs.HandleGet)
			r.Put("/{key}", docs.HandlePut)
			r.Delete("/{key}", docs.HandleDelete)
		})

		r.Post("/assert/{collection}", docs.HandleAssert)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

// routePattern labels metrics with the matched chi pattern so document keys
// never become label values
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
