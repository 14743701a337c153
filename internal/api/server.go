// Package api wires the HTTP surface: the dispatch endpoint invoked by the
// external cron trigger, the subscription registry endpoints used by the
// PWA, health checks, and API docs.
package api

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/qurancoach/notifier/internal/api/handler"
	"github.com/qurancoach/notifier/internal/config"
	"github.com/qurancoach/notifier/internal/db"
	"github.com/qurancoach/notifier/internal/registry"
)

//go:embed openapi.json
var openapiSpec []byte

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *db.Pool, store *registry.Store, runner handler.DispatchRunner, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5)) // gzip

	// CORS — subscription endpoints are called from the PWA origin.
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, store, runner, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// Swagger UI over the served OpenAPI document
	r.Get("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openapiSpec)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Dispatcher invocation (external cron)
		r.Post("/notifications/dispatch", h.Dispatch)

		// Subscription registry
		r.Post("/subscriptions", h.Subscribe)
		r.Patch("/subscriptions", h.UpdatePreferences)
		r.Delete("/subscriptions", h.Unsubscribe)
	})

	return r
}
