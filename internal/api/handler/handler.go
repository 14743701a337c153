// Package handler provides HTTP handlers for the dispatcher and the
// subscription registry endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/qurancoach/notifier/internal/api/respond"
	"github.com/qurancoach/notifier/internal/config"
	"github.com/qurancoach/notifier/internal/db"
	"github.com/qurancoach/notifier/internal/dispatch"
	"github.com/qurancoach/notifier/internal/registry"
)

// DispatchRunner runs one notification cycle.
type DispatchRunner interface {
	Run(ctx context.Context, testMode bool) (dispatch.Result, error)
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool     *db.Pool
	store    *registry.Store
	runner   DispatchRunner
	cfg      *config.Config
	validate *validator.Validate
}

// New creates a Handler with shared dependencies.
func New(pool *db.Pool, store *registry.Store, runner DispatchRunner, cfg *config.Config) *Handler {
	return &Handler{
		pool:     pool,
		store:    store,
		runner:   runner,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// Root serves API info at /.
// @Summary API root info
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Quran Coach Notifier",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} respond.ErrorResponse
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database is unreachable", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}
