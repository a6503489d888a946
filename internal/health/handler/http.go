// Package handler exposes liveness and readiness endpoints for load
// balancers and orchestration probes.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"equiplink/internal/server/httpapi"
)

// Check verifies one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

const checkTimeout = 2 * time.Second

type Handler struct {
	checks map[string]Check
	logger *zap.Logger
}

// NewHandler returns a health Handler over the named readiness checks
// (e.g. "database", "policy").
func NewHandler(logger *zap.Logger, checks map[string]Check) *Handler {
	return &Handler{checks: checks, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.live)
	r.Get("/readyz", h.ready)
}

// live answers as long as the process serves requests.
func (h *Handler) live(w http.ResponseWriter, r *http.Request) {
	httpapi.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready runs every check; any failure returns 503 with per-check detail.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			healthy = false
			results[name] = "unavailable"
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "ok"
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	httpapi.JSON(w, status, results)
}
