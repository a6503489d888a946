// Package handler exposes tenant endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"equiplink/internal/server/httpapi"
	"equiplink/internal/tenant/domain"
	"equiplink/internal/tenant/service"
)

type Handler struct {
	tenants *service.Service
	logger  *zap.Logger
}

func NewHandler(tenants *service.Service, logger *zap.Logger) *Handler {
	return &Handler{tenants: tenants, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{tenantID}", h.get)
}

type createRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type tenantResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Kind            string    `json:"kind"`
	LifecycleStatus string    `json:"lifecycle_status"`
	CreatedAt       time.Time `json:"created_at"`
}

func toTenantResponse(t *domain.Tenant) tenantResponse {
	return tenantResponse{
		ID:              t.ID,
		Name:            t.Name,
		Kind:            string(t.Kind),
		LifecycleStatus: string(t.LifecycleStatus),
		CreatedAt:       t.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req createRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	t, err := h.tenants.Create(r.Context(), actor, req.Name, domain.Kind(req.Kind))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toTenantResponse(t))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	t, err := h.tenants.Get(r.Context(), actor, chi.URLParam(r, "tenantID"))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toTenantResponse(t))
}
