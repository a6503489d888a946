// Package handler exposes membership endpoints, scoped to the actor's active
// tenant.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"equiplink/internal/membership/domain"
	"equiplink/internal/membership/service"
	"equiplink/internal/server/httpapi"
)

type Handler struct {
	members *service.Service
	logger  *zap.Logger
}

func NewHandler(members *service.Service, logger *zap.Logger) *Handler {
	return &Handler{members: members, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Patch("/{userID}", h.changeRole)
	r.Delete("/{userID}", h.remove)
}

type memberResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TenantID  string    `json:"tenant_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toMemberResponse(m *domain.Membership) memberResponse {
	return memberResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		TenantID:  m.TenantID,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	// Platform roles may pass an explicit tenant; everyone else reads their own.
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		tenantID = actor.TenantID
	}
	out, err := h.members.List(r.Context(), actor, tenantID)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res := make([]memberResponse, 0, len(out))
	for _, m := range out {
		res = append(res, toMemberResponse(m))
	}
	httpapi.JSON(w, http.StatusOK, res)
}

type addRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req addRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	m, err := h.members.Add(r.Context(), actor, req.Email, domain.Role(req.Role))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toMemberResponse(m))
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req changeRoleRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	m, err := h.members.ChangeRole(r.Context(), actor, chi.URLParam(r, "userID"), domain.Role(req.Role))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toMemberResponse(m))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	if err := h.members.Remove(r.Context(), actor, chi.URLParam(r, "userID")); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusNoContent, nil)
}
