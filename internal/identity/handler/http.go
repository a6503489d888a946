// Package handler exposes the authentication endpoints.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"equiplink/internal/apperr"
	"equiplink/internal/identity/service"
	"equiplink/internal/server/httpapi"
)

type Handler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewHandler(auth *service.AuthService, logger *zap.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Routes mounts the public auth endpoints. Logout and switch-tenant require
// an actor and are mounted by the caller under the authenticated group.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
}

// AuthedRoutes mounts the endpoints that need a resolved actor.
func (h *Handler) AuthedRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Post("/switch-tenant", h.switchTenant)
	r.Post("/logout", h.logout)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	UserID       string `json:"user_id"`
	TenantID     string `json:"tenant_id,omitempty"`
}

func toAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt.Unix(),
		UserID:       res.UserID,
		TenantID:     res.TenantID,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toAuthResponse(res))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password, req.TenantID)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toAuthResponse(res))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toAuthResponse(res))
}

type meResponse struct {
	UserID       string `json:"user_id"`
	TenantID     string `json:"tenant_id,omitempty"`
	OrgRole      string `json:"org_role,omitempty"`
	PlatformRole string `json:"platform_role,omitempty"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, meResponse{
		UserID:       actor.UserID,
		TenantID:     actor.TenantID,
		OrgRole:      string(actor.OrgRole),
		PlatformRole: string(actor.PlatformRole),
	})
}

type switchTenantRequest struct {
	TenantID string `json:"tenant_id"`
}

func (h *Handler) switchTenant(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req switchTenantRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	if req.TenantID == "" {
		httpapi.Error(h.logger, w, apperr.Invalid("identity.handler.switchTenant", "tenant_id is required"))
		return
	}
	res, err := h.auth.SwitchTenant(r.Context(), actor, req.TenantID)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toAuthResponse(res))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req refreshRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	if err := h.auth.Logout(r.Context(), actor, req.RefreshToken); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusNoContent, nil)
}
