// Package handler exposes the platform console endpoints. Every route here
// requires a platform role; per-action authorization happens in the service's
// policy gate.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auditdomain "equiplink/internal/audit/domain"
	auditrepo "equiplink/internal/audit/repository"
	identitydomain "equiplink/internal/identity/domain"
	"equiplink/internal/platformops/domain"
	"equiplink/internal/platformops/service"
	"equiplink/internal/server/httpapi"
	tenantdomain "equiplink/internal/tenant/domain"
	"equiplink/internal/workflow"
)

type Handler struct {
	ops    *service.Service
	logger *zap.Logger
}

func NewHandler(ops *service.Service, logger *zap.Logger) *Handler {
	return &Handler{ops: ops, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/service-requests", h.listRequests)
	r.Post("/service-requests/{requestID}/reassign", h.reassignProvider)
	r.Get("/tenants", h.listTenants)
	r.Post("/tenants/{tenantID}/suspend", h.suspendTenant)
	r.Post("/tenants/{tenantID}/reactivate", h.reactivateTenant)
	r.Post("/disputes/{disputeID}/resolve", h.resolveDispute)
	r.Get("/audit-log", h.listAuditLog)
}

type overviewResponse struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	TenantName       string    `json:"tenant_name"`
	ProviderTenantID string    `json:"provider_tenant_id,omitempty"`
	ProviderName     string    `json:"provider_name,omitempty"`
	Title            string    `json:"title"`
	Urgency          string    `json:"urgency"`
	Status           string    `json:"status"`
	Stale            bool      `json:"stale"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toOverviewResponse(o *domain.RequestOverview) overviewResponse {
	return overviewResponse{
		ID:               o.ID,
		TenantID:         o.TenantID,
		TenantName:       o.TenantName,
		ProviderTenantID: o.ProviderTenantID,
		ProviderName:     o.ProviderName,
		Title:            o.Title,
		Urgency:          string(o.Urgency),
		Status:           string(o.Status),
		Stale:            o.Stale,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	status := workflow.State(r.URL.Query().Get("status"))
	limit, offset := httpapi.Pagination(r)
	out, err := h.ops.ListServiceRequests(r.Context(), actor, status, limit, offset)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res := make([]overviewResponse, 0, len(out))
	for _, o := range out {
		res = append(res, toOverviewResponse(o))
	}
	httpapi.JSON(w, http.StatusOK, res)
}

type tenantResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Kind            string    `json:"kind"`
	LifecycleStatus string    `json:"lifecycle_status"`
	CreatedAt       time.Time `json:"created_at"`
}

func (h *Handler) listTenants(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	limit, offset := httpapi.Pagination(r)
	out, err := h.ops.ListTenants(r.Context(), actor, limit, offset)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res := make([]tenantResponse, 0, len(out))
	for _, t := range out {
		res = append(res, tenantResponse{
			ID:              t.ID,
			Name:            t.Name,
			Kind:            string(t.Kind),
			LifecycleStatus: string(t.LifecycleStatus),
			CreatedAt:       t.CreatedAt,
		})
	}
	httpapi.JSON(w, http.StatusOK, res)
}

func (h *Handler) suspendTenant(w http.ResponseWriter, r *http.Request) {
	h.setLifecycle(w, r, h.ops.SuspendTenant)
}

func (h *Handler) reactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.setLifecycle(w, r, h.ops.ReactivateTenant)
}

func (h *Handler) setLifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor identitydomain.Actor, tenantID string) (*tenantdomain.Tenant, error)) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	t, err := op(r.Context(), actor, chi.URLParam(r, "tenantID"))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, tenantResponse{
		ID:              t.ID,
		Name:            t.Name,
		Kind:            string(t.Kind),
		LifecycleStatus: string(t.LifecycleStatus),
		CreatedAt:       t.CreatedAt,
	})
}

type resolveRequest struct {
	Ruling  string `json:"ruling"`
	Outcome string `json:"outcome"` // resolved or closed
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req resolveRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	d, err := h.ops.ResolveDispute(r.Context(), actor, chi.URLParam(r, "disputeID"), req.Ruling, workflow.State(req.Outcome))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, map[string]any{
		"id":     d.ID,
		"status": string(d.Status),
		"ruling": d.Ruling,
	})
}

type reassignRequest struct {
	ProviderTenantID string `json:"provider_tenant_id"`
}

func (h *Handler) reassignProvider(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req reassignRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	sr, err := h.ops.ReassignProvider(r.Context(), actor, chi.URLParam(r, "requestID"), req.ProviderTenantID)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, map[string]any{
		"id":                 sr.ID,
		"provider_tenant_id": sr.ProviderTenantID,
		"status":             string(sr.Status),
	})
}

type auditEntryResponse struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id,omitempty"`
	ActorID        string    `json:"actor_id"`
	Action         string    `json:"action"`
	ResourceType   string    `json:"resource_type"`
	ResourceID     string    `json:"resource_id"`
	PreviousValues any       `json:"previous_values,omitempty"`
	NewValues      any       `json:"new_values,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toAuditEntryResponse(e *auditdomain.Entry) auditEntryResponse {
	res := auditEntryResponse{
		ID:           e.ID,
		TenantID:     e.TenantID,
		ActorID:      e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		CreatedAt:    e.CreatedAt,
	}
	if len(e.PreviousValues) > 0 {
		res.PreviousValues = e.PreviousValues
	}
	if len(e.NewValues) > 0 {
		res.NewValues = e.NewValues
	}
	return res
}

func (h *Handler) listAuditLog(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	q := r.URL.Query()
	f := auditrepo.Filter{
		TenantID:     q.Get("tenant_id"),
		ActorID:      q.Get("actor_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
	}
	limit, offset := httpapi.Pagination(r)
	out, err := h.ops.ListAuditLog(r.Context(), actor, f, limit, offset)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res := make([]auditEntryResponse, 0, len(out))
	for _, e := range out {
		res = append(res, toAuditEntryResponse(e))
	}
	httpapi.JSON(w, http.StatusOK, res)
}
