// Package handler exposes dispute endpoints for tenant actors. Arbitration
// (resolve/close) lives under the platform routes.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"equiplink/internal/dispute/domain"
	"equiplink/internal/dispute/service"
	"equiplink/internal/server/httpapi"
	"equiplink/internal/workflow"
)

type Handler struct {
	disputes *service.Service
	logger   *zap.Logger
}

func NewHandler(disputes *service.Service, logger *zap.Logger) *Handler {
	return &Handler{disputes: disputes, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.open)
	r.Get("/{disputeID}", h.get)
	r.Post("/{disputeID}/transition", h.transition)
}

type disputeResponse struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	ServiceRequestID string    `json:"service_request_id"`
	Reason           string    `json:"reason,omitempty"`
	Ruling           string    `json:"ruling,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toDisputeResponse(d *domain.Dispute) disputeResponse {
	return disputeResponse{
		ID:               d.ID,
		TenantID:         d.TenantID,
		ServiceRequestID: d.ServiceRequestID,
		Reason:           d.Reason,
		Ruling:           d.Ruling,
		Status:           string(d.Status),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type openRequest struct {
	ServiceRequestID string `json:"service_request_id"`
	Reason           string `json:"reason"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req openRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	d, err := h.disputes.Open(r.Context(), actor, req.ServiceRequestID, req.Reason)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toDisputeResponse(d))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	d, err := h.disputes.Get(r.Context(), actor, chi.URLParam(r, "disputeID"))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toDisputeResponse(d))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	status := workflow.State(r.URL.Query().Get("status"))
	limit, offset := httpapi.Pagination(r)
	out, err := h.disputes.List(r.Context(), actor, status, limit, offset)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res := make([]disputeResponse, 0, len(out))
	for _, d := range out {
		res = append(res, toDisputeResponse(d))
	}
	httpapi.JSON(w, http.StatusOK, res)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req transitionRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	d, err := h.disputes.Transition(r.Context(), actor, chi.URLParam(r, "disputeID"), workflow.State(req.Status))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toDisputeResponse(d))
}
