// Package handler exposes service request endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"equiplink/internal/server/httpapi"
	"equiplink/internal/servicerequest/domain"
	"equiplink/internal/servicerequest/service"
	"equiplink/internal/workflow"
)

type Handler struct {
	requests *service.Service
	logger   *zap.Logger
}

func NewHandler(requests *service.Service, logger *zap.Logger) *Handler {
	return &Handler{requests: requests, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{requestID}", h.get)
	r.Post("/{requestID}/transition", h.transition)
}

type requestResponse struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	EquipmentID      string    `json:"equipment_id,omitempty"`
	ProviderTenantID string    `json:"provider_tenant_id,omitempty"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Urgency          string    `json:"urgency"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toRequestResponse(sr *domain.ServiceRequest) requestResponse {
	return requestResponse{
		ID:               sr.ID,
		TenantID:         sr.TenantID,
		EquipmentID:      sr.EquipmentID,
		ProviderTenantID: sr.ProviderTenantID,
		Title:            sr.Title,
		Description:      sr.Description,
		Urgency:          string(sr.Urgency),
		Status:           string(sr.Status),
		CreatedAt:        sr.CreatedAt,
		UpdatedAt:        sr.UpdatedAt,
	}
}

type createRequest struct {
	EquipmentID      string `json:"equipment_id,omitempty"`
	ProviderTenantID string `json:"provider_tenant_id,omitempty"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Urgency          string `json:"urgency,omitempty"`
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
	sr, err := h.requests.Create(r.Context(), actor, service.CreateInput{
		EquipmentID:      req.EquipmentID,
		ProviderTenantID: req.ProviderTenantID,
		Title:            req.Title,
		Description:      req.Description,
		Urgency:          domain.Urgency(req.Urgency),
	})
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toRequestResponse(sr))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	sr, err := h.requests.Get(r.Context(), actor, chi.URLParam(r, "requestID"))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toRequestResponse(sr))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	status := workflow.State(r.URL.Query().Get("status"))
	// assigned=true lists the requests assigned to a provider tenant rather
	// than the ones it filed.
	assigned := r.URL.Query().Get("assigned") == "true"
	limit, offset := httpapi.Pagination(r)
	out, err := h.requests.List(r.Context(), actor, status, assigned, limit, offset)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res := make([]requestResponse, 0, len(out))
	for _, sr := range out {
		res = append(res, toRequestResponse(sr))
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
	sr, err := h.requests.Transition(r.Context(), actor, chi.URLParam(r, "requestID"), workflow.State(req.Status))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toRequestResponse(sr))
}
