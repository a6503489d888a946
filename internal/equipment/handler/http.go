// Package handler exposes equipment endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"equiplink/internal/equipment/domain"
	"equiplink/internal/equipment/service"
	"equiplink/internal/server/httpapi"
	"equiplink/internal/workflow"
)

type Handler struct {
	equipment *service.Service
	logger    *zap.Logger
}

func NewHandler(equipment *service.Service, logger *zap.Logger) *Handler {
	return &Handler{equipment: equipment, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{equipmentID}", h.get)
	r.Post("/{equipmentID}/transition", h.transition)
	r.Get("/{equipmentID}/reports", h.listReports)
	r.Post("/{equipmentID}/reports", h.reportFailure)
}

type equipmentResponse struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	SerialNumber string    `json:"serial_number,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toEquipmentResponse(e *domain.Equipment) equipmentResponse {
	return equipmentResponse{
		ID:           e.ID,
		TenantID:     e.TenantID,
		Name:         e.Name,
		SerialNumber: e.SerialNumber,
		Status:       string(e.Status),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

type createRequest struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
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
	e, err := h.equipment.Create(r.Context(), actor, req.Name, req.SerialNumber)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toEquipmentResponse(e))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	e, err := h.equipment.Get(r.Context(), actor, chi.URLParam(r, "equipmentID"))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toEquipmentResponse(e))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	status := workflow.State(r.URL.Query().Get("status"))
	limit, offset := httpapi.Pagination(r)
	out, err := h.equipment.List(r.Context(), actor, status, limit, offset)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res := make([]equipmentResponse, 0, len(out))
	for _, e := range out {
		res = append(res, toEquipmentResponse(e))
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
	e, err := h.equipment.Transition(r.Context(), actor, chi.URLParam(r, "equipmentID"), workflow.State(req.Status))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toEquipmentResponse(e))
}

type reportRequest struct {
	Urgency     string `json:"urgency"`
	Description string `json:"description"`
}

type reportResponse struct {
	ID          string    `json:"id"`
	EquipmentID string    `json:"equipment_id"`
	Urgency     string    `json:"urgency"`
	Description string    `json:"description"`
	ReportedBy  string    `json:"reported_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toReportResponse(rep *domain.FailureReport) reportResponse {
	return reportResponse{
		ID:          rep.ID,
		EquipmentID: rep.EquipmentID,
		Urgency:     string(rep.Urgency),
		Description: rep.Description,
		ReportedBy:  rep.ReportedBy,
		CreatedAt:   rep.CreatedAt,
	}
}

func (h *Handler) reportFailure(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	var req reportRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	rep, err := h.equipment.ReportFailure(r.Context(), actor, chi.URLParam(r, "equipmentID"), domain.Urgency(req.Urgency), req.Description)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toReportResponse(rep))
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	out, err := h.equipment.ListReports(r.Context(), actor, chi.URLParam(r, "equipmentID"))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	res := make([]reportResponse, 0, len(out))
	for _, rep := range out {
		res = append(res, toReportResponse(rep))
	}
	httpapi.JSON(w, http.StatusOK, res)
}
