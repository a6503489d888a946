// Package handler exposes payment endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"equiplink/internal/payment/domain"
	"equiplink/internal/payment/service"
	"equiplink/internal/server/httpapi"
	"equiplink/internal/workflow"
)

type Handler struct {
	payments *service.Service
	logger   *zap.Logger
}

func NewHandler(payments *service.Service, logger *zap.Logger) *Handler {
	return &Handler{payments: payments, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{paymentID}", h.get)
	r.Post("/{paymentID}/transition", h.transition)
}

type paymentResponse struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	ServiceRequestID string    `json:"service_request_id"`
	AmountCents      int64     `json:"amount_cents"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:               p.ID,
		TenantID:         p.TenantID,
		ServiceRequestID: p.ServiceRequestID,
		AmountCents:      p.AmountCents,
		Currency:         p.Currency,
		Status:           string(p.Status),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

type createRequest struct {
	ServiceRequestID string `json:"service_request_id"`
	AmountCents      int64  `json:"amount_cents"`
	Currency         string `json:"currency,omitempty"`
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
	p, err := h.payments.Create(r.Context(), actor, req.ServiceRequestID, req.AmountCents, req.Currency)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	p, err := h.payments.Get(r.Context(), actor, chi.URLParam(r, "paymentID"))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := httpapi.RequireActor(r.Context())
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	// service_request_id narrows to one request's payments.
	if reqID := r.URL.Query().Get("service_request_id"); reqID != "" {
		out, err := h.payments.ListByServiceRequest(r.Context(), actor, reqID)
		if err != nil {
			httpapi.Error(h.logger, w, err)
			return
		}
		httpapi.JSON(w, http.StatusOK, toPaymentResponses(out))
		return
	}
	status := workflow.State(r.URL.Query().Get("status"))
	limit, offset := httpapi.Pagination(r)
	out, err := h.payments.List(r.Context(), actor, status, limit, offset)
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toPaymentResponses(out))
}

func toPaymentResponses(out []*domain.Payment) []paymentResponse {
	res := make([]paymentResponse, 0, len(out))
	for _, p := range out {
		res = append(res, toPaymentResponse(p))
	}
	return res
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
	p, err := h.payments.Transition(r.Context(), actor, chi.URLParam(r, "paymentID"), workflow.State(req.Status))
	if err != nil {
		httpapi.Error(h.logger, w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toPaymentResponse(p))
}
