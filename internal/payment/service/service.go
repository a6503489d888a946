package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"equiplink/internal/apperr"
	"equiplink/internal/audit"
	auditdomain "equiplink/internal/audit/domain"
	"equiplink/internal/db"
	identitydomain "equiplink/internal/identity/domain"
	"equiplink/internal/notification"
	"equiplink/internal/payment/domain"
	"equiplink/internal/platform/rbac"
	requestdomain "equiplink/internal/servicerequest/domain"
	"equiplink/internal/workflow"
)

// PaymentRepo is the payment repository surface needed by the service.
type PaymentRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Payment, error)
	ListByServiceRequest(ctx context.Context, serviceRequestID string) ([]*domain.Payment, error)
	Create(ctx context.Context, p *domain.Payment) error
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
}

// RequestRepo resolves the service request a payment settles.
type RequestRepo interface {
	GetByID(ctx context.Context, id string) (*requestdomain.ServiceRequest, error)
}

// HistoryRepo persists transition history records.
type HistoryRepo interface {
	AppendTx(ctx context.Context, q db.DBTX, rec *workflow.HistoryRecord) error
}

// Service implements the payment lifecycle. Only pending payments move; the
// three settlement outcomes are terminal.
type Service struct {
	db       db.TxRunner
	payments PaymentRepo
	requests RequestRepo
	history  HistoryRepo
	recorder *audit.Recorder
	events   notification.Producer
}

// NewService returns a payment Service with the given dependencies. events may
// be nil.
func NewService(runner db.TxRunner, payments PaymentRepo, requests RequestRepo, history HistoryRepo, recorder *audit.Recorder, events notification.Producer) *Service {
	return &Service{
		db:       runner,
		payments: payments,
		requests: requests,
		history:  history,
		recorder: recorder,
		events:   events,
	}
}

// Create files a pending payment against a service request the actor's tenant
// filed. Providers and unrelated tenants cannot raise payments.
func (s *Service) Create(ctx context.Context, actor identitydomain.Actor, serviceRequestID string, amountCents int64, currency string) (*domain.Payment, error) {
	const op = "payment.Service.Create"
	if !actor.HasTenant() {
		return nil, apperr.NoActiveTenant(op)
	}
	sr, err := s.requests.GetByID(ctx, serviceRequestID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if sr == nil || !rbac.CanReadTenantResource(actor, sr.TenantID) {
		return nil, apperr.NotFound(op, "service request not found")
	}
	now := time.Now().UTC()
	p := &domain.Payment{
		ID:               uuid.New().String(),
		TenantID:         sr.TenantID,
		ServiceRequestID: sr.ID,
		AmountCents:      amountCents,
		Currency:         strings.ToUpper(strings.TrimSpace(currency)),
		Status:           workflow.PaymentPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := p.Validate(); err != nil {
		return nil, apperr.Invalid(op, err.Error())
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return p, nil
}

// Get returns the payment if the actor may see it.
func (s *Service) Get(ctx context.Context, actor identitydomain.Actor, id string) (*domain.Payment, error) {
	const op = "payment.Service.Get"
	return s.visible(ctx, op, actor, id)
}

// List returns the actor's tenant's payments.
func (s *Service) List(ctx context.Context, actor identitydomain.Actor, status workflow.State, limit, offset int32) ([]*domain.Payment, error) {
	const op = "payment.Service.List"
	if !actor.HasTenant() {
		return nil, apperr.NoActiveTenant(op)
	}
	out, err := s.payments.ListByTenant(ctx, actor.TenantID, status, limit, offset)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// ListByServiceRequest returns the payments filed against a request the actor
// may see.
func (s *Service) ListByServiceRequest(ctx context.Context, actor identitydomain.Actor, serviceRequestID string) ([]*domain.Payment, error) {
	const op = "payment.Service.ListByServiceRequest"
	sr, err := s.requests.GetByID(ctx, serviceRequestID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if sr == nil || !rbac.CanReadTenantResource(actor, sr.TenantID) {
		return nil, apperr.NotFound(op, "service request not found")
	}
	out, err := s.payments.ListByServiceRequest(ctx, serviceRequestID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// Transition settles the payment. The status patch, its history record, and
// its audit entry commit or roll back together.
func (s *Service) Transition(ctx context.Context, actor identitydomain.Actor, id string, to workflow.State) (*domain.Payment, error) {
	const op = "payment.Service.Transition"
	p, err := s.visible(ctx, op, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutateTenantResource(actor, p.TenantID) {
		return nil, apperr.Forbidden(op, "cannot modify this payment")
	}
	rec, err := workflow.Apply(op, p, to, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.payments.UpdateStatusTx(ctx, tx, p.ID, rec.PreviousStatus, to); err != nil {
			return err
		}
		if err := s.history.AppendTx(ctx, tx, &rec); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, p.TenantID, actor.UserID,
			auditdomain.TransitionAction(string(workflow.KindPayment)), "payment", p.ID,
			statusValues{Status: string(rec.PreviousStatus)}, statusValues{Status: string(to)})
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrStaleRow) {
			return nil, apperr.Conflict(op, "payment was changed concurrently")
		}
		return nil, apperr.Internal(op, err)
	}
	p.Status = to
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeStatusChanged,
		TenantID:     p.TenantID,
		ActorID:      actor.UserID,
		ResourceType: "payment",
		ResourceID:   p.ID,
		Detail:       map[string]string{"from": string(rec.PreviousStatus), "to": string(to)},
		OccurredAt:   rec.CreatedAt,
	})
	return p, nil
}

func (s *Service) visible(ctx context.Context, op string, actor identitydomain.Actor, id string) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if p == nil || !rbac.CanReadTenantResource(actor, p.TenantID) {
		return nil, apperr.NotFound(op, "payment not found")
	}
	return p, nil
}

type statusValues struct {
	Status string `json:"status"`
}
