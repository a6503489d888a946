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
	"equiplink/internal/platform/rbac"
	"equiplink/internal/servicerequest/domain"
	"equiplink/internal/workflow"
)

// RequestRepo is the service request repository surface needed by the service.
type RequestRepo interface {
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error)
	ListByProvider(ctx context.Context, providerTenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error)
	Create(ctx context.Context, r *domain.ServiceRequest) error
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
}

// HistoryRepo persists transition history records.
type HistoryRepo interface {
	AppendTx(ctx context.Context, q db.DBTX, rec *workflow.HistoryRecord) error
}

// Service implements the service request lifecycle. A request is visible to
// its owning hospital tenant, its assigned provider tenant, and platform
// roles; everyone else gets not_found. Both sides drive the workflow: the
// provider quotes and performs, the hospital accepts, cancels, or disputes.
type Service struct {
	db       db.TxRunner
	requests RequestRepo
	history  HistoryRepo
	recorder *audit.Recorder
	events   notification.Producer
}

// NewService returns a service request Service with the given dependencies.
// events may be nil.
func NewService(runner db.TxRunner, requests RequestRepo, history HistoryRepo, recorder *audit.Recorder, events notification.Producer) *Service {
	return &Service{
		db:       runner,
		requests: requests,
		history:  history,
		recorder: recorder,
		events:   events,
	}
}

// CreateInput carries the fields of a new request.
type CreateInput struct {
	EquipmentID      string
	ProviderTenantID string
	Title            string
	Description      string
	Urgency          domain.Urgency
}

// Create files a request in the actor's tenant, starting pending.
func (s *Service) Create(ctx context.Context, actor identitydomain.Actor, in CreateInput) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Create"
	if !actor.HasTenant() {
		return nil, apperr.NoActiveTenant(op)
	}
	if in.Urgency == "" {
		in.Urgency = domain.UrgencyRoutine
	}
	now := time.Now().UTC()
	sr := &domain.ServiceRequest{
		ID:               uuid.New().String(),
		TenantID:         actor.TenantID,
		EquipmentID:      in.EquipmentID,
		ProviderTenantID: in.ProviderTenantID,
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		Urgency:          in.Urgency,
		Status:           workflow.RequestPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := sr.Validate(); err != nil {
		return nil, apperr.Invalid(op, err.Error())
	}
	if err := s.requests.Create(ctx, sr); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return sr, nil
}

// Get returns the request if the actor may see it.
func (s *Service) Get(ctx context.Context, actor identitydomain.Actor, id string) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Get"
	return s.visible(ctx, op, actor, id)
}

// List returns the actor's tenant's requests: requests it filed, plus, for
// provider tenants, requests assigned to it.
func (s *Service) List(ctx context.Context, actor identitydomain.Actor, status workflow.State, assigned bool, limit, offset int32) ([]*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.List"
	if !actor.HasTenant() {
		return nil, apperr.NoActiveTenant(op)
	}
	var (
		out []*domain.ServiceRequest
		err error
	)
	if assigned {
		out, err = s.requests.ListByProvider(ctx, actor.TenantID, status, limit, offset)
	} else {
		out, err = s.requests.ListByTenant(ctx, actor.TenantID, status, limit, offset)
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// Transition moves the request to a new status. Unlike equipment and
// disputes, the mutation gate spans two tenants: the owning hospital and the
// assigned provider both drive the workflow, so membership in either is
// enough. The status patch, its history record, and its audit entry commit
// or roll back together; a concurrent transition that won the race surfaces
// as a conflict.
func (s *Service) Transition(ctx context.Context, actor identitydomain.Actor, id string, to workflow.State) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Transition"
	sr, err := s.visible(ctx, op, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutateSharedResource(actor, sr.TenantID, sr.ProviderTenantID) {
		return nil, apperr.Forbidden(op, "cannot modify this service request")
	}
	rec, err := workflow.Apply(op, sr, to, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.requests.UpdateStatusTx(ctx, tx, sr.ID, rec.PreviousStatus, to); err != nil {
			return err
		}
		if err := s.history.AppendTx(ctx, tx, &rec); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, sr.TenantID, actor.UserID,
			auditdomain.TransitionAction(string(workflow.KindServiceRequest)), "service_request", sr.ID,
			statusValues{Status: string(rec.PreviousStatus)}, statusValues{Status: string(to)})
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrStaleRow) {
			return nil, apperr.Conflict(op, "service request was changed concurrently")
		}
		return nil, apperr.Internal(op, err)
	}
	sr.Status = to
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeStatusChanged,
		TenantID:     sr.TenantID,
		ActorID:      actor.UserID,
		ResourceType: "service_request",
		ResourceID:   sr.ID,
		Detail:       map[string]string{"from": string(rec.PreviousStatus), "to": string(to)},
		OccurredAt:   rec.CreatedAt,
	})
	return sr, nil
}

// visible returns the request when the actor's tenant owns it or is its
// assigned provider, or the actor is a platform role. Everything else misses
// as not_found.
func (s *Service) visible(ctx context.Context, op string, actor identitydomain.Actor, id string) (*domain.ServiceRequest, error) {
	sr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if sr == nil {
		return nil, apperr.NotFound(op, "service request not found")
	}
	if actor.IsPlatform() {
		return sr, nil
	}
	if actor.HasTenant() && (actor.TenantID == sr.TenantID || actor.TenantID == sr.ProviderTenantID) {
		return sr, nil
	}
	return nil, apperr.NotFound(op, "service request not found")
}

type statusValues struct {
	Status string `json:"status"`
}
