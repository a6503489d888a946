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
	"equiplink/internal/dispute/domain"
	identitydomain "equiplink/internal/identity/domain"
	"equiplink/internal/notification"
	"equiplink/internal/platform/rbac"
	requestdomain "equiplink/internal/servicerequest/domain"
	"equiplink/internal/workflow"
)

// DisputeRepo is the dispute repository surface needed by the service.
type DisputeRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Dispute, error)
	ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Dispute, error)
	CreateTx(ctx context.Context, q db.DBTX, d *domain.Dispute) error
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
}

// RequestRepo is the service request surface needed when opening a dispute.
type RequestRepo interface {
	GetByID(ctx context.Context, id string) (*requestdomain.ServiceRequest, error)
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
}

// HistoryRepo persists transition history records.
type HistoryRepo interface {
	AppendTx(ctx context.Context, q db.DBTX, rec *workflow.HistoryRecord) error
}

// Service implements the dispute lifecycle up to escalation. Resolution and
// closure carry an arbiter's ruling and are platform operations; they live in
// platformops.
type Service struct {
	db       db.TxRunner
	disputes DisputeRepo
	requests RequestRepo
	history  HistoryRepo
	recorder *audit.Recorder
	events   notification.Producer
}

// NewService returns a dispute Service with the given dependencies. events
// may be nil.
func NewService(runner db.TxRunner, disputes DisputeRepo, requests RequestRepo, history HistoryRepo, recorder *audit.Recorder, events notification.Producer) *Service {
	return &Service{
		db:       runner,
		disputes: disputes,
		requests: requests,
		history:  history,
		recorder: recorder,
		events:   events,
	}
}

// Open raises a dispute against a service request of the actor's tenant. The
// request's transition to disputed, the dispute row, both history records,
// and the audit entries commit atomically: a request is never marked disputed
// without its dispute, and vice versa.
func (s *Service) Open(ctx context.Context, actor identitydomain.Actor, serviceRequestID, reason string) (*domain.Dispute, error) {
	const op = "dispute.Service.Open"
	if !actor.HasTenant() && !actor.IsPlatform() {
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
	reqRec, err := workflow.Apply(op, sr, workflow.RequestDisputed, actor.UserID, now)
	if err != nil {
		return nil, err
	}
	d := &domain.Dispute{
		ID:               uuid.New().String(),
		TenantID:         sr.TenantID,
		ServiceRequestID: sr.ID,
		Reason:           strings.TrimSpace(reason),
		Status:           workflow.DisputeOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := d.Validate(); err != nil {
		return nil, apperr.Invalid(op, err.Error())
	}
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.requests.UpdateStatusTx(ctx, tx, sr.ID, reqRec.PreviousStatus, workflow.RequestDisputed); err != nil {
			return err
		}
		if err := s.history.AppendTx(ctx, tx, &reqRec); err != nil {
			return err
		}
		if err := s.disputes.CreateTx(ctx, tx, d); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, d.TenantID, actor.UserID,
			auditdomain.TransitionAction(string(workflow.KindServiceRequest)), "service_request", sr.ID,
			statusValues{Status: string(reqRec.PreviousStatus)}, statusValues{Status: string(workflow.RequestDisputed)})
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrStaleRow) {
			return nil, apperr.Conflict(op, "service request was changed concurrently")
		}
		return nil, apperr.Internal(op, err)
	}
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeStatusChanged,
		TenantID:     d.TenantID,
		ActorID:      actor.UserID,
		ResourceType: "dispute",
		ResourceID:   d.ID,
		Detail:       map[string]string{"to": string(workflow.DisputeOpen)},
		OccurredAt:   now,
	})
	return d, nil
}

// Get returns the dispute if the actor may see it.
func (s *Service) Get(ctx context.Context, actor identitydomain.Actor, id string) (*domain.Dispute, error) {
	const op = "dispute.Service.Get"
	return s.visible(ctx, op, actor, id)
}

// List returns the actor's tenant's disputes.
func (s *Service) List(ctx context.Context, actor identitydomain.Actor, status workflow.State, limit, offset int32) ([]*domain.Dispute, error) {
	const op = "dispute.Service.List"
	if !actor.HasTenant() {
		return nil, apperr.NoActiveTenant(op)
	}
	out, err := s.disputes.ListByTenant(ctx, actor.TenantID, status, limit, offset)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// Transition moves the dispute toward investigation or escalation. Terminal
// rulings (resolved, closed) are not reachable here; those require an arbiter
// and go through platformops.
func (s *Service) Transition(ctx context.Context, actor identitydomain.Actor, id string, to workflow.State) (*domain.Dispute, error) {
	const op = "dispute.Service.Transition"
	if to == workflow.DisputeResolved || to == workflow.DisputeClosed {
		return nil, apperr.Forbidden(op, "rulings require a platform arbiter")
	}
	d, err := s.visible(ctx, op, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutateTenantResource(actor, d.TenantID) {
		return nil, apperr.Forbidden(op, "cannot modify this dispute")
	}
	rec, err := workflow.Apply(op, d, to, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.disputes.UpdateStatusTx(ctx, tx, d.ID, rec.PreviousStatus, to); err != nil {
			return err
		}
		if err := s.history.AppendTx(ctx, tx, &rec); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, d.TenantID, actor.UserID,
			auditdomain.TransitionAction(string(workflow.KindDispute)), "dispute", d.ID,
			statusValues{Status: string(rec.PreviousStatus)}, statusValues{Status: string(to)})
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrStaleRow) {
			return nil, apperr.Conflict(op, "dispute was changed concurrently")
		}
		return nil, apperr.Internal(op, err)
	}
	d.Status = to
	return d, nil
}

func (s *Service) visible(ctx context.Context, op string, actor identitydomain.Actor, id string) (*domain.Dispute, error) {
	d, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if d == nil || !rbac.CanReadTenantResource(actor, d.TenantID) {
		return nil, apperr.NotFound(op, "dispute not found")
	}
	return d, nil
}

type statusValues struct {
	Status string `json:"status"`
}
