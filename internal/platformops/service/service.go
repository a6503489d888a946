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
	auditrepo "equiplink/internal/audit/repository"
	"equiplink/internal/db"
	disputedomain "equiplink/internal/dispute/domain"
	identitydomain "equiplink/internal/identity/domain"
	"equiplink/internal/notification"
	"equiplink/internal/platformops/domain"
	"equiplink/internal/platformops/policy"
	requestdomain "equiplink/internal/servicerequest/domain"
	tenantdomain "equiplink/internal/tenant/domain"
	"equiplink/internal/workflow"
)

// Gate decides whether a platform actor may perform an action.
type Gate interface {
	Allow(ctx context.Context, actor identitydomain.Actor, action string) error
}

// OverviewRepo is the cross-tenant read model.
type OverviewRepo interface {
	ListRequests(ctx context.Context, status workflow.State, limit, offset int32) ([]*domain.RequestOverview, error)
}

// TenantRepo is the tenant surface needed for lifecycle operations.
type TenantRepo interface {
	GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error)
	List(ctx context.Context, limit, offset int32) ([]*tenantdomain.Tenant, error)
	UpdateLifecycleTx(ctx context.Context, q db.DBTX, id string, status tenantdomain.LifecycleStatus) (*tenantdomain.Tenant, error)
}

// DisputeRepo is the dispute surface needed for arbitration.
type DisputeRepo interface {
	GetByID(ctx context.Context, id string) (*disputedomain.Dispute, error)
	SetRulingTx(ctx context.Context, q db.DBTX, id, ruling string, from, to workflow.State) error
}

// RequestRepo is the service request surface needed for reassignment.
type RequestRepo interface {
	GetByID(ctx context.Context, id string) (*requestdomain.ServiceRequest, error)
	UpdateProviderTx(ctx context.Context, q db.DBTX, id, providerTenantID string) error
}

// HistoryRepo persists transition history records.
type HistoryRepo interface {
	AppendTx(ctx context.Context, q db.DBTX, rec *workflow.HistoryRecord) error
}

// AuditReader reads the append-only audit log.
type AuditReader interface {
	List(ctx context.Context, f auditrepo.Filter, limit, offset int32) ([]*auditdomain.Entry, error)
}

// Service implements the platform console: cross-tenant listings, tenant
// lifecycle, dispute arbitration, and provider reassignment. Every operation
// passes the policy gate first; org roles never reach this service.
type Service struct {
	gate      Gate
	db        db.TxRunner
	overview  OverviewRepo
	tenants   TenantRepo
	disputes  DisputeRepo
	requests  RequestRepo
	history   HistoryRepo
	auditLog  AuditReader
	recorder  *audit.Recorder
	events    notification.Producer
	staleness time.Duration
}

// NewService returns a platform operations Service. staleness is how long a
// request may sit untouched in a non-terminal status before listings flag it.
// events may be nil.
func NewService(gate Gate, runner db.TxRunner, overview OverviewRepo, tenants TenantRepo, disputes DisputeRepo, requests RequestRepo, history HistoryRepo, auditLog AuditReader, recorder *audit.Recorder, events notification.Producer, staleness time.Duration) *Service {
	if staleness <= 0 {
		staleness = 168 * time.Hour
	}
	return &Service{
		gate:      gate,
		db:        runner,
		overview:  overview,
		tenants:   tenants,
		disputes:  disputes,
		requests:  requests,
		history:   history,
		auditLog:  auditLog,
		recorder:  recorder,
		events:    events,
		staleness: staleness,
	}
}

// ListServiceRequests returns requests across every tenant, flagging the
// stale ones.
func (s *Service) ListServiceRequests(ctx context.Context, actor identitydomain.Actor, status workflow.State, limit, offset int32) ([]*domain.RequestOverview, error) {
	const op = "platformops.Service.ListServiceRequests"
	if err := s.gate.Allow(ctx, actor, policy.ActionListRequests); err != nil {
		return nil, err
	}
	out, err := s.overview.ListRequests(ctx, status, limit, offset)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	cutoff := time.Now().UTC().Add(-s.staleness)
	for _, o := range out {
		o.Stale = !workflow.Terminal(workflow.KindServiceRequest, o.Status) && o.UpdatedAt.Before(cutoff)
	}
	return out, nil
}

// ListTenants returns all tenants.
func (s *Service) ListTenants(ctx context.Context, actor identitydomain.Actor, limit, offset int32) ([]*tenantdomain.Tenant, error) {
	const op = "platformops.Service.ListTenants"
	if err := s.gate.Allow(ctx, actor, policy.ActionListTenants); err != nil {
		return nil, err
	}
	out, err := s.tenants.List(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// ListAuditLog reads the audit log across tenants.
func (s *Service) ListAuditLog(ctx context.Context, actor identitydomain.Actor, f auditrepo.Filter, limit, offset int32) ([]*auditdomain.Entry, error) {
	const op = "platformops.Service.ListAuditLog"
	if err := s.gate.Allow(ctx, actor, policy.ActionReadAuditLog); err != nil {
		return nil, err
	}
	out, err := s.auditLog.List(ctx, f, limit, offset)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// SuspendTenant suspends a tenant. The lifecycle patch and its audit entry
// commit together. Members keep their memberships; the login path refuses the
// suspended tenant.
func (s *Service) SuspendTenant(ctx context.Context, actor identitydomain.Actor, tenantID string) (*tenantdomain.Tenant, error) {
	const op = "platformops.Service.SuspendTenant"
	return s.setLifecycle(ctx, op, actor, policy.ActionSuspendTenant, tenantID,
		tenantdomain.LifecycleSuspended, auditdomain.ActionTenantSuspended)
}

// ReactivateTenant returns a suspended tenant to active.
func (s *Service) ReactivateTenant(ctx context.Context, actor identitydomain.Actor, tenantID string) (*tenantdomain.Tenant, error) {
	const op = "platformops.Service.ReactivateTenant"
	return s.setLifecycle(ctx, op, actor, policy.ActionReactivateTenant, tenantID,
		tenantdomain.LifecycleActive, auditdomain.ActionTenantReactivated)
}

func (s *Service) setLifecycle(ctx context.Context, op string, actor identitydomain.Actor, action, tenantID string, to tenantdomain.LifecycleStatus, auditAction string) (*tenantdomain.Tenant, error) {
	if err := s.gate.Allow(ctx, actor, action); err != nil {
		return nil, err
	}
	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if t == nil {
		return nil, apperr.NotFound(op, "tenant not found")
	}
	if t.LifecycleStatus == to {
		return nil, apperr.Conflict(op, "tenant already "+string(to))
	}
	if to == tenantdomain.LifecycleActive && t.LifecycleStatus != tenantdomain.LifecycleSuspended {
		return nil, apperr.Conflict(op, "only suspended tenants can be reactivated")
	}
	prev := t.LifecycleStatus
	var updated *tenantdomain.Tenant
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		updated, err = s.tenants.UpdateLifecycleTx(ctx, tx, tenantID, to)
		if err != nil {
			return err
		}
		_, err = s.recorder.Append(ctx, tx, tenantID, actor.UserID,
			auditAction, "tenant", tenantID,
			lifecycleValues{Lifecycle: string(prev)}, lifecycleValues{Lifecycle: string(to)})
		return err
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeTenantLifecycle,
		TenantID:     tenantID,
		ActorID:      actor.UserID,
		ResourceType: "tenant",
		ResourceID:   tenantID,
		Detail:       map[string]string{"from": string(prev), "to": string(to)},
		OccurredAt:   time.Now().UTC(),
	})
	return updated, nil
}

// ResolveDispute records the arbiter's ruling and moves the dispute from
// investigating to resolved or closed. Ruling text, status, history, and
// audit commit together.
func (s *Service) ResolveDispute(ctx context.Context, actor identitydomain.Actor, disputeID, ruling string, outcome workflow.State) (*disputedomain.Dispute, error) {
	const op = "platformops.Service.ResolveDispute"
	if err := s.gate.Allow(ctx, actor, policy.ActionResolveDispute); err != nil {
		return nil, err
	}
	if outcome != workflow.DisputeResolved && outcome != workflow.DisputeClosed {
		return nil, apperr.Invalid(op, "outcome must be resolved or closed")
	}
	ruling = strings.TrimSpace(ruling)
	if ruling == "" {
		return nil, apperr.Invalid(op, "ruling is required")
	}
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if d == nil {
		return nil, apperr.NotFound(op, "dispute not found")
	}
	rec, err := workflow.Apply(op, d, outcome, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.disputes.SetRulingTx(ctx, tx, d.ID, ruling, rec.PreviousStatus, outcome); err != nil {
			return err
		}
		if err := s.history.AppendTx(ctx, tx, &rec); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, d.TenantID, actor.UserID,
			auditdomain.ActionDisputeRuled, "dispute", d.ID,
			rulingValues{Status: string(rec.PreviousStatus), Ruling: d.Ruling},
			rulingValues{Status: string(outcome), Ruling: ruling})
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrStaleRow) {
			return nil, apperr.Conflict(op, "dispute was ruled on concurrently")
		}
		return nil, apperr.Internal(op, err)
	}
	d.Ruling = ruling
	d.Status = outcome
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeDisputeRuled,
		TenantID:     d.TenantID,
		ActorID:      actor.UserID,
		ResourceType: "dispute",
		ResourceID:   d.ID,
		Detail:       map[string]string{"outcome": string(outcome)},
		OccurredAt:   rec.CreatedAt,
	})
	return d, nil
}

// ReassignProvider moves a request to another provider tenant, typically
// after a dispute ruling. The new provider must be an active provider tenant.
func (s *Service) ReassignProvider(ctx context.Context, actor identitydomain.Actor, requestID, providerTenantID string) (*requestdomain.ServiceRequest, error) {
	const op = "platformops.Service.ReassignProvider"
	if err := s.gate.Allow(ctx, actor, policy.ActionReassignProvider); err != nil {
		return nil, err
	}
	sr, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if sr == nil {
		return nil, apperr.NotFound(op, "service request not found")
	}
	provider, err := s.tenants.GetByID(ctx, providerTenantID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if provider == nil {
		return nil, apperr.NotFound(op, "provider tenant not found")
	}
	if provider.Kind != tenantdomain.KindProvider {
		return nil, apperr.Invalid(op, "target tenant is not a provider")
	}
	if provider.LifecycleStatus == tenantdomain.LifecycleSuspended {
		return nil, apperr.Invalid(op, "target provider is suspended")
	}
	prev := sr.ProviderTenantID
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.requests.UpdateProviderTx(ctx, tx, sr.ID, providerTenantID); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, sr.TenantID, actor.UserID,
			auditdomain.ActionProviderReassigned, "service_request", sr.ID,
			providerValues{ProviderTenantID: prev}, providerValues{ProviderTenantID: providerTenantID})
		return err
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	sr.ProviderTenantID = providerTenantID
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeProviderReassigned,
		TenantID:     sr.TenantID,
		ActorID:      actor.UserID,
		ResourceType: "service_request",
		ResourceID:   sr.ID,
		Detail:       map[string]string{"from": prev, "to": providerTenantID},
		OccurredAt:   time.Now().UTC(),
	})
	return sr, nil
}

type lifecycleValues struct {
	Lifecycle string `json:"lifecycle_status"`
}

type rulingValues struct {
	Status string `json:"status"`
	Ruling string `json:"ruling"`
}

type providerValues struct {
	ProviderTenantID string `json:"provider_tenant_id"`
}
