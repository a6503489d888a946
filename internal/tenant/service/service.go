package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"equiplink/internal/apperr"
	"equiplink/internal/audit"
	auditdomain "equiplink/internal/audit/domain"
	"equiplink/internal/db"
	identitydomain "equiplink/internal/identity/domain"
	membershipdomain "equiplink/internal/membership/domain"
	"equiplink/internal/platform/rbac"
	"equiplink/internal/tenant/domain"
)

// TenantRepo is the tenant repository surface needed by the service.
type TenantRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	CreateTx(ctx context.Context, q db.DBTX, t *domain.Tenant) error
}

// MembershipRepo is the minimal membership repository needed by the service.
type MembershipRepo interface {
	CreateTx(ctx context.Context, q db.DBTX, m *membershipdomain.Membership) error
}

// Service implements tenant signup and reads. Lifecycle mutations (suspend,
// reactivate) are platform operations and live in platformops.
type Service struct {
	db          db.TxRunner
	tenants     TenantRepo
	memberships MembershipRepo
	recorder    *audit.Recorder
}

// NewService returns a tenant Service with the given dependencies.
func NewService(runner db.TxRunner, tenants TenantRepo, memberships MembershipRepo, recorder *audit.Recorder) *Service {
	return &Service{
		db:          runner,
		tenants:     tenants,
		memberships: memberships,
		recorder:    recorder,
	}
}

// Create provisions a tenant at signup. The creator becomes its first owner
// in the same transaction, so no tenant ever exists without an owner, and the
// creation is audited atomically with both writes. New tenants start in
// trial.
func (s *Service) Create(ctx context.Context, actor identitydomain.Actor, name string, kind domain.Kind) (*domain.Tenant, error) {
	const op = "tenant.Service.Create"
	name = strings.TrimSpace(name)
	if actor.UserID == "" {
		return nil, apperr.Unauthenticated(op, nil)
	}
	now := time.Now().UTC()
	t := &domain.Tenant{
		ID:              uuid.New().String(),
		Name:            name,
		Kind:            kind,
		LifecycleStatus: domain.LifecycleTrial,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := t.Validate(); err != nil {
		return nil, apperr.Invalid(op, err.Error())
	}
	m := &membershipdomain.Membership{
		ID:        uuid.New().String(),
		UserID:    actor.UserID,
		TenantID:  t.ID,
		Role:      membershipdomain.RoleOwner,
		CreatedAt: now,
	}
	err := s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.tenants.CreateTx(ctx, tx, t); err != nil {
			return err
		}
		if err := s.memberships.CreateTx(ctx, tx, m); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, t.ID, actor.UserID,
			auditdomain.ActionTenantCreated, "tenant", t.ID,
			nil, map[string]string{"name": t.Name, "kind": string(t.Kind)})
		return err
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return t, nil
}

// Get returns the tenant. Non-platform actors may only see their own tenant;
// a cross-tenant read misses as not_found.
func (s *Service) Get(ctx context.Context, actor identitydomain.Actor, id string) (*domain.Tenant, error) {
	const op = "tenant.Service.Get"
	if !rbac.CanReadTenantResource(actor, id) {
		return nil, apperr.NotFound(op, "tenant not found")
	}
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if t == nil {
		return nil, apperr.NotFound(op, "tenant not found")
	}
	return t, nil
}
