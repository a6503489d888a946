package service

import (
	"context"
	"sync"
	"testing"

	"equiplink/internal/apperr"
	"equiplink/internal/audit"
	auditdomain "equiplink/internal/audit/domain"
	auditrepo "equiplink/internal/audit/repository"
	"equiplink/internal/db"
	identitydomain "equiplink/internal/identity/domain"
	membershipdomain "equiplink/internal/membership/domain"
	"equiplink/internal/tenant/domain"
)

type memRunner struct{}

func (memRunner) InTx(ctx context.Context, fn func(q db.DBTX) error) error {
	return fn(nil)
}

type memTenantRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Tenant
}

func (r *memTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memTenantRepo) CreateTx(ctx context.Context, q db.DBTX, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[t.ID] = t
	return nil
}

type memMembershipRepo struct {
	mu sync.Mutex
	m  []*membershipdomain.Membership
}

func (r *memMembershipRepo) CreateTx(ctx context.Context, q db.DBTX, m *membershipdomain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = append(r.m, m)
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*auditdomain.Entry
}

func (r *memAuditRepo) AppendTx(ctx context.Context, q db.DBTX, e *auditdomain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, f auditrepo.Filter, limit, offset int32) ([]*auditdomain.Entry, error) {
	return nil, nil
}

func newTestService() (*Service, *memTenantRepo, *memMembershipRepo, *memAuditRepo) {
	tenants := &memTenantRepo{m: map[string]*domain.Tenant{}}
	memberships := &memMembershipRepo{}
	auditRepo := &memAuditRepo{}
	svc := NewService(memRunner{}, tenants, memberships, audit.NewRecorder(auditRepo))
	return svc, tenants, memberships, auditRepo
}

func TestService_Create_CreatorBecomesOwner(t *testing.T) {
	svc, _, memberships, auditRepo := newTestService()
	actor := identitydomain.Actor{UserID: "user-1"}

	created, err := svc.Create(context.Background(), actor, "St. Mary Hospital", domain.KindHospital)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.LifecycleStatus != domain.LifecycleTrial {
		t.Errorf("lifecycle = %s, want trial", created.LifecycleStatus)
	}
	if len(memberships.m) != 1 {
		t.Fatalf("memberships = %d, want 1", len(memberships.m))
	}
	m := memberships.m[0]
	if m.UserID != "user-1" || m.TenantID != created.ID || m.Role != membershipdomain.RoleOwner {
		t.Errorf("membership = %s/%s/%s", m.UserID, m.TenantID, m.Role)
	}
	if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != auditdomain.ActionTenantCreated {
		t.Errorf("audit entries = %+v", auditRepo.entries)
	}
}

func TestService_Create_Invalid(t *testing.T) {
	svc, _, _, _ := newTestService()
	actor := identitydomain.Actor{UserID: "user-1"}

	_, err := svc.Create(context.Background(), actor, "", domain.KindHospital)
	if code := apperr.ErrCode(err); code != apperr.EInvalid {
		t.Errorf("empty name code = %q, want %q", code, apperr.EInvalid)
	}
	_, err = svc.Create(context.Background(), actor, "Acme", domain.Kind("bank"))
	if code := apperr.ErrCode(err); code != apperr.EInvalid {
		t.Errorf("bad kind code = %q, want %q", code, apperr.EInvalid)
	}
}

func TestService_Get_TenantIsolation(t *testing.T) {
	svc, tenants, _, _ := newTestService()
	tenants.m["tenant-2"] = &domain.Tenant{ID: "tenant-2", Name: "Other", Kind: domain.KindProvider, LifecycleStatus: domain.LifecycleActive}

	member := identitydomain.Actor{UserID: "user-1", TenantID: "tenant-1", OrgRole: membershipdomain.RoleOwner}
	_, err := svc.Get(context.Background(), member, "tenant-2")
	if code := apperr.ErrCode(err); code != apperr.ENotFound {
		t.Errorf("cross-tenant code = %q, want %q", code, apperr.ENotFound)
	}

	admin := identitydomain.Actor{UserID: "pa-1", PlatformRole: identitydomain.PlatformRoleAdmin}
	got, err := svc.Get(context.Background(), admin, "tenant-2")
	if err != nil {
		t.Fatalf("Get as platform_admin: %v", err)
	}
	if got.ID != "tenant-2" {
		t.Errorf("id = %s", got.ID)
	}
}
