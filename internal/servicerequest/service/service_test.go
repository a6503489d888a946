package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"equiplink/internal/apperr"
	"equiplink/internal/audit"
	auditdomain "equiplink/internal/audit/domain"
	auditrepo "equiplink/internal/audit/repository"
	"equiplink/internal/db"
	identitydomain "equiplink/internal/identity/domain"
	membershipdomain "equiplink/internal/membership/domain"
	"equiplink/internal/servicerequest/domain"
	"equiplink/internal/workflow"
)

type memRunner struct{}

func (memRunner) InTx(ctx context.Context, fn func(q db.DBTX) error) error {
	return fn(nil)
}

type memRequestRepo struct {
	mu       sync.Mutex
	m        map[string]*domain.ServiceRequest
	afterGet func() // runs after GetByID returns its copy, outside the lock
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{m: map[string]*domain.ServiceRequest{}}
}

func (r *memRequestRepo) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	sr, ok := r.m[id]
	var cp domain.ServiceRequest
	if ok {
		cp = *sr
	}
	hook := r.afterGet
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (r *memRequestRepo) ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error) {
	return r.listWhere(func(sr *domain.ServiceRequest) bool {
		return sr.TenantID == tenantID && (status == "" || sr.Status == status)
	}), nil
}

func (r *memRequestRepo) ListByProvider(ctx context.Context, providerTenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error) {
	return r.listWhere(func(sr *domain.ServiceRequest) bool {
		return sr.ProviderTenantID == providerTenantID && (status == "" || sr.Status == status)
	}), nil
}

func (r *memRequestRepo) listWhere(pred func(*domain.ServiceRequest) bool) []*domain.ServiceRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ServiceRequest
	for _, sr := range r.m {
		if pred(sr) {
			cp := *sr
			out = append(out, &cp)
		}
	}
	return out
}

func (r *memRequestRepo) Create(ctx context.Context, sr *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sr
	r.m[sr.ID] = &cp
	return nil
}

func (r *memRequestRepo) UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sr, ok := r.m[id]
	if !ok || sr.Status != from {
		return db.ErrStaleRow
	}
	sr.Status = to
	sr.UpdatedAt = time.Now().UTC()
	return nil
}

type memHistoryRepo struct {
	mu   sync.Mutex
	recs []*workflow.HistoryRecord
}

func (r *memHistoryRepo) AppendTx(ctx context.Context, q db.DBTX, rec *workflow.HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
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

type fixture struct {
	svc       *Service
	requests  *memRequestRepo
	history   *memHistoryRepo
	auditRepo *memAuditRepo
}

func newFixture() *fixture {
	f := &fixture{
		requests:  newMemRequestRepo(),
		history:   &memHistoryRepo{},
		auditRepo: &memAuditRepo{},
	}
	f.svc = NewService(memRunner{}, f.requests, f.history, audit.NewRecorder(f.auditRepo), nil)
	return f
}

func (f *fixture) seed(id, tenantID, providerTenantID string, status workflow.State) {
	f.requests.m[id] = &domain.ServiceRequest{
		ID: id, TenantID: tenantID, ProviderTenantID: providerTenantID,
		Title: "MRI repair", Urgency: domain.UrgencyHigh, Status: status,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
}

func memberOf(tenantID string) identitydomain.Actor {
	return identitydomain.Actor{UserID: "user-" + tenantID, TenantID: tenantID, OrgRole: membershipdomain.RoleMember}
}

func TestService_Create(t *testing.T) {
	f := newFixture()

	sr, err := f.svc.Create(context.Background(), memberOf("hospital-1"), CreateInput{
		Title:            "Autoclave leaking",
		ProviderTenantID: "provider-1",
		Urgency:          domain.UrgencyCritical,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sr.Status != workflow.RequestPending {
		t.Errorf("status = %s, want pending", sr.Status)
	}
	if sr.TenantID != "hospital-1" || sr.ProviderTenantID != "provider-1" {
		t.Errorf("tenants = %s/%s", sr.TenantID, sr.ProviderTenantID)
	}
}

func TestService_Transition_FullLifecycle(t *testing.T) {
	f := newFixture()
	f.seed("req-1", "hospital-1", "provider-1", workflow.RequestPending)

	hospital := memberOf("hospital-1")
	provider := memberOf("provider-1")

	steps := []struct {
		actor identitydomain.Actor
		to    workflow.State
	}{
		{provider, workflow.RequestQuoted},
		{hospital, workflow.RequestAccepted},
		{provider, workflow.RequestInProgress},
		{provider, workflow.RequestCompleted},
		{hospital, workflow.RequestDisputed},
	}
	for _, step := range steps {
		if _, err := f.svc.Transition(context.Background(), step.actor, "req-1", step.to); err != nil {
			t.Fatalf("Transition to %s: %v", step.to, err)
		}
	}
	sr, _ := f.requests.GetByID(context.Background(), "req-1")
	if sr.Status != workflow.RequestDisputed {
		t.Errorf("status = %s, want disputed", sr.Status)
	}
	if len(f.history.recs) != len(steps) {
		t.Errorf("history records = %d, want %d", len(f.history.recs), len(steps))
	}
	if len(f.auditRepo.entries) != len(steps) {
		t.Errorf("audit entries = %d, want %d", len(f.auditRepo.entries), len(steps))
	}
}

func TestService_Transition_CompletedToCancelledRejected(t *testing.T) {
	f := newFixture()
	f.seed("req-1", "hospital-1", "provider-1", workflow.RequestCompleted)

	_, err := f.svc.Transition(context.Background(), memberOf("hospital-1"), "req-1", workflow.RequestCancelled)
	if code := apperr.ErrCode(err); code != apperr.EInvalidTransition {
		t.Fatalf("code = %q, want %q", code, apperr.EInvalidTransition)
	}
	sr, _ := f.requests.GetByID(context.Background(), "req-1")
	if sr.Status != workflow.RequestCompleted {
		t.Errorf("status = %s, want completed", sr.Status)
	}
	if len(f.history.recs) != 0 {
		t.Errorf("history records = %d, want 0", len(f.history.recs))
	}
}

func TestService_Transition_LosesRaceToConcurrentWriter(t *testing.T) {
	f := newFixture()
	f.seed("req-1", "hospital-1", "provider-1", workflow.RequestPending)

	// A second caller commits pending -> cancelled between this call's read
	// and its conditional write. Both saw pending; only the first may win.
	f.requests.afterGet = func() {
		f.requests.mu.Lock()
		defer f.requests.mu.Unlock()
		f.requests.m["req-1"].Status = workflow.RequestCancelled
		f.requests.afterGet = nil
	}

	_, err := f.svc.Transition(context.Background(), memberOf("provider-1"), "req-1", workflow.RequestQuoted)
	if code := apperr.ErrCode(err); code != apperr.EConflict {
		t.Fatalf("code = %q, want %q", code, apperr.EConflict)
	}
	sr, _ := f.requests.GetByID(context.Background(), "req-1")
	if sr.Status != workflow.RequestCancelled {
		t.Errorf("status = %s, want the first writer's cancelled", sr.Status)
	}
	if len(f.history.recs) != 0 {
		t.Errorf("history records = %d, want 0", len(f.history.recs))
	}
	if len(f.auditRepo.entries) != 0 {
		t.Errorf("audit entries = %d, want 0", len(f.auditRepo.entries))
	}
}

func TestService_Visibility(t *testing.T) {
	f := newFixture()
	f.seed("req-1", "hospital-1", "provider-1", workflow.RequestPending)

	// Owning hospital and assigned provider both see it.
	if _, err := f.svc.Get(context.Background(), memberOf("hospital-1"), "req-1"); err != nil {
		t.Errorf("hospital Get: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), memberOf("provider-1"), "req-1"); err != nil {
		t.Errorf("provider Get: %v", err)
	}

	// An unrelated tenant gets not_found, never forbidden.
	_, err := f.svc.Get(context.Background(), memberOf("hospital-2"), "req-1")
	if code := apperr.ErrCode(err); code != apperr.ENotFound {
		t.Errorf("code = %q, want %q", code, apperr.ENotFound)
	}

	// Platform support sees everything.
	support := identitydomain.Actor{UserID: "ps-1", PlatformRole: identitydomain.PlatformRoleSupport}
	if _, err := f.svc.Get(context.Background(), support, "req-1"); err != nil {
		t.Errorf("support Get: %v", err)
	}
}

func TestService_List_AssignedSide(t *testing.T) {
	f := newFixture()
	f.seed("req-1", "hospital-1", "provider-1", workflow.RequestPending)
	f.seed("req-2", "hospital-2", "provider-1", workflow.RequestQuoted)
	f.seed("req-3", "hospital-1", "provider-2", workflow.RequestPending)

	out, err := f.svc.List(context.Background(), memberOf("provider-1"), "", true, 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("assigned requests = %d, want 2", len(out))
	}

	own, err := f.svc.List(context.Background(), memberOf("hospital-1"), "", false, 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(own) != 2 {
		t.Errorf("own requests = %d, want 2", len(own))
	}
}
