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
	"equiplink/internal/payment/domain"
	requestdomain "equiplink/internal/servicerequest/domain"
	"equiplink/internal/workflow"
)

type memRunner struct{}

func (memRunner) InTx(ctx context.Context, fn func(q db.DBTX) error) error {
	return fn(nil)
}

type memPaymentRepo struct {
	mu       sync.Mutex
	m        map[string]*domain.Payment
	afterGet func() // runs after GetByID returns its copy, outside the lock
}

func (r *memPaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.mu.Lock()
	p, ok := r.m[id]
	var cp domain.Payment
	if ok {
		cp = *p
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

func (r *memPaymentRepo) ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Payment
	for _, p := range r.m {
		if p.TenantID == tenantID && (status == "" || p.Status == status) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListByServiceRequest(ctx context.Context, serviceRequestID string) ([]*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Payment
	for _, p := range r.m {
		if p.ServiceRequestID == serviceRequestID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.m[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.m[id]
	if !ok || p.Status != from {
		return db.ErrStaleRow
	}
	p.Status = to
	return nil
}

type memRequestRepo struct {
	mu sync.Mutex
	m  map[string]*requestdomain.ServiceRequest
}

func (r *memRequestRepo) GetByID(ctx context.Context, id string) (*requestdomain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sr, ok := r.m[id]; ok {
		cp := *sr
		return &cp, nil
	}
	return nil, nil
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
	svc      *Service
	payments *memPaymentRepo
	requests *memRequestRepo
	history  *memHistoryRepo
	auditLog *memAuditRepo
}

func newFixture() *fixture {
	f := &fixture{
		payments: &memPaymentRepo{m: map[string]*domain.Payment{}},
		requests: &memRequestRepo{m: map[string]*requestdomain.ServiceRequest{}},
		history:  &memHistoryRepo{},
		auditLog: &memAuditRepo{},
	}
	f.svc = NewService(memRunner{}, f.payments, f.requests, f.history, audit.NewRecorder(f.auditLog), nil)
	return f
}

func (f *fixture) seedRequest(id, tenantID string) {
	f.requests.m[id] = &requestdomain.ServiceRequest{
		ID: id, TenantID: tenantID, Title: "ventilator service",
		Urgency: requestdomain.UrgencyRoutine, Status: workflow.RequestCompleted,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
}

func hospitalActor(tenantID string) identitydomain.Actor {
	return identitydomain.Actor{UserID: "user-1", TenantID: tenantID, OrgRole: membershipdomain.RoleAdmin}
}

func TestService_Create_StartsPending(t *testing.T) {
	f := newFixture()
	f.seedRequest("req-1", "tenant-1")

	p, err := f.svc.Create(context.Background(), hospitalActor("tenant-1"), "req-1", 125000, "usd")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != workflow.PaymentPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if p.Currency != "USD" {
		t.Errorf("currency = %q, want USD", p.Currency)
	}
	if p.TenantID != "tenant-1" {
		t.Errorf("tenant = %q", p.TenantID)
	}
}

func TestService_Create_Invalid(t *testing.T) {
	f := newFixture()
	f.seedRequest("req-1", "tenant-1")

	cases := []struct {
		name     string
		amount   int64
		currency string
	}{
		{"zero amount", 0, "USD"},
		{"negative amount", -500, "USD"},
		{"bad currency", 1000, "DOLLARS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), hospitalActor("tenant-1"), "req-1", tc.amount, tc.currency)
			if code := apperr.ErrCode(err); code != apperr.EInvalid {
				t.Errorf("code = %q, want %q", code, apperr.EInvalid)
			}
		})
	}
}

func TestService_Create_CrossTenantRequestNotFound(t *testing.T) {
	f := newFixture()
	f.seedRequest("req-1", "tenant-2")

	_, err := f.svc.Create(context.Background(), hospitalActor("tenant-1"), "req-1", 1000, "USD")
	if code := apperr.ErrCode(err); code != apperr.ENotFound {
		t.Errorf("code = %q, want %q", code, apperr.ENotFound)
	}
}

func TestService_Transition_SettlementOutcomes(t *testing.T) {
	for _, to := range []workflow.State{workflow.PaymentCompleted, workflow.PaymentFailed, workflow.PaymentRefunded} {
		t.Run(string(to), func(t *testing.T) {
			f := newFixture()
			f.payments.m["p-1"] = &domain.Payment{
				ID: "p-1", TenantID: "tenant-1", ServiceRequestID: "req-1",
				AmountCents: 1000, Currency: "USD", Status: workflow.PaymentPending,
				CreatedAt: time.Now().UTC(),
			}
			p, err := f.svc.Transition(context.Background(), hospitalActor("tenant-1"), "p-1", to)
			if err != nil {
				t.Fatalf("Transition: %v", err)
			}
			if p.Status != to {
				t.Errorf("status = %s, want %s", p.Status, to)
			}
			if len(f.history.recs) != 1 || f.history.recs[0].NewStatus != to {
				t.Fatalf("history records = %+v", f.history.recs)
			}
			if len(f.auditLog.entries) != 1 {
				t.Fatalf("audit entries = %d, want 1", len(f.auditLog.entries))
			}
			if got := f.auditLog.entries[0].Action; got != "payment_transition" {
				t.Errorf("audit action = %q", got)
			}
		})
	}
}

func TestService_Transition_LosesRaceToConcurrentSettlement(t *testing.T) {
	f := newFixture()
	f.payments.m["p-1"] = &domain.Payment{
		ID: "p-1", TenantID: "tenant-1", ServiceRequestID: "req-1",
		AmountCents: 1000, Currency: "USD", Status: workflow.PaymentPending,
		CreatedAt: time.Now().UTC(),
	}

	// A second caller settles pending -> failed between this call's read and
	// its conditional write. Both saw pending; only the first may win.
	f.payments.afterGet = func() {
		f.payments.mu.Lock()
		defer f.payments.mu.Unlock()
		f.payments.m["p-1"].Status = workflow.PaymentFailed
		f.payments.afterGet = nil
	}

	_, err := f.svc.Transition(context.Background(), hospitalActor("tenant-1"), "p-1", workflow.PaymentCompleted)
	if code := apperr.ErrCode(err); code != apperr.EConflict {
		t.Fatalf("code = %q, want %q", code, apperr.EConflict)
	}
	stored, _ := f.payments.GetByID(context.Background(), "p-1")
	if stored.Status != workflow.PaymentFailed {
		t.Errorf("status = %s, want the first writer's failed", stored.Status)
	}
	if len(f.history.recs) != 0 {
		t.Errorf("history records = %d, want 0", len(f.history.recs))
	}
	if len(f.auditLog.entries) != 0 {
		t.Errorf("audit entries = %d, want 0", len(f.auditLog.entries))
	}
}

func TestService_Transition_TerminalImmutable(t *testing.T) {
	f := newFixture()
	f.payments.m["p-1"] = &domain.Payment{
		ID: "p-1", TenantID: "tenant-1", ServiceRequestID: "req-1",
		AmountCents: 1000, Currency: "USD", Status: workflow.PaymentCompleted,
		CreatedAt: time.Now().UTC(),
	}

	for _, to := range []workflow.State{workflow.PaymentRefunded, workflow.PaymentFailed, workflow.PaymentPending} {
		_, err := f.svc.Transition(context.Background(), hospitalActor("tenant-1"), "p-1", to)
		if code := apperr.ErrCode(err); code != apperr.EInvalidTransition {
			t.Errorf("to %s: code = %q, want %q", to, code, apperr.EInvalidTransition)
		}
	}
	if len(f.history.recs) != 0 {
		t.Errorf("history records = %d, want 0", len(f.history.recs))
	}
}

func TestService_Transition_CrossTenantNotFound(t *testing.T) {
	f := newFixture()
	f.payments.m["p-1"] = &domain.Payment{
		ID: "p-1", TenantID: "tenant-2", ServiceRequestID: "req-1",
		AmountCents: 1000, Currency: "USD", Status: workflow.PaymentPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := f.svc.Transition(context.Background(), hospitalActor("tenant-1"), "p-1", workflow.PaymentCompleted)
	if code := apperr.ErrCode(err); code != apperr.ENotFound {
		t.Errorf("code = %q, want %q", code, apperr.ENotFound)
	}
}

func TestService_ListByServiceRequest(t *testing.T) {
	f := newFixture()
	f.seedRequest("req-1", "tenant-1")
	f.payments.m["p-1"] = &domain.Payment{ID: "p-1", TenantID: "tenant-1", ServiceRequestID: "req-1", AmountCents: 1000, Currency: "USD", Status: workflow.PaymentFailed}
	f.payments.m["p-2"] = &domain.Payment{ID: "p-2", TenantID: "tenant-1", ServiceRequestID: "req-1", AmountCents: 1000, Currency: "USD", Status: workflow.PaymentPending}
	f.payments.m["p-3"] = &domain.Payment{ID: "p-3", TenantID: "tenant-1", ServiceRequestID: "req-other", AmountCents: 500, Currency: "USD", Status: workflow.PaymentPending}

	out, err := f.svc.ListByServiceRequest(context.Background(), hospitalActor("tenant-1"), "req-1")
	if err != nil {
		t.Fatalf("ListByServiceRequest: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("payments = %d, want 2", len(out))
	}

	platform := identitydomain.Actor{UserID: "ops-1", PlatformRole: identitydomain.PlatformRoleSupport}
	if _, err := f.svc.ListByServiceRequest(context.Background(), platform, "req-1"); err != nil {
		t.Errorf("platform read: %v", err)
	}
}
