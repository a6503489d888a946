package policy

import (
	"context"
	"testing"

	"equiplink/internal/apperr"
	identitydomain "equiplink/internal/identity/domain"
	membershipdomain "equiplink/internal/membership/domain"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return e
}

func TestEvaluator_AdminAllowedAll(t *testing.T) {
	e := newEvaluator(t)
	admin := identitydomain.Actor{UserID: "ops-1", PlatformRole: identitydomain.PlatformRoleAdmin}

	actions := []string{
		ActionListRequests, ActionListTenants, ActionReadAuditLog,
		ActionSuspendTenant, ActionReactivateTenant,
		ActionResolveDispute, ActionReassignProvider,
	}
	for _, a := range actions {
		if err := e.Allow(context.Background(), admin, a); err != nil {
			t.Errorf("%s: %v", a, err)
		}
	}
}

func TestEvaluator_SupportReadOnly(t *testing.T) {
	e := newEvaluator(t)
	support := identitydomain.Actor{UserID: "ops-2", PlatformRole: identitydomain.PlatformRoleSupport}

	for _, a := range []string{ActionListRequests, ActionListTenants, ActionReadAuditLog} {
		if err := e.Allow(context.Background(), support, a); err != nil {
			t.Errorf("read %s: %v", a, err)
		}
	}
	for _, a := range []string{ActionSuspendTenant, ActionReactivateTenant, ActionResolveDispute, ActionReassignProvider} {
		err := e.Allow(context.Background(), support, a)
		if code := apperr.ErrCode(err); code != apperr.EForbidden {
			t.Errorf("write %s: code = %q, want %q", a, code, apperr.EForbidden)
		}
	}
}

func TestEvaluator_OrgRolesNeverPass(t *testing.T) {
	e := newEvaluator(t)
	owner := identitydomain.Actor{UserID: "user-1", TenantID: "tenant-1", OrgRole: membershipdomain.RoleOwner}

	err := e.Allow(context.Background(), owner, ActionListRequests)
	if code := apperr.ErrCode(err); code != apperr.EForbidden {
		t.Errorf("code = %q, want %q", code, apperr.EForbidden)
	}
}

func TestEvaluator_HealthCheck(t *testing.T) {
	e := newEvaluator(t)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
