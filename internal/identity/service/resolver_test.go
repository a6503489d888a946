package service

import (
	"testing"
	"time"

	"equiplink/internal/apperr"
	membershipdomain "equiplink/internal/membership/domain"
	"equiplink/internal/security"
)

func testTokens(t *testing.T) *security.TokenProvider {
	t.Helper()
	p, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	return p
}

func TestResolver_Resolve_TenantActor(t *testing.T) {
	tokens := testTokens(t)
	access, _, _, err := tokens.IssueAccess("session-1", security.TokenIdentity{
		UserID:   "user-1",
		TenantID: "tenant-1",
		OrgRole:  "admin",
	})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	actor, err := NewResolver(tokens).Resolve(access)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if actor.UserID != "user-1" || actor.TenantID != "tenant-1" {
		t.Errorf("actor = %s/%s", actor.UserID, actor.TenantID)
	}
	if actor.OrgRole != membershipdomain.RoleAdmin {
		t.Errorf("org role = %q, want admin", actor.OrgRole)
	}
	if actor.IsPlatform() {
		t.Error("actor has a platform role, want none")
	}
	if actor.SessionID != "session-1" {
		t.Errorf("session = %q", actor.SessionID)
	}
}

func TestResolver_Resolve_NoTenantNotInferred(t *testing.T) {
	tokens := testTokens(t)
	access, _, _, err := tokens.IssueAccess("session-1", security.TokenIdentity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	actor, err := NewResolver(tokens).Resolve(access)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if actor.HasTenant() {
		t.Errorf("tenant = %q, want none", actor.TenantID)
	}
	// Valid credential without tenant is NOT unauthenticated; callers get the
	// distinction through RequireTenant.
	_, err = RequireTenant("test.Op", actor)
	if code := apperr.ErrCode(err); code != apperr.ENoActiveTenant {
		t.Errorf("RequireTenant code = %q, want %q", code, apperr.ENoActiveTenant)
	}
}

func TestResolver_Resolve_PlatformRole(t *testing.T) {
	tokens := testTokens(t)
	access, _, _, err := tokens.IssueAccess("session-1", security.TokenIdentity{
		UserID:       "user-1",
		PlatformRole: "platform_admin",
	})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	actor, err := NewResolver(tokens).Resolve(access)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !actor.IsPlatform() {
		t.Error("IsPlatform = false, want true")
	}
}

func TestResolver_Resolve_FailClosed(t *testing.T) {
	r := NewResolver(testTokens(t))

	for name, token := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"truncated": "eyJhbGciOiJSUzI1NiJ9.e30",
	} {
		_, err := r.Resolve(token)
		if code := apperr.ErrCode(err); code != apperr.EUnauthenticated {
			t.Errorf("%s: code = %q, want %q", name, code, apperr.EUnauthenticated)
		}
	}
}

func TestResolver_Resolve_ExpiredToken(t *testing.T) {
	tokens, err := security.NewTestTokenProviderTTL(-time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTestTokenProviderTTL: %v", err)
	}
	access, _, _, err := tokens.IssueAccess("session-1", security.TokenIdentity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	_, err = NewResolver(tokens).Resolve(access)
	if code := apperr.ErrCode(err); code != apperr.EUnauthenticated {
		t.Errorf("code = %q, want %q", code, apperr.EUnauthenticated)
	}
}
