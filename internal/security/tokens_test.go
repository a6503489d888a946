package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAccessAndRefresh(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	id := TokenIdentity{UserID: "u1", TenantID: "t1", OrgRole: "owner"}

	access, accessJti, exp, err := p.IssueAccess("s1", id)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" || accessJti == "" {
		t.Fatal("access token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	refresh, jti, refreshExp, err := p.IssueRefresh("s1", "u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if refresh == "" || jti == "" {
		t.Fatal("refresh token or jti empty")
	}
	if refreshExp.Before(time.Now()) {
		t.Fatal("refresh expires at in the past")
	}

	sid, jti2, uid, err := p.ValidateRefresh(refresh)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if sid != "s1" || jti2 != jti || uid != "u1" {
		t.Errorf("ValidateRefresh: got sessionID=%q jti=%q userID=%q", sid, jti2, uid)
	}
}

func TestTokenProvider_ValidateAccess_RoundTrip(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	in := TokenIdentity{UserID: "u1", TenantID: "t1", OrgRole: "admin", PlatformRole: ""}
	access, _, _, err := p.IssueAccess("s1", in)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	out, sid, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if sid != "s1" {
		t.Errorf("session id = %q, want s1", sid)
	}
	if out != in {
		t.Errorf("identity = %+v, want %+v", out, in)
	}
}

func TestTokenProvider_ValidateAccess_PlatformRoleClaim(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	in := TokenIdentity{UserID: "u2", PlatformRole: "platform_admin"}
	access, _, _, err := p.IssueAccess("s2", in)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	out, _, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if out.PlatformRole != "platform_admin" {
		t.Errorf("platform role = %q, want platform_admin", out.PlatformRole)
	}
	if out.TenantID != "" {
		t.Errorf("tenant id = %q, want empty (no inferred tenant)", out.TenantID)
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, _, err = p.ValidateAccess("invalid-token"); err != ErrInvalidToken {
		t.Errorf("ValidateAccess invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateRefreshInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, _, _, err = p.ValidateRefresh("invalid-token"); err != ErrInvalidToken {
		t.Errorf("ValidateRefresh invalid token: want ErrInvalidToken, got %v", err)
	}
}
