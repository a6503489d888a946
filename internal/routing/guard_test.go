package routing

import (
	"context"
	"errors"
	"testing"

	"equiplink/internal/apperr"
	identitydomain "equiplink/internal/identity/domain"
	membershipdomain "equiplink/internal/membership/domain"
	tenantdomain "equiplink/internal/tenant/domain"
)

type fakeResolver struct {
	actors map[string]identitydomain.Actor
}

func (r *fakeResolver) Resolve(token string) (identitydomain.Actor, error) {
	if a, ok := r.actors[token]; ok {
		return a, nil
	}
	return identitydomain.Actor{}, apperr.Unauthenticated("test", nil)
}

type fakeKinds struct {
	kinds map[string]tenantdomain.Kind
	err   error
}

func (k *fakeKinds) Kind(ctx context.Context, tenantID string) (tenantdomain.Kind, error) {
	if k.err != nil {
		return "", k.err
	}
	return k.kinds[tenantID], nil
}

func newGuard(kinds *fakeKinds) *Guard {
	resolver := &fakeResolver{actors: map[string]identitydomain.Actor{
		"hosp-token":     {UserID: "u-1", TenantID: "hosp-1", OrgRole: membershipdomain.RoleMember},
		"prov-token":     {UserID: "u-2", TenantID: "prov-1", OrgRole: membershipdomain.RoleOwner},
		"platform-token": {UserID: "u-3", PlatformRole: identitydomain.PlatformRoleAdmin},
		"fresh-token":    {UserID: "u-4"},
	}}
	return NewGuard(resolver, kinds, nil)
}

func defaultKinds() *fakeKinds {
	return &fakeKinds{kinds: map[string]tenantdomain.Kind{
		"hosp-1": tenantdomain.KindHospital,
		"prov-1": tenantdomain.KindProvider,
	}}
}

func TestGuard_NoCredentialPreservesPath(t *testing.T) {
	g := newGuard(defaultKinds())

	d := g.Decide(context.Background(), "", SectionHospital, "/hospital/equipment/42")
	if d.Section != SectionSignIn || !d.Redirect {
		t.Fatalf("decision = %+v", d)
	}
	if d.ReturnTo != "/hospital/equipment/42" {
		t.Errorf("return to = %q", d.ReturnTo)
	}
}

func TestGuard_StaleCredential(t *testing.T) {
	g := newGuard(defaultKinds())

	d := g.Decide(context.Background(), "expired-token", SectionHospital, "/hospital")
	if d.Section != SectionSignIn || !d.Redirect {
		t.Fatalf("decision = %+v", d)
	}
}

func TestGuard_PlatformRoleAlwaysPlatform(t *testing.T) {
	g := newGuard(defaultKinds())

	for _, requested := range []Section{SectionRoot, SectionHospital, SectionProvider, SectionOnboarding, SectionPlatform} {
		d := g.Decide(context.Background(), "platform-token", requested, "/")
		if d.Section != SectionPlatform {
			t.Errorf("requested %q: section = %q, want platform", requested, d.Section)
		}
		if wantRedirect := requested != SectionPlatform; d.Redirect != wantRedirect {
			t.Errorf("requested %q: redirect = %v, want %v", requested, d.Redirect, wantRedirect)
		}
	}
}

func TestGuard_NoTenantGoesToOnboarding(t *testing.T) {
	g := newGuard(defaultKinds())

	for _, requested := range []Section{SectionRoot, SectionHospital, SectionProvider} {
		d := g.Decide(context.Background(), "fresh-token", requested, "/")
		if d.Section != SectionOnboarding || !d.Redirect {
			t.Errorf("requested %q: decision = %+v", requested, d)
		}
	}
	d := g.Decide(context.Background(), "fresh-token", SectionOnboarding, "/onboarding")
	if d.Section != SectionOnboarding || d.Redirect {
		t.Errorf("onboarding request: decision = %+v", d)
	}
}

func TestGuard_TenantKindRoutesSection(t *testing.T) {
	g := newGuard(defaultKinds())

	cases := []struct {
		token     string
		requested Section
		want      Section
		redirect  bool
	}{
		{"hosp-token", SectionHospital, SectionHospital, false},
		{"hosp-token", SectionRoot, SectionHospital, true},
		{"hosp-token", SectionProvider, SectionHospital, true},
		{"prov-token", SectionProvider, SectionProvider, false},
		{"prov-token", SectionHospital, SectionProvider, true},
	}
	for _, tc := range cases {
		d := g.Decide(context.Background(), tc.token, tc.requested, "/")
		if d.Section != tc.want || d.Redirect != tc.redirect {
			t.Errorf("%s requesting %q: got %+v", tc.token, tc.requested, d)
		}
	}
}

func TestGuard_KindLookupFailureFailsClosed(t *testing.T) {
	g := newGuard(&fakeKinds{err: errors.New("redis and store both down")})

	d := g.Decide(context.Background(), "hosp-token", SectionHospital, "/hospital")
	if d.Section != SectionSignIn || !d.Redirect {
		t.Fatalf("decision = %+v, want signin redirect", d)
	}
}

func TestGuard_UnknownTenantFailsClosed(t *testing.T) {
	// Tenant stamped in the credential but missing from the directory: never
	// guess a section.
	g := newGuard(&fakeKinds{kinds: map[string]tenantdomain.Kind{}})

	d := g.Decide(context.Background(), "hosp-token", SectionHospital, "/hospital")
	if d.Section != SectionSignIn {
		t.Fatalf("decision = %+v, want signin", d)
	}
}
