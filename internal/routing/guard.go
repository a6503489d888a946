// Package routing decides which application section a UI request may land in.
// The guard composes credential resolution with the tenant-kind directory; it
// never renders anything itself, it only names the section or the redirect.
package routing

import (
	"context"

	"go.uber.org/zap"

	identitydomain "equiplink/internal/identity/domain"
	tenantdomain "equiplink/internal/tenant/domain"
)

// Section is an application area a signed-in user can land in.
type Section string

const (
	SectionSignIn     Section = "signin"
	SectionOnboarding Section = "onboarding"
	SectionHospital   Section = "hospital"
	SectionProvider   Section = "provider"
	SectionPlatform   Section = "platform"
	// SectionRoot is the bare landing path before any section is chosen.
	SectionRoot Section = ""
)

// Resolver verifies a credential into an acting identity.
type Resolver interface {
	Resolve(token string) (identitydomain.Actor, error)
}

// KindLookup answers tenant kinds; "" with nil error means unknown tenant.
type KindLookup interface {
	Kind(ctx context.Context, tenantID string) (tenantdomain.Kind, error)
}

// Decision is where a request should go.
type Decision struct {
	Section  Section
	Redirect bool
	// ReturnTo carries the originally requested path when an anonymous user
	// is sent to sign-in, so they come back after authenticating.
	ReturnTo string
	// Actor is the resolved identity; zero on sign-in decisions.
	Actor identitydomain.Actor
}

// Guard is the per-request section decision procedure.
type Guard struct {
	resolver Resolver
	kinds    KindLookup
	logger   *zap.Logger
}

// NewGuard returns a Guard. logger may be nil.
func NewGuard(resolver Resolver, kinds KindLookup, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{resolver: resolver, kinds: kinds, logger: logger}
}

// Decide picks the section for a request. token may be empty; requested is
// the section the path maps to; path is the raw request path, preserved on
// anonymous sign-in redirects.
//
// A failed tenant-kind lookup never defaults to either kind: guessing would
// land the other kind's users in the wrong tenant boundary. The guard sends
// them back to sign-in instead.
func (g *Guard) Decide(ctx context.Context, token string, requested Section, path string) Decision {
	if token == "" {
		return Decision{Section: SectionSignIn, Redirect: requested != SectionSignIn, ReturnTo: path}
	}
	actor, err := g.resolver.Resolve(token)
	if err != nil {
		return Decision{Section: SectionSignIn, Redirect: requested != SectionSignIn}
	}

	var home Section
	switch {
	case actor.IsPlatform():
		home = SectionPlatform
	case !actor.HasTenant():
		home = SectionOnboarding
	default:
		kind, err := g.kinds.Kind(ctx, actor.TenantID)
		if err != nil || !kind.Valid() {
			g.logger.Warn("tenant kind undetermined, forcing re-authentication",
				zap.String("tenant_id", actor.TenantID), zap.Error(err))
			return Decision{Section: SectionSignIn, Redirect: true}
		}
		if kind == tenantdomain.KindProvider {
			home = SectionProvider
		} else {
			home = SectionHospital
		}
	}
	return Decision{Section: home, Redirect: requested != home, Actor: actor}
}
