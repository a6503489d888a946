package service

import (
	"equiplink/internal/apperr"
	"equiplink/internal/identity/domain"
	membershipdomain "equiplink/internal/membership/domain"
	"equiplink/internal/security"
)

// Resolver turns a signed credential into an Actor. Pure verification and
// decode: no store reads, no side effects. Any verification failure maps to
// unauthenticated, and a credential without a tenant claim yields an Actor
// without a tenant; the resolver never infers a default tenant.
type Resolver struct {
	tokens *security.TokenProvider
}

// NewResolver returns a Resolver that validates against the given provider.
func NewResolver(tokens *security.TokenProvider) *Resolver {
	return &Resolver{tokens: tokens}
}

// Resolve verifies the access token and returns the acting identity.
func (r *Resolver) Resolve(token string) (domain.Actor, error) {
	const op = "identity.Resolver.Resolve"
	if token == "" {
		return domain.Actor{}, apperr.Unauthenticated(op, nil)
	}
	id, sessionID, err := r.tokens.ValidateAccess(token)
	if err != nil {
		return domain.Actor{}, apperr.Unauthenticated(op, err)
	}
	actor := domain.Actor{
		UserID:       id.UserID,
		TenantID:     id.TenantID,
		OrgRole:      membershipdomain.Role(id.OrgRole),
		PlatformRole: domain.PlatformRole(id.PlatformRole),
		SessionID:    sessionID,
	}
	if actor.UserID == "" {
		return domain.Actor{}, apperr.Unauthenticated(op, nil)
	}
	if actor.PlatformRole != domain.PlatformRoleNone && !actor.PlatformRole.Valid() {
		return domain.Actor{}, apperr.Unauthenticated(op, nil)
	}
	if actor.HasTenant() && !actor.OrgRole.Valid() {
		return domain.Actor{}, apperr.Unauthenticated(op, nil)
	}
	return actor, nil
}

// RequireTenant returns the actor's active tenant id, or no_active_tenant.
// Callers branch on this code separately from unauthenticated: the former
// sends the user to onboarding, the latter to sign-in.
func RequireTenant(op string, actor domain.Actor) (string, error) {
	if !actor.HasTenant() {
		return "", apperr.NoActiveTenant(op)
	}
	return actor.TenantID, nil
}
