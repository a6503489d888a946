// Package rbac holds the pure permission decisions: who may manage which
// membership, and who may mutate which tenant-scoped resource. The functions
// here take resolved facts and return booleans; persistence-dependent guards
// (the last-owner count, tenant-scoped lookups) live with the services that
// own the transaction.
package rbac

import (
	identitydomain "equiplink/internal/identity/domain"
	"equiplink/internal/membership/domain"
)

// CanManageMember reports whether an actor with actorRole may change or
// remove the membership of a target with targetRole.
//
// Hierarchy is owner > admin > member. Self-targeting is always denied, even
// for owners; owners hand off ownership by promoting someone else, never by
// editing their own row. Owners manage anyone else, including promotion to
// owner. Admins manage only member-role targets. Members manage nobody.
//
// This says "permitted in principle" only. Removals and demotions of an owner
// still require the caller to re-count owners inside the mutation transaction.
func CanManageMember(actorRole, targetRole domain.Role, actorID, targetID string) bool {
	if actorID == targetID {
		return false
	}
	switch actorRole {
	case domain.RoleOwner:
		return true
	case domain.RoleAdmin:
		return targetRole == domain.RoleMember
	default:
		return false
	}
}

// CanAssignRole reports whether an actor with actorRole may set a membership
// to newRole. Only owners may grant owner or admin; admins may only assign
// the member role (e.g. when adding a new member).
func CanAssignRole(actorRole, newRole domain.Role) bool {
	switch actorRole {
	case domain.RoleOwner:
		return true
	case domain.RoleAdmin:
		return newRole == domain.RoleMember
	default:
		return false
	}
}

// CanMutateTenantResource reports whether the actor may mutate a resource
// owned by resourceTenantID. A platform role bypasses tenant equality
// entirely; otherwise the actor's active tenant must equal the resource's
// tenant and the actor's org role must be one of required. An empty required
// list means any org role suffices.
func CanMutateTenantResource(actor identitydomain.Actor, resourceTenantID string, required ...domain.Role) bool {
	if actor.IsPlatform() {
		return true
	}
	if !actor.HasTenant() || actor.TenantID != resourceTenantID {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if actor.OrgRole == r {
			return true
		}
	}
	return false
}

// CanMutateSharedResource reports whether the actor may mutate a resource
// two tenants drive together, such as a service request: the hospital that
// filed it quotes nothing but accepts, cancels, and disputes, while the
// assigned provider quotes and performs. The actor's active tenant must be
// one of tenantIDs; platform roles bypass as usual. Empty entries (an
// unassigned provider slot) never match.
func CanMutateSharedResource(actor identitydomain.Actor, tenantIDs ...string) bool {
	if actor.IsPlatform() {
		return true
	}
	if !actor.HasTenant() {
		return false
	}
	for _, id := range tenantIDs {
		if id != "" && actor.TenantID == id {
			return true
		}
	}
	return false
}

// CanReadTenantResource reports whether the actor may read a resource owned
// by resourceTenantID. Same tenant-equality rule as mutation but with no role
// floor; platform roles (admin and support) read everything.
//
// Callers that get false here must surface not_found, not forbidden, so
// resource existence never leaks across tenants.
func CanReadTenantResource(actor identitydomain.Actor, resourceTenantID string) bool {
	if actor.IsPlatform() {
		return true
	}
	return actor.HasTenant() && actor.TenantID == resourceTenantID
}
