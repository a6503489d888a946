package domain

import (
	membershipdomain "equiplink/internal/membership/domain"
)

// PlatformRole is the platform-operator overlay role, scoped across all
// tenants. It is an attribute of the user record, stamped into the signed
// credential at issue time; there is no secondary lookup.
type PlatformRole string

const (
	PlatformRoleNone    PlatformRole = ""
	PlatformRoleAdmin   PlatformRole = "platform_admin"
	PlatformRoleSupport PlatformRole = "platform_support"
)

// Valid reports whether r is a known non-empty platform role.
func (r PlatformRole) Valid() bool {
	return r == PlatformRoleAdmin || r == PlatformRoleSupport
}

// Actor is who is acting and within which tenant, derived per request from a
// verified credential. Ephemeral: never persisted, never read from ambient
// state. TenantID is empty when the credential carries no active tenant; the
// resolver never infers a default.
type Actor struct {
	UserID       string
	TenantID     string
	OrgRole      membershipdomain.Role
	PlatformRole PlatformRole
	SessionID    string
}

// HasTenant reports whether the actor acts within a tenant.
func (a Actor) HasTenant() bool { return a.TenantID != "" }

// IsPlatform reports whether the actor carries any platform role.
func (a Actor) IsPlatform() bool { return a.PlatformRole.Valid() }
