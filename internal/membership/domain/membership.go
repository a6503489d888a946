package domain

import (
	"time"
)

// Membership links a user to a tenant with an org role.
type Membership struct {
	ID        string
	UserID    string
	TenantID  string
	Role      Role
	CreatedAt time.Time
}

// Role is the org role hierarchy scoped to one tenant: owner > admin > member.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the three org roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}
