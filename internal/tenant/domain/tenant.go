package domain

import (
	"errors"
	"time"
)

// Tenant is an isolated hospital or provider organization, the unit of data
// isolation. Tenants are never hard-deleted; lifecycle moves among trial,
// active, and suspended, and only platform roles may suspend or reactivate.
type Tenant struct {
	ID              string
	Name            string
	Kind            Kind
	LifecycleStatus LifecycleStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Kind determines which application section a tenant's members land in.
type Kind string

const (
	KindHospital Kind = "hospital"
	KindProvider Kind = "provider"
)

// Valid reports whether k is a known tenant kind.
func (k Kind) Valid() bool {
	return k == KindHospital || k == KindProvider
}

type LifecycleStatus string

const (
	LifecycleTrial     LifecycleStatus = "trial"
	LifecycleActive    LifecycleStatus = "active"
	LifecycleSuspended LifecycleStatus = "suspended"
)

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if !t.Kind.Valid() {
		return errors.New("kind must be hospital or provider")
	}
	if t.LifecycleStatus == "" {
		t.LifecycleStatus = LifecycleTrial
	}
	return nil
}
