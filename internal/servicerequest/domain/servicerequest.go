package domain

import (
	"errors"
	"time"

	"equiplink/internal/workflow"
)

// ServiceRequest is a hospital's request for equipment service, routed to a
// provider tenant. TenantID is the owning hospital; ProviderTenantID is the
// assigned provider (empty until one is assigned).
type ServiceRequest struct {
	ID               string
	TenantID         string
	EquipmentID      string
	ProviderTenantID string
	Title            string
	Description      string
	Urgency          Urgency
	Status           workflow.State
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WorkflowKind implements workflow.Entity.
func (r *ServiceRequest) WorkflowKind() workflow.Kind { return workflow.KindServiceRequest }

// WorkflowID implements workflow.Entity.
func (r *ServiceRequest) WorkflowID() string { return r.ID }

// WorkflowTenant implements workflow.Entity.
func (r *ServiceRequest) WorkflowTenant() string { return r.TenantID }

// WorkflowState implements workflow.Entity.
func (r *ServiceRequest) WorkflowState() workflow.State { return r.Status }

// Validate validates the request for persistence.
func (r *ServiceRequest) Validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	if r.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if !r.Urgency.Valid() {
		return errors.New("urgency must be routine, high, or critical")
	}
	if r.Status == "" {
		r.Status = workflow.RequestPending
	}
	return nil
}

// Urgency of a service request.
type Urgency string

const (
	UrgencyRoutine  Urgency = "routine"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	return u == UrgencyRoutine || u == UrgencyHigh || u == UrgencyCritical
}
