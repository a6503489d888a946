package domain

import (
	"errors"
	"time"

	"equiplink/internal/workflow"
)

// Dispute is raised by a hospital against a service request's outcome.
// TenantID is the raising hospital; Ruling is set by a platform arbiter when
// the dispute resolves.
type Dispute struct {
	ID               string
	TenantID         string
	ServiceRequestID string
	Reason           string
	Ruling           string
	Status           workflow.State
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WorkflowKind implements workflow.Entity.
func (d *Dispute) WorkflowKind() workflow.Kind { return workflow.KindDispute }

// WorkflowID implements workflow.Entity.
func (d *Dispute) WorkflowID() string { return d.ID }

// WorkflowTenant implements workflow.Entity.
func (d *Dispute) WorkflowTenant() string { return d.TenantID }

// WorkflowState implements workflow.Entity.
func (d *Dispute) WorkflowState() workflow.State { return d.Status }

// Validate validates the dispute for persistence.
func (d *Dispute) Validate() error {
	if d.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if d.ServiceRequestID == "" {
		return errors.New("service_request_id is required")
	}
	if d.Status == "" {
		d.Status = workflow.DisputeOpen
	}
	return nil
}
