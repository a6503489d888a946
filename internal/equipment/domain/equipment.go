package domain

import (
	"errors"
	"time"

	"equiplink/internal/workflow"
)

// Equipment is a hospital-owned device tracked through the operational
// lifecycle (available/in_use/maintenance) plus damaged and retired.
type Equipment struct {
	ID           string
	TenantID     string
	Name         string
	SerialNumber string
	Status       workflow.State
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkflowKind implements workflow.Entity.
func (e *Equipment) WorkflowKind() workflow.Kind { return workflow.KindEquipment }

// WorkflowID implements workflow.Entity.
func (e *Equipment) WorkflowID() string { return e.ID }

// WorkflowTenant implements workflow.Entity.
func (e *Equipment) WorkflowTenant() string { return e.TenantID }

// WorkflowState implements workflow.Entity.
func (e *Equipment) WorkflowState() workflow.State { return e.Status }

// Validate validates the equipment for persistence.
func (e *Equipment) Validate() error {
	if e.Name == "" {
		return errors.New("name is required")
	}
	if e.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if e.Status == "" {
		e.Status = workflow.EquipmentAvailable
	}
	return nil
}

// Urgency of a failure report. High and critical reports take the equipment
// out of service immediately.
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

// Immediate reports whether the urgency triggers the damage cascade.
func (u Urgency) Immediate() bool {
	return u == UrgencyHigh || u == UrgencyCritical
}

// FailureReport records a reported equipment fault.
type FailureReport struct {
	ID          string
	TenantID    string
	EquipmentID string
	Urgency     Urgency
	Description string
	ReportedBy  string
	CreatedAt   time.Time
}
