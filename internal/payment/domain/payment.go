package domain

import (
	"errors"
	"time"

	"equiplink/internal/workflow"
)

// Payment settles a service request. TenantID is the paying hospital; amounts
// are integral cents to avoid float rounding.
type Payment struct {
	ID               string
	TenantID         string
	ServiceRequestID string
	AmountCents      int64
	Currency         string
	Status           workflow.State
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WorkflowKind implements workflow.Entity.
func (p *Payment) WorkflowKind() workflow.Kind { return workflow.KindPayment }

// WorkflowID implements workflow.Entity.
func (p *Payment) WorkflowID() string { return p.ID }

// WorkflowTenant implements workflow.Entity.
func (p *Payment) WorkflowTenant() string { return p.TenantID }

// WorkflowState implements workflow.Entity.
func (p *Payment) WorkflowState() workflow.State { return p.Status }

// Validate validates the payment for persistence, defaulting currency and
// status.
func (p *Payment) Validate() error {
	if p.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if p.ServiceRequestID == "" {
		return errors.New("service_request_id is required")
	}
	if p.AmountCents <= 0 {
		return errors.New("amount_cents must be positive")
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if len(p.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	if p.Status == "" {
		p.Status = workflow.PaymentPending
	}
	return nil
}
