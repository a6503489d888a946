// Package notification carries reactive, fire-and-forget events emitted after
// successful mutations. A failed emit never rolls back or fails the mutation
// it describes; the audit log, not the event stream, is the system of record.
package notification

import "time"

// Event types emitted by the core.
const (
	TypeStatusChanged      = "status_changed"
	TypeMembershipChanged  = "membership_changed"
	TypeTenantLifecycle    = "tenant_lifecycle"
	TypeFailureReported    = "failure_reported"
	TypeProviderReassigned = "provider_reassigned"
	TypeDisputeRuled       = "dispute_ruled"
)

// Event is one notification, serialized as JSON on the wire.
type Event struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	TenantID     string            `json:"tenant_id,omitempty"`
	ActorID      string            `json:"actor_id"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Detail       map[string]string `json:"detail,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}
