package domain

import (
	"encoding/json"
	"time"
)

// Entry is one append-only compliance record of a privileged or
// state-changing action. Entries are never updated or deleted; retention is
// regulatory (5 years minimum).
type Entry struct {
	ID             string
	TenantID       string // empty for platform-wide actions
	ActorID        string
	Action         string
	ResourceType   string
	ResourceID     string
	PreviousValues json.RawMessage // nil when the action created the resource
	NewValues      json.RawMessage
	CreatedAt      time.Time
}

// Actions recorded by the core. Workflow transitions use
// TransitionAction(kind) rather than a fixed constant.
const (
	ActionRoleChanged        = "role_changed"
	ActionMemberRemoved      = "member_removed"
	ActionMemberAdded        = "member_added"
	ActionTenantCreated      = "tenant_created"
	ActionTenantSuspended    = "tenant_suspended"
	ActionTenantReactivated  = "tenant_reactivated"
	ActionDisputeRuled       = "dispute_ruled"
	ActionProviderReassigned = "provider_reassigned"
)

// TransitionAction returns the audit action name for a workflow transition on
// the given entity kind (e.g. "service_request_transition").
func TransitionAction(entityKind string) string {
	return entityKind + "_transition"
}
