// Package policy gates platform operations with OPA Rego. Every cross-tenant
// operation names an action; the policy decides per actor whether the action
// is allowed. Any evaluation problem denies.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"equiplink/internal/apperr"
	identitydomain "equiplink/internal/identity/domain"
)

// Actions gated by the platform policy.
const (
	ActionListRequests     = "list_service_requests"
	ActionListTenants      = "list_tenants"
	ActionReadAuditLog     = "read_audit_log"
	ActionSuspendTenant    = "suspend_tenant"
	ActionReactivateTenant = "reactivate_tenant"
	ActionResolveDispute   = "resolve_dispute"
	ActionReassignProvider = "reassign_provider"
)

const policyQuery = "data.equiplink.platform_ops.allow"

// Default policy: platform_admin may do anything; platform_support is
// read-only. Org roles never reach this gate.
const defaultRegoPolicy = `package equiplink.platform_ops

default allow = false

read_actions := {"list_service_requests", "list_tenants", "read_audit_log"}

allow if {
	input.actor.platform_role == "platform_admin"
}

allow if {
	input.actor.platform_role == "platform_support"
	read_actions[input.action]
}
`

// Evaluator compiles the platform policy once and answers allow/deny queries.
type Evaluator struct {
	compiler *ast.Compiler
}

// NewEvaluator compiles the built-in policy. Compilation failure is a
// programming error and surfaces at startup, not per request.
func NewEvaluator() (*Evaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"platform_ops.rego": defaultRegoPolicy})
	if err != nil {
		return nil, fmt.Errorf("compile platform policy: %w", err)
	}
	return &Evaluator{compiler: compiler}, nil
}

// Allow returns nil when the actor may perform the action. A deny maps to
// forbidden; an engine failure maps to unavailable. Both are denials; there is
// no fail-open path.
func (e *Evaluator) Allow(ctx context.Context, actor identitydomain.Actor, action string) error {
	const op = "platformops.policy.Allow"
	if !actor.IsPlatform() {
		return apperr.Forbidden(op, "platform role required")
	}
	input := map[string]any{
		"actor": map[string]any{
			"user_id":       actor.UserID,
			"platform_role": string(actor.PlatformRole),
		},
		"action": action,
	}
	q := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return apperr.Unavailable(op, err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return apperr.Unavailable(op, fmt.Errorf("policy query returned no result"))
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok || !allowed {
		return apperr.Forbidden(op, "platform policy denied "+action)
	}
	return nil
}

// HealthCheck verifies the in-process engine can evaluate the compiled policy.
func (e *Evaluator) HealthCheck(ctx context.Context) error {
	input := map[string]any{
		"actor":  map[string]any{"user_id": "", "platform_role": "platform_support"},
		"action": ActionListRequests,
	}
	q := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval platform policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}
