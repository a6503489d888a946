// Package apperr defines the application error taxonomy. Every rejection the
// core produces carries a machine-readable, locale-independent code so the
// presentation layer can localize without the core knowing about locales.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes. These are wire-stable: handlers serialize them verbatim and
// clients branch on them.
const (
	EUnauthenticated    = "unauthenticated"      // missing/invalid/expired credential
	ENoActiveTenant     = "no_active_tenant"     // valid identity, no tenant context
	EForbidden          = "forbidden"            // role/permission denial on a known resource
	ENotFound           = "not_found"            // also used instead of forbidden across tenants
	EInvalidTransition  = "invalid_transition"   // workflow guard rejection
	ELastOwnerViolation = "last_owner_violation" // membership removal guard
	EConflict           = "conflict"
	EInvalid            = "invalid"
	EUnavailable        = "unavailable" // transient collaborator failure; caller may retry
	EInternal           = "internal"
)

// Error is the coded error carried through services and handlers.
//
// Code targets automated handling; Msg is for operators; Op and Err chain a
// logical stack trace. Construct with the code helpers below where possible.
type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
		if e.Err != nil {
			b.WriteString(": ")
			b.WriteString(e.Err.Error())
		}
		return b.String()
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
		return b.String()
	}
	b.WriteString("<")
	b.WriteString(e.Code)
	b.WriteString(">")
	return b.String()
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error { return e.Err }

// ErrCode returns the code of err if it is (or wraps) an *Error; EInternal
// for any other non-nil error; "" for nil.
func ErrCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return EInternal
}

// ErrMessage returns a safe, user-facing message for err. Internal errors are
// masked; coded errors surface their Msg.
func ErrMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EInternal {
			return "an internal error occurred"
		}
		if e.Msg != "" {
			return e.Msg
		}
		return e.Code
	}
	return "an internal error occurred"
}

// HTTPStatus maps an error code to the HTTP status used at the API boundary.
// The UI boundary turns unauthenticated/no_active_tenant into redirects
// instead; that mapping lives in the routing guard.
func HTTPStatus(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case EUnauthenticated:
		return http.StatusUnauthorized
	case ENoActiveTenant:
		return http.StatusConflict
	case EForbidden:
		return http.StatusForbidden
	case ENotFound:
		return http.StatusNotFound
	case EInvalidTransition, ELastOwnerViolation:
		return http.StatusUnprocessableEntity
	case EConflict:
		return http.StatusConflict
	case EInvalid:
		return http.StatusBadRequest
	case EUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Unauthenticated returns an unauthenticated error. Always fail closed: any
// credential verification problem maps here, never to a more specific code.
func Unauthenticated(op string, err error) *Error {
	return &Error{Code: EUnauthenticated, Msg: "authentication required", Op: op, Err: err}
}

// NoActiveTenant returns the valid-identity-without-tenant error. Callers
// must never conflate this with Unauthenticated; the routing guard and the
// onboarding flow branch on the distinction.
func NoActiveTenant(op string) *Error {
	return &Error{Code: ENoActiveTenant, Msg: "no active tenant", Op: op}
}

// Forbidden returns a permission denial for a resource the actor is allowed
// to know exists.
func Forbidden(op, msg string) *Error {
	if msg == "" {
		msg = "permission denied"
	}
	return &Error{Code: EForbidden, Msg: msg, Op: op}
}

// NotFound returns a not-found error. Tenant-scoped lookups that miss because
// the resource belongs to another tenant must use this, not Forbidden.
func NotFound(op, msg string) *Error {
	if msg == "" {
		msg = "resource not found"
	}
	return &Error{Code: ENotFound, Msg: msg, Op: op}
}

// LastOwnerViolation returns the guard error for removing or demoting a
// tenant's last owner.
func LastOwnerViolation(op string) *Error {
	return &Error{Code: ELastOwnerViolation, Msg: "tenant must retain at least one owner", Op: op}
}

// Invalid returns a validation error with the given message.
func Invalid(op, msg string) *Error {
	return &Error{Code: EInvalid, Msg: msg, Op: op}
}

// Conflict returns a conflict error with the given message.
func Conflict(op, msg string) *Error {
	return &Error{Code: EConflict, Msg: msg, Op: op}
}

// Unavailable wraps a transient collaborator failure (store, cache, broker).
// The core never retries; callers may, with backoff.
func Unavailable(op string, err error) *Error {
	return &Error{Code: EUnavailable, Msg: "service temporarily unavailable", Op: op, Err: err}
}

// Internal wraps an unexpected failure.
func Internal(op string, err error) *Error {
	return &Error{Code: EInternal, Op: op, Err: err}
}

// InvalidTransition returns the workflow guard rejection carrying the entity
// kind and the attempted edge. Client logic error; not retried.
func InvalidTransition(op, entityKind, from, attemptedTo string) *Error {
	return &Error{
		Code: EInvalidTransition,
		Msg:  fmt.Sprintf("%s cannot transition from %s to %s", entityKind, from, attemptedTo),
		Op:   op,
	}
}
