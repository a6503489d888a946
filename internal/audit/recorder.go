// Package audit provides the append-only compliance trail. Every privileged
// mutation appends exactly one entry in the same transaction as its primary
// write: a failed primary write leaves no audit entry, and a failed append
// rolls the primary write back.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"equiplink/internal/audit/domain"
	auditrepo "equiplink/internal/audit/repository"
	"equiplink/internal/db"
)

// Recorder appends audit entries inside the caller's transaction. Unlike
// best-effort request logging, Append errors must propagate so the enclosing
// transaction rolls back; audit completeness is a correctness invariant here.
type Recorder struct {
	repo auditrepo.Repository
}

// NewRecorder returns a Recorder that persists through repo.
func NewRecorder(repo auditrepo.Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Append writes one entry using the caller's querier. tenantID may be empty
// for platform-wide actions. previous/next are marshalled to JSON; nil is
// recorded as NULL (e.g. no previous values on creation). Returns the entry id.
func (r *Recorder) Append(ctx context.Context, q db.DBTX, tenantID, actorID, action, resourceType, resourceID string, previous, next any) (string, error) {
	prevJSON, err := marshalValues(previous)
	if err != nil {
		return "", err
	}
	nextJSON, err := marshalValues(next)
	if err != nil {
		return "", err
	}
	e := &domain.Entry{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		ActorID:        actorID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		PreviousValues: prevJSON,
		NewValues:      nextJSON,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.repo.AppendTx(ctx, q, e); err != nil {
		return "", err
	}
	return e.ID, nil
}

func marshalValues(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
