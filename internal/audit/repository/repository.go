package repository

import (
	"context"

	"equiplink/internal/audit/domain"
	"equiplink/internal/db"
)

// Filter narrows audit queries. Zero values mean "any".
type Filter struct {
	TenantID     string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
}

// Repository defines persistence for audit entries: insert and read only.
// There is deliberately no update or delete method; the log is append-only.
type Repository interface {
	// AppendTx inserts the entry using the caller's querier, so the append
	// commits or rolls back with the primary write it records.
	AppendTx(ctx context.Context, q db.DBTX, e *domain.Entry) error
	List(ctx context.Context, f Filter, limit, offset int32) ([]*domain.Entry, error)
}
