package repository

import (
	"context"

	"equiplink/internal/db"
	"equiplink/internal/dispute/domain"
	"equiplink/internal/workflow"
)

// Repository defines persistence for disputes.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Dispute, error)
	ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Dispute, error)
	CreateTx(ctx context.Context, q db.DBTX, d *domain.Dispute) error
	// UpdateStatusTx patches the status inside the caller's transaction,
	// conditional on the status the caller read; db.ErrStaleRow on a miss.
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
	// SetRulingTx records the arbiter's ruling text together with the status
	// change, inside the caller's transaction, with the same stale-row guard.
	SetRulingTx(ctx context.Context, q db.DBTX, id, ruling string, from, to workflow.State) error
}
