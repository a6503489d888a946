package repository

import (
	"context"

	"equiplink/internal/db"
	"equiplink/internal/payment/domain"
	"equiplink/internal/workflow"
)

// Repository defines persistence for payments.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Payment, error)
	ListByServiceRequest(ctx context.Context, serviceRequestID string) ([]*domain.Payment, error)
	Create(ctx context.Context, p *domain.Payment) error
	// UpdateStatusTx patches the status inside the caller's transaction,
	// conditional on the status the caller read; db.ErrStaleRow on a miss.
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
}
