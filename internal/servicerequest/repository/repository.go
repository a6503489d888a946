package repository

import (
	"context"

	"equiplink/internal/db"
	"equiplink/internal/servicerequest/domain"
	"equiplink/internal/workflow"
)

// Repository defines persistence for service requests. Tenant-facing queries
// are always scoped by tenant id plus status; the unscoped cross-tenant
// listing lives in platformops.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error)
	// ListByProvider returns requests assigned to the provider tenant.
	ListByProvider(ctx context.Context, providerTenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error)
	Create(ctx context.Context, r *domain.ServiceRequest) error
	// UpdateStatusTx patches the status inside the caller's transaction,
	// conditional on the status the caller read; db.ErrStaleRow on a miss.
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
	UpdateProviderTx(ctx context.Context, q db.DBTX, id, providerTenantID string) error
}
