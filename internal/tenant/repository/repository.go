package repository

import (
	"context"

	"equiplink/internal/db"
	"equiplink/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetKind(ctx context.Context, id string) (domain.Kind, error)
	List(ctx context.Context, limit, offset int32) ([]*domain.Tenant, error)
	CreateTx(ctx context.Context, q db.DBTX, t *domain.Tenant) error
	UpdateLifecycleTx(ctx context.Context, q db.DBTX, id string, status domain.LifecycleStatus) (*domain.Tenant, error)
}
