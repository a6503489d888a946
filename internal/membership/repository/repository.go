package repository

import (
	"context"

	"equiplink/internal/db"
	"equiplink/internal/membership/domain"
)

// Repository defines persistence for memberships. The Tx variants take the
// caller's querier so membership mutations, the owner-count guard, and the
// audit append share one transaction.
type Repository interface {
	GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Membership, error)
	CreateTx(ctx context.Context, q db.DBTX, m *domain.Membership) error
	DeleteByUserAndTenantTx(ctx context.Context, q db.DBTX, userID, tenantID string) error
	UpdateRoleTx(ctx context.Context, q db.DBTX, userID, tenantID string, role domain.Role) (*domain.Membership, error)
	// LockOwnersTx locks the tenant's owner rows and returns their count.
	// Must run inside the same transaction as the removal/demotion it guards;
	// the row locks serialize concurrent last-owner checks.
	LockOwnersTx(ctx context.Context, q db.DBTX, tenantID string) (int, error)
}
