package repository

import (
	"context"

	"equiplink/internal/db"
	"equiplink/internal/equipment/domain"
	"equiplink/internal/workflow"
)

// Repository defines persistence for equipment and its failure reports.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Equipment, error)
	Create(ctx context.Context, e *domain.Equipment) error
	// UpdateStatusTx patches the status inside the caller's transaction, which
	// also carries the matching history and audit rows. The write is
	// conditional on the status the caller read; db.ErrStaleRow on a miss.
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
	CreateReportTx(ctx context.Context, q db.DBTX, r *domain.FailureReport) error
	ListReportsByEquipment(ctx context.Context, equipmentID string) ([]*domain.FailureReport, error)
}
