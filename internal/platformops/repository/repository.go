package repository

import (
	"context"

	"equiplink/internal/platformops/domain"
	"equiplink/internal/workflow"
)

// Repository defines the cross-tenant read model. Writes stay in the per-area
// repositories; this one only joins across tenants for the platform console.
type Repository interface {
	// ListRequests returns requests across all tenants with tenant names
	// resolved, oldest-updated first so stalled work surfaces on top.
	ListRequests(ctx context.Context, status workflow.State, limit, offset int32) ([]*domain.RequestOverview, error)
}
