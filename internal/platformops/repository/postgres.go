package repository

import (
	"context"
	"database/sql"
	"fmt"

	"equiplink/internal/platformops/domain"
	requestdomain "equiplink/internal/servicerequest/domain"
	"equiplink/internal/workflow"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns the cross-tenant read repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListRequests joins requests with both tenant sides. The hospital join is
// inner (a request always has an owner), the provider join is left (it may be
// unassigned).
func (r *PostgresRepository) ListRequests(ctx context.Context, status workflow.State, limit, offset int32) ([]*domain.RequestOverview, error) {
	query := `
		SELECT sr.id, sr.tenant_id, COALESCE(sr.equipment_id, ''), COALESCE(sr.provider_tenant_id, ''),
		       sr.title, sr.description, sr.urgency, sr.status, sr.created_at, sr.updated_at,
		       h.name, COALESCE(p.name, '')
		FROM service_requests sr
		JOIN tenants h ON h.id = sr.tenant_id
		LEFT JOIN tenants p ON p.id = sr.provider_tenant_id`
	var args []any
	if status != "" {
		args = append(args, string(status))
		query += ` WHERE sr.status = $1`
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY sr.updated_at ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.RequestOverview
	for rows.Next() {
		var o domain.RequestOverview
		var urgency, st string
		err := rows.Scan(
			&o.ID, &o.TenantID, &o.EquipmentID, &o.ProviderTenantID,
			&o.Title, &o.Description, &urgency, &st, &o.CreatedAt, &o.UpdatedAt,
			&o.TenantName, &o.ProviderName,
		)
		if err != nil {
			return nil, err
		}
		o.Urgency = requestdomain.Urgency(urgency)
		o.Status = workflow.State(st)
		out = append(out, &o)
	}
	return out, rows.Err()
}
