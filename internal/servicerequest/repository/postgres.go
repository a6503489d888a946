package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equiplink/internal/db"
	"equiplink/internal/servicerequest/domain"
	"equiplink/internal/workflow"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a service request repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `
	SELECT id, tenant_id, COALESCE(equipment_id, ''), COALESCE(provider_tenant_id, ''),
	       title, description, urgency, status, created_at, updated_at
	FROM service_requests`

// GetByID returns the request for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	sr, err := scanRequestRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sr, nil
}

// ListByTenant returns the hospital tenant's requests, optionally filtered by
// status, newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error) {
	return r.list(ctx, "tenant_id", tenantID, status, limit, offset)
}

// ListByProvider returns requests assigned to the provider tenant.
func (r *PostgresRepository) ListByProvider(ctx context.Context, providerTenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error) {
	return r.list(ctx, "provider_tenant_id", providerTenantID, status, limit, offset)
}

func (r *PostgresRepository) list(ctx context.Context, col, tenantID string, status workflow.State, limit, offset int32) ([]*domain.ServiceRequest, error) {
	query := selectColumns + ` WHERE ` + col + ` = $1`
	args := []any{tenantID}
	if status != "" {
		args = append(args, string(status))
		query += ` AND status = $2`
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ServiceRequest
	for rows.Next() {
		sr, err := scanRequestRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// Create persists the request.
func (r *PostgresRepository) Create(ctx context.Context, sr *domain.ServiceRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_requests (id, tenant_id, equipment_id, provider_tenant_id,
		                              title, description, urgency, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`,
		sr.ID, sr.TenantID, sr.EquipmentID, sr.ProviderTenantID,
		sr.Title, sr.Description, string(sr.Urgency), string(sr.Status), sr.CreatedAt, sr.UpdatedAt,
	)
	return err
}

// UpdateStatusTx patches the status inside the caller's transaction. The
// write is conditional on the status the caller validated against; a
// concurrent transition that committed first leaves no matching row and the
// patch fails with db.ErrStaleRow instead of silently double-applying.
func (r *PostgresRepository) UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error {
	res, err := q.ExecContext(ctx,
		`UPDATE service_requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrStaleRow
	}
	return nil
}

// UpdateProviderTx reassigns the request to another provider tenant inside
// the caller's transaction.
func (r *PostgresRepository) UpdateProviderTx(ctx context.Context, q db.DBTX, id, providerTenantID string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE service_requests SET provider_tenant_id = NULLIF($2, ''), updated_at = $3 WHERE id = $1`,
		id, providerTenantID, time.Now().UTC())
	return err
}

func scanRequestRow(row *sql.Row) (*domain.ServiceRequest, error) {
	var sr domain.ServiceRequest
	var urgency, status string
	err := row.Scan(&sr.ID, &sr.TenantID, &sr.EquipmentID, &sr.ProviderTenantID,
		&sr.Title, &sr.Description, &urgency, &status, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sr.Urgency = domain.Urgency(urgency)
	sr.Status = workflow.State(status)
	return &sr, nil
}

func scanRequestRows(rows *sql.Rows) (*domain.ServiceRequest, error) {
	var sr domain.ServiceRequest
	var urgency, status string
	err := rows.Scan(&sr.ID, &sr.TenantID, &sr.EquipmentID, &sr.ProviderTenantID,
		&sr.Title, &sr.Description, &urgency, &status, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sr.Urgency = domain.Urgency(urgency)
	sr.Status = workflow.State(status)
	return &sr, nil
}
