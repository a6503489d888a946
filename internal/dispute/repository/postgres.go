package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equiplink/internal/db"
	"equiplink/internal/dispute/domain"
	"equiplink/internal/workflow"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a dispute repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the dispute for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, service_request_id, reason, ruling, status, created_at, updated_at
		FROM disputes WHERE id = $1`, id)
	var d domain.Dispute
	var status string
	err := row.Scan(&d.ID, &d.TenantID, &d.ServiceRequestID, &d.Reason, &d.Ruling, &status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.Status = workflow.State(status)
	return &d, nil
}

// ListByTenant returns the tenant's disputes, optionally filtered by status,
// newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Dispute, error) {
	query := `
		SELECT id, tenant_id, service_request_id, reason, ruling, status, created_at, updated_at
		FROM disputes WHERE tenant_id = $1`
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
	var out []*domain.Dispute
	for rows.Next() {
		var d domain.Dispute
		var st string
		if err := rows.Scan(&d.ID, &d.TenantID, &d.ServiceRequestID, &d.Reason, &d.Ruling, &st, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Status = workflow.State(st)
		out = append(out, &d)
	}
	return out, rows.Err()
}

// CreateTx persists the dispute inside the caller's transaction, which also
// carries the service request's disputed transition.
func (r *PostgresRepository) CreateTx(ctx context.Context, q db.DBTX, d *domain.Dispute) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO disputes (id, tenant_id, service_request_id, reason, ruling, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.TenantID, d.ServiceRequestID, d.Reason, d.Ruling, string(d.Status), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// UpdateStatusTx patches the status inside the caller's transaction,
// conditional on the status the caller validated against. A concurrent
// transition that committed first leaves no matching row; the patch fails
// with db.ErrStaleRow.
func (r *PostgresRepository) UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error {
	res, err := q.ExecContext(ctx,
		`UPDATE disputes SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
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

// SetRulingTx records the ruling and status inside the caller's transaction,
// with the same stale-row guard as UpdateStatusTx so two arbiters cannot both
// rule on one dispute.
func (r *PostgresRepository) SetRulingTx(ctx context.Context, q db.DBTX, id, ruling string, from, to workflow.State) error {
	res, err := q.ExecContext(ctx,
		`UPDATE disputes SET ruling = $3, status = $4, updated_at = $5 WHERE id = $1 AND status = $2`,
		id, string(from), ruling, string(to), time.Now().UTC())
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
