package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"equiplink/internal/db"
	"equiplink/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `id, name, kind, lifecycle_status, created_at, updated_at`

// GetByID returns the tenant for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// GetKind returns the kind of the tenant, or "" if the tenant does not exist.
func (r *PostgresRepository) GetKind(ctx context.Context, id string) (domain.Kind, error) {
	var kind string
	err := r.db.QueryRowContext(ctx, `SELECT kind FROM tenants WHERE id = $1`, id).Scan(&kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return domain.Kind(kind), nil
}

// List returns tenants ordered by creation time, paginated. Platform-only caller.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int32) ([]*domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Tenant
	for rows.Next() {
		t, err := scanTenantRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTx persists the tenant inside the caller's transaction so tenant
// creation and the creator's owner membership commit together.
func (r *PostgresRepository) CreateTx(ctx context.Context, q db.DBTX, t *domain.Tenant) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tenants (id, name, kind, lifecycle_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, string(t.Kind), string(t.LifecycleStatus), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// UpdateLifecycleTx sets the tenant lifecycle status inside the caller's
// transaction (paired with its audit append). Returns the updated tenant, or
// nil if the tenant does not exist.
func (r *PostgresRepository) UpdateLifecycleTx(ctx context.Context, q db.DBTX, id string, status domain.LifecycleStatus) (*domain.Tenant, error) {
	row := q.QueryRowContext(ctx, `
		UPDATE tenants SET lifecycle_status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, string(status), time.Now().UTC(),
	)
	return scanTenant(row)
}

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	var kind, status string
	err := row.Scan(&t.ID, &t.Name, &kind, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Kind = domain.Kind(kind)
	t.LifecycleStatus = domain.LifecycleStatus(status)
	return &t, nil
}

func scanTenantRows(rows *sql.Rows) (*domain.Tenant, error) {
	var t domain.Tenant
	var kind, status string
	if err := rows.Scan(&t.ID, &t.Name, &kind, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Kind = domain.Kind(kind)
	t.LifecycleStatus = domain.LifecycleStatus(status)
	return &t, nil
}
