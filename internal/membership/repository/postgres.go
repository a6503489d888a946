package repository

import (
	"context"
	"database/sql"
	"errors"

	"equiplink/internal/db"
	"equiplink/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndTenant returns the user's membership in the tenant, or nil if none.
func (r *PostgresRepository) GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, tenant_id, role, created_at
		FROM memberships WHERE user_id = $1 AND tenant_id = $2`, userID, tenantID)
	var m domain.Membership
	var role string
	err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}

// ListByTenant returns all memberships of the tenant.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, tenant_id, role, created_at
		FROM memberships WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.TenantID, &role, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// CreateTx persists the membership inside the caller's transaction.
func (r *PostgresRepository) CreateTx(ctx context.Context, q db.DBTX, m *domain.Membership) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO memberships (id, tenant_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.TenantID, m.UserID, string(m.Role), m.CreatedAt,
	)
	return err
}

// DeleteByUserAndTenantTx removes the membership inside the caller's transaction.
func (r *PostgresRepository) DeleteByUserAndTenantTx(ctx context.Context, q db.DBTX, userID, tenantID string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM memberships WHERE user_id = $1 AND tenant_id = $2`, userID, tenantID)
	return err
}

// UpdateRoleTx sets the membership role inside the caller's transaction.
// Returns the updated membership, or nil if no such membership exists.
func (r *PostgresRepository) UpdateRoleTx(ctx context.Context, q db.DBTX, userID, tenantID string, role domain.Role) (*domain.Membership, error) {
	row := q.QueryRowContext(ctx, `
		UPDATE memberships SET role = $3
		WHERE user_id = $1 AND tenant_id = $2
		RETURNING id, user_id, tenant_id, role, created_at`,
		userID, tenantID, string(role))
	var m domain.Membership
	var got string
	err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &got, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(got)
	return &m, nil
}

// LockOwnersTx locks the tenant's owner rows (FOR UPDATE) and returns their
// count. Concurrent removals of the same tenant's owners queue on these row
// locks, so the count each one sees reflects the other's committed write.
func (r *PostgresRepository) LockOwnersTx(ctx context.Context, q db.DBTX, tenantID string) (int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM memberships WHERE tenant_id = $1 AND role = 'owner' FOR UPDATE`, tenantID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		count++
	}
	return count, rows.Err()
}
