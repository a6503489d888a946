package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"equiplink/internal/audit/domain"
	"equiplink/internal/db"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// AppendTx inserts the entry inside the caller's transaction.
func (r *PostgresRepository) AppendTx(ctx context.Context, q db.DBTX, e *domain.Entry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_log (id, tenant_id, actor_id, action, resource_type, resource_id,
		                       previous_values, new_values, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.TenantID, e.ActorID, e.Action, e.ResourceType, e.ResourceID,
		nullableJSON(e.PreviousValues), nullableJSON(e.NewValues), e.CreatedAt,
	)
	return err
}

// List returns entries matching the filter, newest first, paginated.
func (r *PostgresRepository) List(ctx context.Context, f Filter, limit, offset int32) ([]*domain.Entry, error) {
	var conds []string
	var args []any
	add := func(col, val string) {
		if val != "" {
			args = append(args, val)
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("tenant_id", f.TenantID)
	add("actor_id", f.ActorID)
	add("action", f.Action)
	add("resource_type", f.ResourceType)
	add("resource_id", f.ResourceID)

	query := `SELECT id, COALESCE(tenant_id, ''), actor_id, action, resource_type, resource_id,
	                 previous_values, new_values, created_at
	          FROM audit_log`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		var prev, next sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID,
			&prev, &next, &e.CreatedAt); err != nil {
			return nil, err
		}
		if prev.Valid {
			e.PreviousValues = []byte(prev.String)
		}
		if next.Valid {
			e.NewValues = []byte(next.String)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
