package repository

import (
	"context"
	"database/sql"

	"equiplink/internal/db"
	"equiplink/internal/workflow"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a history repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// AppendTx inserts the record inside the caller's transaction.
func (r *PostgresRepository) AppendTx(ctx context.Context, q db.DBTX, rec *workflow.HistoryRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO status_history (id, entity_kind, entity_id, tenant_id,
		                            previous_status, new_status, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, string(rec.EntityKind), rec.EntityID, rec.TenantID,
		string(rec.PreviousStatus), string(rec.NewStatus), rec.PerformedBy, rec.CreatedAt,
	)
	return err
}

// ListByEntity returns the entity's transition history, oldest first.
func (r *PostgresRepository) ListByEntity(ctx context.Context, kind workflow.Kind, entityID string) ([]*workflow.HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_kind, entity_id, tenant_id, previous_status, new_status, performed_by, created_at
		FROM status_history
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at`, string(kind), entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*workflow.HistoryRecord
	for rows.Next() {
		var rec workflow.HistoryRecord
		var kind, prev, next string
		if err := rows.Scan(&rec.ID, &kind, &rec.EntityID, &rec.TenantID, &prev, &next, &rec.PerformedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.EntityKind = workflow.Kind(kind)
		rec.PreviousStatus = workflow.State(prev)
		rec.NewStatus = workflow.State(next)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
