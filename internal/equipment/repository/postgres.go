package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equiplink/internal/db"
	"equiplink/internal/equipment/domain"
	"equiplink/internal/workflow"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an equipment repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the equipment for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, serial_number, status, created_at, updated_at
		FROM equipment WHERE id = $1`, id)
	return scanEquipment(row)
}

// ListByTenant returns the tenant's equipment, optionally filtered by status,
// newest first. Always indexed by (tenant_id, status); never a full scan.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Equipment, error) {
	query := `
		SELECT id, tenant_id, name, serial_number, status, created_at, updated_at
		FROM equipment WHERE tenant_id = $1`
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
	var out []*domain.Equipment
	for rows.Next() {
		e, err := scanEquipmentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create persists the equipment.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Equipment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO equipment (id, tenant_id, name, serial_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.TenantID, e.Name, e.SerialNumber, string(e.Status), e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// UpdateStatusTx patches the status inside the caller's transaction,
// conditional on the status the caller validated against. A concurrent
// transition that committed first leaves no matching row; the patch fails
// with db.ErrStaleRow.
func (r *PostgresRepository) UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error {
	res, err := q.ExecContext(ctx,
		`UPDATE equipment SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
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

// CreateReportTx persists the failure report inside the caller's transaction.
func (r *PostgresRepository) CreateReportTx(ctx context.Context, q db.DBTX, rep *domain.FailureReport) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO equipment_failure_reports (id, tenant_id, equipment_id, urgency, description, reported_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rep.ID, rep.TenantID, rep.EquipmentID, string(rep.Urgency), rep.Description, rep.ReportedBy, rep.CreatedAt,
	)
	return err
}

// ListReportsByEquipment returns the equipment's failure reports, newest first.
func (r *PostgresRepository) ListReportsByEquipment(ctx context.Context, equipmentID string) ([]*domain.FailureReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, equipment_id, urgency, description, reported_by, created_at
		FROM equipment_failure_reports WHERE equipment_id = $1
		ORDER BY created_at DESC`, equipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.FailureReport
	for rows.Next() {
		var rep domain.FailureReport
		var urgency string
		if err := rows.Scan(&rep.ID, &rep.TenantID, &rep.EquipmentID, &urgency, &rep.Description, &rep.ReportedBy, &rep.CreatedAt); err != nil {
			return nil, err
		}
		rep.Urgency = domain.Urgency(urgency)
		out = append(out, &rep)
	}
	return out, rows.Err()
}

func scanEquipment(row *sql.Row) (*domain.Equipment, error) {
	var e domain.Equipment
	var status string
	err := row.Scan(&e.ID, &e.TenantID, &e.Name, &e.SerialNumber, &status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.Status = workflow.State(status)
	return &e, nil
}

func scanEquipmentRows(rows *sql.Rows) (*domain.Equipment, error) {
	var e domain.Equipment
	var status string
	if err := rows.Scan(&e.ID, &e.TenantID, &e.Name, &e.SerialNumber, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Status = workflow.State(status)
	return &e, nil
}
