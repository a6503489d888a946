package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equiplink/internal/db"
	"equiplink/internal/payment/domain"
	"equiplink/internal/workflow"
)

const selectColumns = `id, tenant_id, service_request_id, amount_cents, currency, status, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a payment repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the payment for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListByTenant returns the tenant's payments, optionally filtered by status,
// newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Payment, error) {
	query := `SELECT ` + selectColumns + ` FROM payments WHERE tenant_id = $1`
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
	return collect(rows)
}

// ListByServiceRequest returns all payments filed against the request, oldest
// first.
func (r *PostgresRepository) ListByServiceRequest(ctx context.Context, serviceRequestID string) ([]*domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM payments WHERE service_request_id = $1 ORDER BY created_at ASC`,
		serviceRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Create persists a new payment.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, tenant_id, service_request_id, amount_cents, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.TenantID, p.ServiceRequestID, p.AmountCents, p.Currency, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// UpdateStatusTx patches the status inside the caller's transaction,
// conditional on the status the caller validated against. A concurrent
// settlement that committed first leaves no matching row; the patch fails
// with db.ErrStaleRow.
func (r *PostgresRepository) UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error {
	res, err := q.ExecContext(ctx,
		`UPDATE payments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var status string
	if err := row.Scan(&p.ID, &p.TenantID, &p.ServiceRequestID, &p.AmountCents, &p.Currency, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = workflow.State(status)
	return &p, nil
}

func collect(rows *sql.Rows) ([]*domain.Payment, error) {
	var out []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
