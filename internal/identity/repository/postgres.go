package repository

import (
	"context"
	"database/sql"
	"errors"

	"equiplink/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, name, password_hash, COALESCE(platform_role, ''), status, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create persists the user. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, platform_role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		u.ID, u.Email, u.Name, u.PasswordHash, string(u.PlatformRole), string(u.Status), u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// Update persists mutable user fields (name, platform role, status).
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, platform_role = NULLIF($3, ''), status = $4, updated_at = $5
		WHERE id = $1`,
		u.ID, u.Name, string(u.PlatformRole), string(u.Status), u.UpdatedAt,
	)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var platformRole, status string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &platformRole, &status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.PlatformRole = domain.PlatformRole(platformRole)
	u.Status = domain.UserStatus(status)
	return &u, nil
}
