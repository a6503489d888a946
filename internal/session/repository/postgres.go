package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"equiplink/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(tenant_id, ''), expires_at, revoked_at, last_seen_at,
		       refresh_jti, refresh_token_hash, created_at
		FROM sessions WHERE id = $1`, id)
	var s domain.Session
	var revokedAt, lastSeenAt sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.TenantID, &s.ExpiresAt, &revokedAt, &lastSeenAt,
		&s.RefreshJti, &s.RefreshTokenHash, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	if lastSeenAt.Valid {
		t := lastSeenAt.Time
		s.LastSeenAt = &t
	}
	return &s, nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, tenant_id, expires_at, refresh_jti, refresh_token_hash, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`,
		s.ID, s.UserID, s.TenantID, s.ExpiresAt, s.RefreshJti, s.RefreshTokenHash, s.CreatedAt,
	)
	return err
}

// Revoke marks the session revoked. Revoking an already-revoked session is a no-op.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

// RevokeAllSessionsByUser revokes every active session of the user. Used on
// refresh token reuse detection.
func (r *PostgresRepository) RevokeAllSessionsByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	return err
}

// UpdateLastSeen records session activity.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

// UpdateTenant switches the session's active tenant. Empty tenantID clears it.
func (r *PostgresRepository) UpdateTenant(ctx context.Context, id, tenantID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET tenant_id = NULLIF($2, '') WHERE id = $1`, id, tenantID)
	return err
}

// UpdateRefreshToken rotates the refresh token binding for the session.
func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET refresh_jti = $2, refresh_token_hash = $3 WHERE id = $1`,
		sessionID, jti, refreshTokenHash)
	return err
}
