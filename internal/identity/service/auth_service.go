package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"equiplink/internal/apperr"
	identitydomain "equiplink/internal/identity/domain"
	membershipdomain "equiplink/internal/membership/domain"
	"equiplink/internal/security"
	sessiondomain "equiplink/internal/session/domain"
	tenantdomain "equiplink/internal/tenant/domain"
)

// AuthResult holds the outcome of Register (user id only), Login, Refresh, or
// SwitchTenant (tokens + identity).
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	TenantID     string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*identitydomain.User, error)
	GetByEmail(ctx context.Context, email string) (*identitydomain.User, error)
	Create(ctx context.Context, u *identitydomain.User) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAllSessionsByUser(ctx context.Context, userID string) error
	UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	UpdateTenant(ctx context.Context, id, tenantID string) error
}

// MembershipRepo is the minimal membership repository needed by the auth service.
type MembershipRepo interface {
	GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*membershipdomain.Membership, error)
}

// TenantRepo is the minimal tenant repository needed by the auth service.
type TenantRepo interface {
	GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error)
}

// AuthService implements register, login, refresh rotation, tenant switching,
// and logout. Access tokens are stamped with the active tenant, the org role
// within it, and the user's platform role at issue time; roles are re-read
// from the store at every refresh so a role change takes effect at the next
// rotation, and the platform role is never looked up by any fallback path at
// request time.
type AuthService struct {
	userRepo       UserRepo
	sessionRepo    SessionRepo
	membershipRepo MembershipRepo
	tenantRepo     TenantRepo
	hasher         *security.Hasher
	tokens         *security.TokenProvider
	refreshTTL     time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	userRepo UserRepo,
	sessionRepo SessionRepo,
	membershipRepo MembershipRepo,
	tenantRepo TenantRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		membershipRepo: membershipRepo,
		tenantRepo:     tenantRepo,
		hasher:         hasher,
		tokens:         tokens,
		refreshTTL:     refreshTTL,
	}
}

// Register creates a user with the given email and password. Returns
// AuthResult with UserID only; the caller logs in to get tokens. New users
// have no tenant and no platform role.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	const op = "identity.AuthService.Register"
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(op, email); err != nil {
		return nil, err
	}
	if err := validatePassword(op, password); err != nil {
		return nil, err
	}
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if existing != nil {
		return nil, apperr.Conflict(op, "email already registered")
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	now := time.Now().UTC()
	user := &identitydomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		Status:       identitydomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, apperr.Invalid(op, err.Error())
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &AuthResult{UserID: user.ID}, nil
}

// Login authenticates with email/password and creates a session. tenantID is
// optional: when given, the user must be a member of that tenant and the
// tenant must not be suspended; when empty, the session starts with no active
// tenant (onboarding, or a platform operator working outside any tenant).
func (s *AuthService) Login(ctx context.Context, email, password, tenantID string) (*AuthResult, error) {
	const op = "identity.AuthService.Login"
	email = strings.TrimSpace(strings.ToLower(email))
	tenantID = strings.TrimSpace(tenantID)
	if email == "" || password == "" {
		return nil, apperr.Unauthenticated(op, nil)
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if user == nil || user.Status != identitydomain.UserStatusActive {
		return nil, apperr.Unauthenticated(op, nil)
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, apperr.Unauthenticated(op, nil)
	}
	identity := security.TokenIdentity{
		UserID:       user.ID,
		PlatformRole: string(user.PlatformRole),
	}
	if tenantID != "" {
		role, err := s.resolveTenantRole(ctx, op, user.ID, tenantID)
		if err != nil {
			return nil, err
		}
		identity.TenantID = tenantID
		identity.OrgRole = string(role)
	}

	sessionID := uuid.New().String()
	refreshToken, jti, refreshExp, err := s.tokens.IssueRefresh(sessionID, user.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sessionID, identity)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		TenantID:         tenantID,
		ExpiresAt:        refreshExp,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
		UserID:       user.ID,
		TenantID:     tenantID,
	}, nil
}

// Refresh validates and rotates the refresh token. The new access token is
// stamped from the current user and membership records, not from the old
// token, so revoked roles and platform-role changes take effect here. A jti
// mismatch means the presented token was already rotated: all of the user's
// sessions are revoked (reuse detection).
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	const op = "identity.AuthService.Refresh"
	if refreshToken == "" {
		return nil, apperr.Unauthenticated(op, nil)
	}
	sessionID, jti, userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthenticated(op, err)
	}
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if sess == nil || sess.RevokedAt != nil || time.Now().UTC().After(sess.ExpiresAt) {
		return nil, apperr.Unauthenticated(op, nil)
	}
	if sess.RefreshJti != jti {
		_ = s.sessionRepo.RevokeAllSessionsByUser(ctx, userID)
		return nil, apperr.Unauthenticated(op, nil)
	}
	if sess.RefreshTokenHash != "" && !security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
		return nil, apperr.Unauthenticated(op, nil)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if user == nil || user.Status != identitydomain.UserStatusActive {
		return nil, apperr.Unauthenticated(op, nil)
	}
	identity := security.TokenIdentity{
		UserID:       user.ID,
		PlatformRole: string(user.PlatformRole),
	}
	if sess.TenantID != "" {
		role, err := s.resolveTenantRole(ctx, op, user.ID, sess.TenantID)
		if err != nil {
			return nil, err
		}
		identity.TenantID = sess.TenantID
		identity.OrgRole = string(role)
	}

	now := time.Now().UTC()
	_ = s.sessionRepo.UpdateLastSeen(ctx, sessionID, now)
	newRefresh, newJti, _, err := s.tokens.IssueRefresh(sessionID, userID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if err := s.sessionRepo.UpdateRefreshToken(ctx, sessionID, newJti, security.HashRefreshToken(newRefresh)); err != nil {
		return nil, apperr.Internal(op, err)
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sessionID, identity)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    accessExp,
		UserID:       userID,
		TenantID:     sess.TenantID,
	}, nil
}

// SwitchTenant changes the session's active tenant and issues a fresh access
// token for it. Used right after tenant creation (onboarding) and by users
// holding memberships in more than one tenant.
func (s *AuthService) SwitchTenant(ctx context.Context, actor identitydomain.Actor, tenantID string) (*AuthResult, error) {
	const op = "identity.AuthService.SwitchTenant"
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, apperr.Invalid(op, "tenant_id is required")
	}
	if actor.SessionID == "" {
		return nil, apperr.Unauthenticated(op, nil)
	}
	sess, err := s.sessionRepo.GetByID(ctx, actor.SessionID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if sess == nil || sess.RevokedAt != nil || sess.UserID != actor.UserID {
		return nil, apperr.Unauthenticated(op, nil)
	}
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if user == nil || user.Status != identitydomain.UserStatusActive {
		return nil, apperr.Unauthenticated(op, nil)
	}
	role, err := s.resolveTenantRole(ctx, op, actor.UserID, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.UpdateTenant(ctx, sess.ID, tenantID); err != nil {
		return nil, apperr.Internal(op, err)
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sess.ID, security.TokenIdentity{
		UserID:       user.ID,
		TenantID:     tenantID,
		OrgRole:      string(role),
		PlatformRole: string(user.PlatformRole),
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &AuthResult{
		AccessToken: accessToken,
		ExpiresAt:   accessExp,
		UserID:      user.ID,
		TenantID:    tenantID,
	}, nil
}

// Logout revokes the session identified by the refresh token, or by the
// actor's session when no refresh token is supplied. Unknown or already
// invalid tokens are a no-op; logout never fails the client for a stale
// credential.
func (s *AuthService) Logout(ctx context.Context, actor identitydomain.Actor, refreshToken string) error {
	if refreshToken != "" {
		sessionID, _, _, err := s.tokens.ValidateRefresh(refreshToken)
		if err != nil {
			return nil
		}
		return s.sessionRepo.Revoke(ctx, sessionID)
	}
	if actor.SessionID == "" {
		return nil
	}
	return s.sessionRepo.Revoke(ctx, actor.SessionID)
}

// resolveTenantRole checks the membership and the tenant's lifecycle before a
// tenant context is stamped into a token. Suspended tenants reject everyone
// but platform operators, who never need a tenant context to act.
func (s *AuthService) resolveTenantRole(ctx context.Context, op, userID, tenantID string) (membershipdomain.Role, error) {
	m, err := s.membershipRepo.GetByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	if m == nil {
		return "", apperr.Forbidden(op, "not a member of this tenant")
	}
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	if t == nil {
		return "", apperr.NotFound(op, "tenant not found")
	}
	if t.LifecycleStatus == tenantdomain.LifecycleSuspended {
		return "", apperr.Forbidden(op, "tenant is suspended")
	}
	return m.Role, nil
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(op, email string) error {
	if email == "" {
		return apperr.Invalid(op, "email is required")
	}
	if !emailPattern.MatchString(email) {
		return apperr.Invalid(op, "invalid email format")
	}
	return nil
}

func validatePassword(op, password string) error {
	if len(password) < 12 {
		return apperr.Invalid(op, "password must be at least 12 characters")
	}
	return nil
}
