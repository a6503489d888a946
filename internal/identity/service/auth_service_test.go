package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"equiplink/internal/apperr"
	identitydomain "equiplink/internal/identity/domain"
	membershipdomain "equiplink/internal/membership/domain"
	"equiplink/internal/security"
	sessiondomain "equiplink/internal/session/domain"
	tenantdomain "equiplink/internal/tenant/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*identitydomain.User
	byEmail map[string]*identitydomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*identitydomain.User{}, byEmail: map[string]*identitydomain.User{}}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*identitydomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*identitydomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) Create(ctx context.Context, u *identitydomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: map[string]*sessiondomain.Session{}}
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok && s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
	}
	return nil
}

func (r *memSessionRepo) RevokeAllSessionsByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.m {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (r *memSessionRepo) UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[sessionID]; ok {
		s.RefreshJti = jti
		s.RefreshTokenHash = refreshTokenHash
	}
	return nil
}

func (r *memSessionRepo) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.LastSeenAt = &at
	}
	return nil
}

func (r *memSessionRepo) UpdateTenant(ctx context.Context, id, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.TenantID = tenantID
	}
	return nil
}

type memMembershipRepo struct {
	mu sync.Mutex
	m  map[string]*membershipdomain.Membership // userID:tenantID
}

func newMemMembershipRepo() *memMembershipRepo {
	return &memMembershipRepo{m: map[string]*membershipdomain.Membership{}}
}

func (r *memMembershipRepo) put(m *membershipdomain.Membership) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[m.UserID+":"+m.TenantID] = m
}

func (r *memMembershipRepo) GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*membershipdomain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[userID+":"+tenantID], nil
}

type memTenantRepo struct {
	mu sync.Mutex
	m  map[string]*tenantdomain.Tenant
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{m: map[string]*tenantdomain.Tenant{}}
}

func (r *memTenantRepo) put(t *tenantdomain.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[t.ID] = t
}

func (r *memTenantRepo) GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

type authFixture struct {
	svc         *AuthService
	users       *memUserRepo
	sessions    *memSessionRepo
	memberships *memMembershipRepo
	tenants     *memTenantRepo
	tokens      *security.TokenProvider
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens := testTokens(t)
	f := &authFixture{
		users:       newMemUserRepo(),
		sessions:    newMemSessionRepo(),
		memberships: newMemMembershipRepo(),
		tenants:     newMemTenantRepo(),
		tokens:      tokens,
	}
	f.svc = NewAuthService(f.users, f.sessions, f.memberships, f.tenants, security.NewHasher(4), tokens, 24*time.Hour)
	return f
}

const testPassword = "correct-horse-battery"

func (f *authFixture) register(t *testing.T, email string) string {
	t.Helper()
	res, err := f.svc.Register(context.Background(), email, testPassword, "Test User")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return res.UserID
}

func (f *authFixture) addTenant(id string, kind tenantdomain.Kind, status tenantdomain.LifecycleStatus) {
	f.tenants.put(&tenantdomain.Tenant{ID: id, Name: id, Kind: kind, LifecycleStatus: status})
}

func (f *authFixture) addMembership(userID, tenantID string, role membershipdomain.Role) {
	f.memberships.put(&membershipdomain.Membership{ID: userID + ":" + tenantID, UserID: userID, TenantID: tenantID, Role: role})
}

func TestAuthService_RegisterAndLogin_NoTenant(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com")

	res, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("tokens missing")
	}
	if res.TenantID != "" {
		t.Errorf("tenant = %q, want none", res.TenantID)
	}
	id, _, err := f.tokens.ValidateAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if id.TenantID != "" || id.OrgRole != "" {
		t.Errorf("claims = tenant %q role %q, want empty", id.TenantID, id.OrgRole)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com")

	_, err := f.svc.Register(context.Background(), "alice@example.com", testPassword, "Alice Again")
	if code := apperr.ErrCode(err); code != apperr.EConflict {
		t.Errorf("code = %q, want %q", code, apperr.EConflict)
	}
}

func TestAuthService_Login_WithTenantStampsRole(t *testing.T) {
	f := newAuthFixture(t)
	userID := f.register(t, "alice@example.com")
	f.addTenant("tenant-1", tenantdomain.KindHospital, tenantdomain.LifecycleActive)
	f.addMembership(userID, "tenant-1", membershipdomain.RoleOwner)

	res, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, "tenant-1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, _, err := f.tokens.ValidateAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if id.TenantID != "tenant-1" || id.OrgRole != "owner" {
		t.Errorf("claims = tenant %q role %q", id.TenantID, id.OrgRole)
	}
}

func TestAuthService_Login_NonMemberTenantDenied(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com")
	f.addTenant("tenant-1", tenantdomain.KindHospital, tenantdomain.LifecycleActive)

	_, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, "tenant-1")
	if code := apperr.ErrCode(err); code != apperr.EForbidden {
		t.Errorf("code = %q, want %q", code, apperr.EForbidden)
	}
}

func TestAuthService_Login_SuspendedTenantDenied(t *testing.T) {
	f := newAuthFixture(t)
	userID := f.register(t, "alice@example.com")
	f.addTenant("tenant-1", tenantdomain.KindHospital, tenantdomain.LifecycleSuspended)
	f.addMembership(userID, "tenant-1", membershipdomain.RoleOwner)

	_, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, "tenant-1")
	if code := apperr.ErrCode(err); code != apperr.EForbidden {
		t.Errorf("code = %q, want %q", code, apperr.EForbidden)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com")

	_, err := f.svc.Login(context.Background(), "alice@example.com", "wrong-password-entirely", "")
	if code := apperr.ErrCode(err); code != apperr.EUnauthenticated {
		t.Errorf("code = %q, want %q", code, apperr.EUnauthenticated)
	}
}

func TestAuthService_Refresh_RotatesAndRestampsRoles(t *testing.T) {
	f := newAuthFixture(t)
	userID := f.register(t, "alice@example.com")
	f.addTenant("tenant-1", tenantdomain.KindProvider, tenantdomain.LifecycleActive)
	f.addMembership(userID, "tenant-1", membershipdomain.RoleAdmin)

	login, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, "tenant-1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Demote between login and refresh; the refreshed access token must carry
	// the current role, not the one stamped at login.
	f.addMembership(userID, "tenant-1", membershipdomain.RoleMember)

	res, err := f.svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.RefreshToken == login.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	id, _, err := f.tokens.ValidateAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if id.OrgRole != "member" {
		t.Errorf("refreshed role = %q, want member", id.OrgRole)
	}
}

func TestAuthService_Refresh_ReuseRevokesAllSessions(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com")

	login, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), login.RefreshToken); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}

	// Presenting the pre-rotation token again is reuse.
	_, err = f.svc.Refresh(context.Background(), login.RefreshToken)
	if code := apperr.ErrCode(err); code != apperr.EUnauthenticated {
		t.Fatalf("code = %q, want %q", code, apperr.EUnauthenticated)
	}
	sess, _ := f.sessions.GetByID(context.Background(), login2SessionID(t, f, login))
	if sess == nil || sess.RevokedAt == nil {
		t.Error("session not revoked after reuse detection")
	}
}

func login2SessionID(t *testing.T, f *authFixture, res *AuthResult) string {
	t.Helper()
	sessionID, _, _, err := f.tokens.ValidateRefresh(res.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	return sessionID
}

func TestAuthService_SwitchTenant(t *testing.T) {
	f := newAuthFixture(t)
	userID := f.register(t, "alice@example.com")
	f.addTenant("tenant-1", tenantdomain.KindHospital, tenantdomain.LifecycleTrial)
	f.addMembership(userID, "tenant-1", membershipdomain.RoleOwner)

	login, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	actor := identitydomain.Actor{UserID: userID, SessionID: login2SessionID(t, f, login)}

	res, err := f.svc.SwitchTenant(context.Background(), actor, "tenant-1")
	if err != nil {
		t.Fatalf("SwitchTenant: %v", err)
	}
	id, _, err := f.tokens.ValidateAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if id.TenantID != "tenant-1" || id.OrgRole != "owner" {
		t.Errorf("claims = tenant %q role %q", id.TenantID, id.OrgRole)
	}
	sess, _ := f.sessions.GetByID(context.Background(), actor.SessionID)
	if sess.TenantID != "tenant-1" {
		t.Errorf("session tenant = %q, want tenant-1", sess.TenantID)
	}
}

func TestAuthService_Logout_RevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com")

	login, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.svc.Logout(context.Background(), identitydomain.Actor{}, login.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err = f.svc.Refresh(context.Background(), login.RefreshToken)
	if code := apperr.ErrCode(err); code != apperr.EUnauthenticated {
		t.Errorf("refresh after logout code = %q, want %q", code, apperr.EUnauthenticated)
	}
}
