package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"equiplink/internal/apperr"
	"equiplink/internal/audit"
	auditdomain "equiplink/internal/audit/domain"
	"equiplink/internal/db"
	identitydomain "equiplink/internal/identity/domain"
	"equiplink/internal/membership/domain"
	"equiplink/internal/notification"
	"equiplink/internal/platform/rbac"
)

// MembershipRepo is the membership repository surface needed by the service.
type MembershipRepo interface {
	GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Membership, error)
	CreateTx(ctx context.Context, q db.DBTX, m *domain.Membership) error
	DeleteByUserAndTenantTx(ctx context.Context, q db.DBTX, userID, tenantID string) error
	UpdateRoleTx(ctx context.Context, q db.DBTX, userID, tenantID string, role domain.Role) (*domain.Membership, error)
	LockOwnersTx(ctx context.Context, q db.DBTX, tenantID string) (int, error)
}

// UserRepo is the minimal user repository needed by the service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*identitydomain.User, error)
}

// Service implements membership management: add, role change, removal, list.
// Every mutation runs the permission matrix first, then executes the write,
// the owner-count guard where one applies, and the audit append inside a
// single transaction.
type Service struct {
	db          db.TxRunner
	memberships MembershipRepo
	users       UserRepo
	recorder    *audit.Recorder
	events      notification.Producer
}

// NewService returns a membership Service with the given dependencies.
// events may be nil.
func NewService(runner db.TxRunner, memberships MembershipRepo, users UserRepo, recorder *audit.Recorder, events notification.Producer) *Service {
	return &Service{
		db:          runner,
		memberships: memberships,
		users:       users,
		recorder:    recorder,
		events:      events,
	}
}

type roleValues struct {
	Role string `json:"role"`
}

// List returns the memberships of the actor's active tenant. Platform roles
// may list any tenant by passing tenantID; everyone else lists their own.
func (s *Service) List(ctx context.Context, actor identitydomain.Actor, tenantID string) ([]*domain.Membership, error) {
	const op = "membership.Service.List"
	if tenantID == "" {
		tenantID = actor.TenantID
	}
	if tenantID == "" {
		return nil, apperr.NoActiveTenant(op)
	}
	if !rbac.CanReadTenantResource(actor, tenantID) {
		return nil, apperr.NotFound(op, "tenant not found")
	}
	out, err := s.memberships.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// Add creates a membership for the user with the given email in the actor's
// tenant. Owners may grant any role; admins only the member role.
func (s *Service) Add(ctx context.Context, actor identitydomain.Actor, email string, role domain.Role) (*domain.Membership, error) {
	const op = "membership.Service.Add"
	tenantID := actor.TenantID
	if tenantID == "" {
		return nil, apperr.NoActiveTenant(op)
	}
	if !role.Valid() {
		return nil, apperr.Invalid(op, "invalid role")
	}
	if !rbac.CanAssignRole(actor.OrgRole, role) {
		return nil, apperr.Forbidden(op, "insufficient role to grant "+string(role))
	}
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if user == nil {
		return nil, apperr.NotFound(op, "no user with that email")
	}
	existing, err := s.memberships.GetByUserAndTenant(ctx, user.ID, tenantID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if existing != nil {
		return nil, apperr.Conflict(op, "user is already a member")
	}
	m := &domain.Membership{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TenantID:  tenantID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.memberships.CreateTx(ctx, tx, m); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, tenantID, actor.UserID,
			auditdomain.ActionMemberAdded, "membership", m.ID,
			nil, roleValues{Role: string(role)})
		return err
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	s.emit(ctx, actor, tenantID, m.ID, map[string]string{"change": "added", "role": string(role)})
	return m, nil
}

// ChangeRole sets the target user's role in the actor's tenant. Demoting an
// owner re-counts owners under lock inside the same transaction as the
// update; the last owner cannot be demoted.
func (s *Service) ChangeRole(ctx context.Context, actor identitydomain.Actor, targetUserID string, newRole domain.Role) (*domain.Membership, error) {
	const op = "membership.Service.ChangeRole"
	tenantID := actor.TenantID
	if tenantID == "" {
		return nil, apperr.NoActiveTenant(op)
	}
	if !newRole.Valid() {
		return nil, apperr.Invalid(op, "invalid role")
	}
	target, err := s.memberships.GetByUserAndTenant(ctx, targetUserID, tenantID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if target == nil {
		return nil, apperr.NotFound(op, "member not found")
	}
	if !rbac.CanManageMember(actor.OrgRole, target.Role, actor.UserID, targetUserID) {
		return nil, apperr.Forbidden(op, "cannot manage this member")
	}
	if !rbac.CanAssignRole(actor.OrgRole, newRole) {
		return nil, apperr.Forbidden(op, "insufficient role to grant "+string(newRole))
	}
	if target.Role == newRole {
		return target, nil
	}

	var updated *domain.Membership
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if target.Role == domain.RoleOwner {
			count, err := s.memberships.LockOwnersTx(ctx, tx, tenantID)
			if err != nil {
				return err
			}
			if count <= 1 {
				return apperr.LastOwnerViolation(op)
			}
		}
		var err error
		updated, err = s.memberships.UpdateRoleTx(ctx, tx, targetUserID, tenantID, newRole)
		if err != nil {
			return err
		}
		if updated == nil {
			return apperr.NotFound(op, "member not found")
		}
		_, err = s.recorder.Append(ctx, tx, tenantID, actor.UserID,
			auditdomain.ActionRoleChanged, "membership", updated.ID,
			roleValues{Role: string(target.Role)}, roleValues{Role: string(newRole)})
		return err
	})
	if err != nil {
		return nil, wrapTxErr(op, err)
	}
	s.emit(ctx, actor, tenantID, updated.ID, map[string]string{
		"change": "role_changed", "from": string(target.Role), "to": string(newRole),
	})
	return updated, nil
}

// Remove deletes the target user's membership in the actor's tenant. Removing
// an owner re-counts owners under lock; the last owner cannot be removed.
// Self-removal is denied by the permission matrix for every role.
func (s *Service) Remove(ctx context.Context, actor identitydomain.Actor, targetUserID string) error {
	const op = "membership.Service.Remove"
	tenantID := actor.TenantID
	if tenantID == "" {
		return apperr.NoActiveTenant(op)
	}
	target, err := s.memberships.GetByUserAndTenant(ctx, targetUserID, tenantID)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if target == nil {
		return apperr.NotFound(op, "member not found")
	}
	if !rbac.CanManageMember(actor.OrgRole, target.Role, actor.UserID, targetUserID) {
		return apperr.Forbidden(op, "cannot manage this member")
	}

	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if target.Role == domain.RoleOwner {
			count, err := s.memberships.LockOwnersTx(ctx, tx, tenantID)
			if err != nil {
				return err
			}
			if count <= 1 {
				return apperr.LastOwnerViolation(op)
			}
		}
		if err := s.memberships.DeleteByUserAndTenantTx(ctx, tx, targetUserID, tenantID); err != nil {
			return err
		}
		_, err := s.recorder.Append(ctx, tx, tenantID, actor.UserID,
			auditdomain.ActionMemberRemoved, "membership", target.ID,
			roleValues{Role: string(target.Role)}, nil)
		return err
	})
	if err != nil {
		return wrapTxErr(op, err)
	}
	s.emit(ctx, actor, tenantID, target.ID, map[string]string{"change": "removed"})
	return nil
}

func (s *Service) emit(ctx context.Context, actor identitydomain.Actor, tenantID, membershipID string, detail map[string]string) {
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeMembershipChanged,
		TenantID:     tenantID,
		ActorID:      actor.UserID,
		ResourceType: "membership",
		ResourceID:   membershipID,
		Detail:       detail,
		OccurredAt:   time.Now().UTC(),
	})
}

// wrapTxErr keeps coded errors raised inside the transaction intact and wraps
// everything else as internal.
func wrapTxErr(op string, err error) error {
	if apperr.ErrCode(err) != apperr.EInternal {
		return err
	}
	return apperr.Internal(op, err)
}
