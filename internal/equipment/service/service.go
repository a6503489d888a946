package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"equiplink/internal/apperr"
	"equiplink/internal/audit"
	auditdomain "equiplink/internal/audit/domain"
	"equiplink/internal/db"
	"equiplink/internal/equipment/domain"
	identitydomain "equiplink/internal/identity/domain"
	"equiplink/internal/notification"
	"equiplink/internal/platform/rbac"
	"equiplink/internal/workflow"
)

// EquipmentRepo is the equipment repository surface needed by the service.
type EquipmentRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	ListByTenant(ctx context.Context, tenantID string, status workflow.State, limit, offset int32) ([]*domain.Equipment, error)
	Create(ctx context.Context, e *domain.Equipment) error
	UpdateStatusTx(ctx context.Context, q db.DBTX, id string, from, to workflow.State) error
	CreateReportTx(ctx context.Context, q db.DBTX, r *domain.FailureReport) error
	ListReportsByEquipment(ctx context.Context, equipmentID string) ([]*domain.FailureReport, error)
}

// HistoryRepo persists transition history records.
type HistoryRepo interface {
	AppendTx(ctx context.Context, q db.DBTX, rec *workflow.HistoryRecord) error
}

// Service implements equipment management: registration, status transitions,
// and failure reports. Every status change goes through the transition table
// and writes its history and audit rows in the same transaction as the patch.
type Service struct {
	db        db.TxRunner
	equipment EquipmentRepo
	history   HistoryRepo
	recorder  *audit.Recorder
	events    notification.Producer
}

// NewService returns an equipment Service with the given dependencies.
// events may be nil.
func NewService(runner db.TxRunner, equipment EquipmentRepo, history HistoryRepo, recorder *audit.Recorder, events notification.Producer) *Service {
	return &Service{
		db:        runner,
		equipment: equipment,
		history:   history,
		recorder:  recorder,
		events:    events,
	}
}

// Create registers equipment in the actor's tenant, starting available.
func (s *Service) Create(ctx context.Context, actor identitydomain.Actor, name, serialNumber string) (*domain.Equipment, error) {
	const op = "equipment.Service.Create"
	tenantID, err := requireTenant(op, actor)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	e := &domain.Equipment{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Name:         strings.TrimSpace(name),
		SerialNumber: strings.TrimSpace(serialNumber),
		Status:       workflow.EquipmentAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.Validate(); err != nil {
		return nil, apperr.Invalid(op, err.Error())
	}
	if err := s.equipment.Create(ctx, e); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return e, nil
}

// Get returns the equipment. Cross-tenant reads by non-platform actors miss
// as not_found.
func (s *Service) Get(ctx context.Context, actor identitydomain.Actor, id string) (*domain.Equipment, error) {
	const op = "equipment.Service.Get"
	return s.visible(ctx, op, actor, id)
}

// List returns the actor's tenant's equipment, optionally filtered by status.
func (s *Service) List(ctx context.Context, actor identitydomain.Actor, status workflow.State, limit, offset int32) ([]*domain.Equipment, error) {
	const op = "equipment.Service.List"
	tenantID, err := requireTenant(op, actor)
	if err != nil {
		return nil, err
	}
	out, err := s.equipment.ListByTenant(ctx, tenantID, status, limit, offset)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// Transition moves the equipment to a new status. The status patch, its
// history record, and its audit entry commit or roll back together.
func (s *Service) Transition(ctx context.Context, actor identitydomain.Actor, id string, to workflow.State) (*domain.Equipment, error) {
	const op = "equipment.Service.Transition"
	e, err := s.visible(ctx, op, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutateTenantResource(actor, e.TenantID) {
		return nil, apperr.Forbidden(op, "cannot modify this equipment")
	}
	rec, err := workflow.Apply(op, e, to, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		return s.writeTransition(ctx, tx, actor.UserID, e, rec)
	})
	if err != nil {
		if errors.Is(err, db.ErrStaleRow) {
			return nil, apperr.Conflict(op, "equipment was changed concurrently")
		}
		return nil, apperr.Internal(op, err)
	}
	e.Status = to
	s.emitStatus(ctx, actor, e, rec)
	return e, nil
}

// ReportFailure files a failure report. High and critical reports cascade the
// equipment to damaged in the same transaction, through the same transition
// table, with its own history record. Routine reports, and reports against
// equipment already damaged, change no status.
func (s *Service) ReportFailure(ctx context.Context, actor identitydomain.Actor, equipmentID string, urgency domain.Urgency, description string) (*domain.FailureReport, error) {
	const op = "equipment.Service.ReportFailure"
	if !urgency.Valid() {
		return nil, apperr.Invalid(op, "invalid urgency")
	}
	e, err := s.visible(ctx, op, actor, equipmentID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutateTenantResource(actor, e.TenantID) {
		return nil, apperr.Forbidden(op, "cannot report on this equipment")
	}
	now := time.Now().UTC()
	rep := &domain.FailureReport{
		ID:          uuid.New().String(),
		TenantID:    e.TenantID,
		EquipmentID: e.ID,
		Urgency:     urgency,
		Description: strings.TrimSpace(description),
		ReportedBy:  actor.UserID,
		CreatedAt:   now,
	}

	var rec workflow.HistoryRecord
	cascade := urgency.Immediate() && workflow.CanTransition(workflow.KindEquipment, e.Status, workflow.EquipmentDamaged)
	if cascade {
		rec, err = workflow.Apply(op, e, workflow.EquipmentDamaged, actor.UserID, now)
		if err != nil {
			return nil, err
		}
	}
	err = s.db.InTx(ctx, func(tx db.DBTX) error {
		if err := s.equipment.CreateReportTx(ctx, tx, rep); err != nil {
			return err
		}
		if cascade {
			return s.writeTransition(ctx, tx, actor.UserID, e, rec)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrStaleRow) {
			return nil, apperr.Conflict(op, "equipment was changed concurrently")
		}
		return nil, apperr.Internal(op, err)
	}
	if cascade {
		e.Status = workflow.EquipmentDamaged
		s.emitStatus(ctx, actor, e, rec)
	}
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeFailureReported,
		TenantID:     e.TenantID,
		ActorID:      actor.UserID,
		ResourceType: "equipment",
		ResourceID:   e.ID,
		Detail:       map[string]string{"urgency": string(urgency)},
		OccurredAt:   now,
	})
	return rep, nil
}

// ListReports returns the equipment's failure reports.
func (s *Service) ListReports(ctx context.Context, actor identitydomain.Actor, equipmentID string) ([]*domain.FailureReport, error) {
	const op = "equipment.Service.ListReports"
	if _, err := s.visible(ctx, op, actor, equipmentID); err != nil {
		return nil, err
	}
	out, err := s.equipment.ListReportsByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return out, nil
}

// writeTransition writes the status patch, the history record, and the audit
// entry using the caller's transaction.
func (s *Service) writeTransition(ctx context.Context, tx db.DBTX, actorID string, e *domain.Equipment, rec workflow.HistoryRecord) error {
	if err := s.equipment.UpdateStatusTx(ctx, tx, e.ID, rec.PreviousStatus, rec.NewStatus); err != nil {
		return err
	}
	if err := s.history.AppendTx(ctx, tx, &rec); err != nil {
		return err
	}
	_, err := s.recorder.Append(ctx, tx, e.TenantID, actorID,
		auditdomain.TransitionAction(string(workflow.KindEquipment)), "equipment", e.ID,
		statusValues{Status: string(rec.PreviousStatus)}, statusValues{Status: string(rec.NewStatus)})
	return err
}

func (s *Service) visible(ctx context.Context, op string, actor identitydomain.Actor, id string) (*domain.Equipment, error) {
	e, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if e == nil || !rbac.CanReadTenantResource(actor, e.TenantID) {
		return nil, apperr.NotFound(op, "equipment not found")
	}
	return e, nil
}

func (s *Service) emitStatus(ctx context.Context, actor identitydomain.Actor, e *domain.Equipment, rec workflow.HistoryRecord) {
	notification.EmitAsync(s.events, ctx, &notification.Event{
		ID:           uuid.New().String(),
		Type:         notification.TypeStatusChanged,
		TenantID:     e.TenantID,
		ActorID:      actor.UserID,
		ResourceType: "equipment",
		ResourceID:   e.ID,
		Detail:       map[string]string{"from": string(rec.PreviousStatus), "to": string(rec.NewStatus)},
		OccurredAt:   rec.CreatedAt,
	})
}

type statusValues struct {
	Status string `json:"status"`
}

func requireTenant(op string, actor identitydomain.Actor) (string, error) {
	if !actor.HasTenant() {
		return "", apperr.NoActiveTenant(op)
	}
	return actor.TenantID, nil
}
