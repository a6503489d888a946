// Package workflow is the finite-state-machine core for the four long-lived
// entity kinds. Each kind owns a static transition table; every status
// mutation in the application goes through CanTransition/Apply rather than
// writing a status string directly, so no call site can push an entity into a
// skipped or invalid state.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"equiplink/internal/apperr"
)

// Kind identifies a workflow entity kind. The values match the
// status_history.entity_kind column.
type Kind string

const (
	KindServiceRequest Kind = "service_request"
	KindDispute        Kind = "dispute"
	KindEquipment      Kind = "equipment"
	KindPayment        Kind = "payment"
)

// State is one status value of a workflow entity.
type State string

// Service request states.
const (
	RequestPending    State = "pending"
	RequestQuoted     State = "quoted"
	RequestAccepted   State = "accepted"
	RequestInProgress State = "in_progress"
	RequestCompleted  State = "completed"
	RequestCancelled  State = "cancelled"
	RequestDisputed   State = "disputed"
)

// Dispute states.
const (
	DisputeOpen          State = "open"
	DisputeInvestigating State = "investigating"
	DisputeResolved      State = "resolved"
	DisputeClosed        State = "closed"
	DisputeEscalated     State = "escalated"
)

// Equipment states.
const (
	EquipmentAvailable   State = "available"
	EquipmentInUse       State = "in_use"
	EquipmentMaintenance State = "maintenance"
	EquipmentDamaged     State = "damaged"
	EquipmentRetired     State = "retired"
)

// Payment states. Only pending payments are ever mutated.
const (
	PaymentPending   State = "pending"
	PaymentCompleted State = "completed"
	PaymentFailed    State = "failed"
	PaymentRefunded  State = "refunded"
)

// tables is the single source of truth for valid transitions. A state with no
// entry (or an empty entry) is terminal. completed keeps a disputed exit, so
// it is the one non-terminal "done" state on service requests.
var tables = map[Kind]map[State][]State{
	KindServiceRequest: {
		RequestPending:    {RequestQuoted, RequestCancelled},
		RequestQuoted:     {RequestAccepted, RequestCancelled},
		RequestAccepted:   {RequestInProgress, RequestCancelled},
		RequestInProgress: {RequestCompleted, RequestDisputed},
		RequestCompleted:  {RequestDisputed},
		RequestCancelled:  {},
		RequestDisputed:   {},
	},
	KindDispute: {
		DisputeOpen:          {DisputeInvestigating, DisputeEscalated},
		DisputeInvestigating: {DisputeResolved, DisputeClosed, DisputeEscalated},
		DisputeResolved:      {},
		DisputeClosed:        {},
		DisputeEscalated:     {},
	},
	KindEquipment: {
		EquipmentAvailable:   {EquipmentInUse, EquipmentMaintenance, EquipmentDamaged, EquipmentRetired},
		EquipmentInUse:       {EquipmentAvailable, EquipmentMaintenance, EquipmentDamaged, EquipmentRetired},
		EquipmentMaintenance: {EquipmentAvailable, EquipmentInUse, EquipmentDamaged, EquipmentRetired},
		// Damaged equipment goes to the shop or gets written off.
		EquipmentDamaged: {EquipmentMaintenance, EquipmentRetired},
		EquipmentRetired: {},
	},
	KindPayment: {
		PaymentPending:   {PaymentCompleted, PaymentFailed, PaymentRefunded},
		PaymentCompleted: {},
		PaymentFailed:    {},
		PaymentRefunded:  {},
	},
}

// CanTransition reports whether kind permits moving from one state to
// another. Self-transitions are invalid for every kind regardless of table
// contents, and unknown kinds or states permit nothing.
func CanTransition(kind Kind, from, to State) bool {
	if from == to {
		return false
	}
	for _, s := range tables[kind][from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextStates returns the states reachable from the given state. Terminal and
// unknown states return nil.
func NextStates(kind Kind, from State) []State {
	next := tables[kind][from]
	if len(next) == 0 {
		return nil
	}
	out := make([]State, len(next))
	copy(out, next)
	return out
}

// Terminal reports whether the state has no exits for the kind.
func Terminal(kind Kind, s State) bool {
	return len(tables[kind][s]) == 0
}

// States returns every state known for the kind, in table order. Used by
// validation and by the cross-tenant listing filters.
func States(kind Kind) []State {
	table := tables[kind]
	out := make([]State, 0, len(table))
	for s := range table {
		out = append(out, s)
	}
	return out
}

// HistoryRecord is the append-only trace of one applied transition, persisted
// in the same transaction as the status write.
type HistoryRecord struct {
	ID             string
	EntityKind     Kind
	EntityID       string
	TenantID       string
	PreviousStatus State
	NewStatus      State
	PerformedBy    string
	CreatedAt      time.Time
}

// Entity is any workflow entity the engine can advance.
type Entity interface {
	WorkflowKind() Kind
	WorkflowID() string
	WorkflowTenant() string
	WorkflowState() State
}

// Apply validates the transition of e to the target state and returns the
// matching history record. It does not persist anything; the owning service
// writes the status patch and the record inside one transaction, treating a
// failure of either as a failure of both.
func Apply(op string, e Entity, to State, by string, at time.Time) (HistoryRecord, error) {
	from := e.WorkflowState()
	if !CanTransition(e.WorkflowKind(), from, to) {
		return HistoryRecord{}, apperr.InvalidTransition(op, string(e.WorkflowKind()), string(from), string(to))
	}
	return HistoryRecord{
		ID:             uuid.New().String(),
		EntityKind:     e.WorkflowKind(),
		EntityID:       e.WorkflowID(),
		TenantID:       e.WorkflowTenant(),
		PreviousStatus: from,
		NewStatus:      to,
		PerformedBy:    by,
		CreatedAt:      at,
	}, nil
}
