package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusReopened   TicketStatus = "REOPENED"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	_, ok := ticketTransitions[s]
	return ok
}

// IsOpen reports whether work on the ticket is still expected.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusNew || s == TicketStatusInProgress || s == TicketStatusReopened
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:        {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusInProgress: {TicketStatusNew, TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusReopened},
	TicketStatusClosed:     {TicketStatusReopened},
	TicketStatusReopened:   {TicketStatusInProgress, TicketStatusResolved},
}

// CanTransition is the single source of legal ticket status changes. X -> X is never legal.
func CanTransition(from, to TicketStatus) bool {
	for _, candidate := range ticketTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllTicketStatuses lists every ticket status in workflow order.
func AllTicketStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusNew,
		TicketStatusInProgress,
		TicketStatusResolved,
		TicketStatusClosed,
		TicketStatusReopened,
	}
}

const (
	maxTitleLength       = 255
	maxDescriptionLength = 5000
)

// NewTicketParams carries the factory inputs. The number comes from the numbering service.
type NewTicketParams struct {
	Number          TicketNumber
	Title           string
	Description     string
	OrganizationID  uuid.UUID
	MachineID       uuid.UUID
	Priority        TicketPriority
	CreatedByUserID uuid.UUID
}

// TicketState is the persisted form of a Ticket.
type TicketState struct {
	AggregateState
	Number           TicketNumber
	Title            string
	Description      string
	OrganizationID   uuid.UUID
	MachineID        uuid.UUID
	Priority         TicketPriority
	Status           TicketStatus
	CreatedByUserID  uuid.UUID
	AssignedToUserID *uuid.UUID
	ResolvedAt       *time.Time
	ClosedAt         *time.Time
}

// Ticket is a support request raised against a machine.
type Ticket struct {
	aggregateBase
	number         TicketNumber
	title          string
	description    string
	organizationID uuid.UUID
	machineID      uuid.UUID
	priority       TicketPriority
	status         TicketStatus
	createdBy      uuid.UUID
	assignedTo     *uuid.UUID
	resolvedAt     *time.Time
	closedAt       *time.Time
}

// NewTicket opens a ticket in New status and emits TicketCreated.
func NewTicket(params NewTicketParams, clock Clock) (*Ticket, error) {
	const op = "ticket.create"
	if params.Number.IsZero() {
		return nil, NullArgument(op, "ticket_number")
	}
	title, err := requiredText(op, "title", params.Title, maxTitleLength)
	if err != nil {
		return nil, err
	}
	description, err := optionalText(op, "description", params.Description, maxDescriptionLength)
	if err != nil {
		return nil, err
	}
	if params.OrganizationID == uuid.Nil {
		return nil, InvalidArgument(op, "organization_id", "organization_id is required")
	}
	if params.MachineID == uuid.Nil {
		return nil, InvalidArgument(op, "machine_id", "machine_id is required")
	}
	if params.CreatedByUserID == uuid.Nil {
		return nil, InvalidArgument(op, "created_by_user_id", "created_by_user_id is required")
	}
	priority := params.Priority
	if priority == "" {
		priority = TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, InvalidArgument(op, "priority", "unknown priority")
	}

	t := &Ticket{
		aggregateBase:  newAggregateBase(clock),
		number:         params.Number,
		title:          title,
		description:    description,
		organizationID: params.OrganizationID,
		machineID:      params.MachineID,
		priority:       priority,
		status:         TicketStatusNew,
		createdBy:      params.CreatedByUserID,
	}
	creator := params.CreatedByUserID
	t.audit.CreatedBy = &creator
	t.record(TicketCreated{
		eventMeta:       t.meta(t.audit.CreatedAt),
		TicketNumber:    t.number.String(),
		Priority:        t.priority,
		OrganizationID:  t.organizationID,
		MachineID:       t.machineID,
		CreatedByUserID: t.createdBy,
	})
	return t, nil
}

// RestoreTicket rebuilds a Ticket from storage without emitting events.
func RestoreTicket(state TicketState, clock Clock) *Ticket {
	return &Ticket{
		aggregateBase:  restoreAggregateBase(state.AggregateState, clock),
		number:         state.Number,
		title:          state.Title,
		description:    state.Description,
		organizationID: state.OrganizationID,
		machineID:      state.MachineID,
		priority:       state.Priority,
		status:         state.Status,
		createdBy:      state.CreatedByUserID,
		assignedTo:     copyID(state.AssignedToUserID),
		resolvedAt:     copyTime(state.ResolvedAt),
		closedAt:       copyTime(state.ClosedAt),
	}
}

// State snapshots the ticket for persistence.
func (t *Ticket) State() TicketState {
	return TicketState{
		AggregateState:   t.state(),
		Number:           t.number,
		Title:            t.title,
		Description:      t.description,
		OrganizationID:   t.organizationID,
		MachineID:        t.machineID,
		Priority:         t.priority,
		Status:           t.status,
		CreatedByUserID:  t.createdBy,
		AssignedToUserID: copyID(t.assignedTo),
		ResolvedAt:       copyTime(t.resolvedAt),
		ClosedAt:         copyTime(t.closedAt),
	}
}

func (t *Ticket) AggregateType() AggregateType { return AggregateTicket }

func (t *Ticket) Number() TicketNumber         { return t.number }
func (t *Ticket) Title() string                { return t.title }
func (t *Ticket) Description() string          { return t.description }
func (t *Ticket) OrganizationID() uuid.UUID    { return t.organizationID }
func (t *Ticket) MachineID() uuid.UUID         { return t.machineID }
func (t *Ticket) Priority() TicketPriority     { return t.priority }
func (t *Ticket) Status() TicketStatus         { return t.status }
func (t *Ticket) CreatedByUserID() uuid.UUID   { return t.createdBy }
func (t *Ticket) AssignedToUserID() *uuid.UUID { return copyID(t.assignedTo) }
func (t *Ticket) ResolvedAt() *time.Time       { return copyTime(t.resolvedAt) }
func (t *Ticket) ClosedAt() *time.Time         { return copyTime(t.closedAt) }

// AssignTo replaces the assignee and reports who held the ticket before.
func (t *Ticket) AssignTo(assigneeUserID, assignedByUserID uuid.UUID) ([]Event, error) {
	const op = "ticket.assign"
	if assigneeUserID == uuid.Nil {
		return nil, InvalidArgument(op, "assignee_user_id", "assignee is required")
	}
	previous := copyID(t.assignedTo)
	assignee := assigneeUserID
	t.assignedTo = &assignee
	now := t.now()
	t.touchBy(now, assignedByUserID)
	return t.record(TicketAssigned{
		eventMeta:              t.meta(now),
		AssigneeUserID:         assigneeUserID,
		AssignedByUserID:       assignedByUserID,
		PreviousAssigneeUserID: previous,
	}), nil
}

// UpdateStatus applies any move from the transition table. Illegal or same-status moves fail.
func (t *Ticket) UpdateStatus(newStatus TicketStatus, reason string, changedByUserID uuid.UUID) ([]Event, error) {
	const op = "ticket.update_status"
	reason, err := requiredReason(op, reason)
	if err != nil {
		return nil, err
	}
	if newStatus == t.status {
		return nil, InvalidOperation(op, "ticket is already "+string(newStatus))
	}
	if !CanTransition(t.status, newStatus) {
		return nil, InvalidOperation(op, "transition from "+string(t.status)+" to "+string(newStatus)+" is not allowed")
	}
	now := t.now()
	return t.record(t.changeStatus(newStatus, reason, changedByUserID, now)), nil
}

// Resolve marks the ticket resolved and stamps ResolvedAt.
func (t *Ticket) Resolve(reason string, resolvedByUserID uuid.UUID) ([]Event, error) {
	const op = "ticket.resolve"
	reason, err := requiredReason(op, reason)
	if err != nil {
		return nil, err
	}
	if t.status == TicketStatusClosed {
		return nil, InvalidOperation(op, "closed tickets cannot be resolved")
	}
	if !CanTransition(t.status, TicketStatusResolved) {
		return nil, InvalidOperation(op, "ticket cannot be resolved from "+string(t.status))
	}
	now := t.now()
	t.applyStatus(TicketStatusResolved, now)
	t.touchBy(now, resolvedByUserID)
	return t.record(TicketResolved{eventMeta: t.meta(now), Reason: reason, ResolvedByUserID: resolvedByUserID}), nil
}

// Close finishes a resolved ticket and stamps ClosedAt.
func (t *Ticket) Close(reason string, closedByUserID uuid.UUID) ([]Event, error) {
	const op = "ticket.close"
	reason, err := requiredReason(op, reason)
	if err != nil {
		return nil, err
	}
	if t.status != TicketStatusResolved {
		return nil, InvalidOperation(op, "only resolved tickets can be closed")
	}
	now := t.now()
	t.applyStatus(TicketStatusClosed, now)
	t.touchBy(now, closedByUserID)
	return t.record(TicketClosed{eventMeta: t.meta(now), Reason: reason, ClosedByUserID: closedByUserID}), nil
}

// Reopen returns a resolved or closed ticket to work, clearing both resolution stamps.
// How long after closure reopening is allowed is decided by the caller.
func (t *Ticket) Reopen(reason string, reopenedByUserID uuid.UUID) ([]Event, error) {
	const op = "ticket.reopen"
	reason, err := requiredReason(op, reason)
	if err != nil {
		return nil, err
	}
	if t.status != TicketStatusResolved && t.status != TicketStatusClosed {
		return nil, InvalidOperation(op, "only resolved or closed tickets can be reopened")
	}
	now := t.now()
	reopened := TicketReopened{eventMeta: t.meta(now), Reason: reason, ReopenedByUserID: reopenedByUserID}
	return t.record(reopened, t.changeStatus(TicketStatusReopened, reason, reopenedByUserID, now)), nil
}

func (t *Ticket) changeStatus(next TicketStatus, reason string, by uuid.UUID, now time.Time) Event {
	previous := t.status
	t.applyStatus(next, now)
	t.touchBy(now, by)
	return TicketStatusChanged{
		eventMeta:       t.meta(now),
		PreviousStatus:  previous,
		NewStatus:       next,
		Reason:          reason,
		ChangedByUserID: by,
	}
}

// applyStatus keeps ResolvedAt and ClosedAt consistent with the status being entered.
func (t *Ticket) applyStatus(next TicketStatus, now time.Time) {
	t.status = next
	switch next {
	case TicketStatusResolved:
		at := now
		t.resolvedAt = &at
		t.closedAt = nil
	case TicketStatusClosed:
		at := now
		t.closedAt = &at
	default:
		t.resolvedAt = nil
		t.closedAt = nil
	}
}

func (t *Ticket) touchBy(now time.Time, userID uuid.UUID) {
	if userID != uuid.Nil {
		t.ActAs(userID)
	}
	t.touch(now)
}

func (t *Ticket) meta(at time.Time) eventMeta {
	return newEventMeta(AggregateTicket, t.id, at)
}

var _ AggregateRoot = (*Ticket)(nil)
