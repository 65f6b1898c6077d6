package domain

import (
	"time"

	"github.com/google/uuid"
)

// AggregateType names the kind of aggregate that produced an event.
type AggregateType string

const (
	AggregateOrganization AggregateType = "organization"
	AggregateMachine      AggregateType = "machine"
	AggregateTicket       AggregateType = "ticket"
)

// EventType enumerates supported domain event identifiers.
type EventType string

const (
	EventOrganizationCreated    EventType = "organization.created"
	EventServiceStatusChanged   EventType = "organization.service_status_changed"
	EventServiceSuspended       EventType = "organization.service_suspended"
	EventContractRenewed        EventType = "organization.contract_renewed"
	EventApiCredentialGenerated EventType = "organization.api_credential_generated"

	EventMachineRegistered    EventType = "machine.registered"
	EventApiTokenGenerated    EventType = "machine.api_token_generated"
	EventMachineStatusChanged EventType = "machine.status_changed"
	EventMaintenanceScheduled EventType = "machine.maintenance_scheduled"
	EventAlarmActivated       EventType = "machine.alarm_activated"
	EventAlarmCleared         EventType = "machine.alarm_cleared"

	EventTicketCreated       EventType = "ticket.created"
	EventTicketAssigned      EventType = "ticket.assigned"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketResolved      EventType = "ticket.resolved"
	EventTicketClosed        EventType = "ticket.closed"
	EventTicketReopened      EventType = "ticket.reopened"
)

// Event is an immutable fact produced by a successful aggregate operation.
// Exported fields of concrete events form the serialized payload.
type Event interface {
	EventID() uuid.UUID
	EventType() EventType
	AggregateID() uuid.UUID
	AggregateType() AggregateType
	OccurredAt() time.Time
}

type eventMeta struct {
	id            uuid.UUID
	aggregateID   uuid.UUID
	aggregateType AggregateType
	occurredAt    time.Time
}

func newEventMeta(aggregateType AggregateType, aggregateID uuid.UUID, at time.Time) eventMeta {
	return eventMeta{
		id:            uuid.New(),
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		occurredAt:    at.UTC(),
	}
}

func (m eventMeta) EventID() uuid.UUID           { return m.id }
func (m eventMeta) AggregateID() uuid.UUID       { return m.aggregateID }
func (m eventMeta) AggregateType() AggregateType { return m.aggregateType }
func (m eventMeta) OccurredAt() time.Time        { return m.occurredAt }

// OrganizationCreated payload.
type OrganizationCreated struct {
	eventMeta
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (OrganizationCreated) EventType() EventType { return EventOrganizationCreated }

// ServiceStatusChanged payload.
type ServiceStatusChanged struct {
	eventMeta
	PreviousStatus ServiceStatus `json:"previous_status"`
	NewStatus      ServiceStatus `json:"new_status"`
	Reason         string        `json:"reason"`
}

func (ServiceStatusChanged) EventType() EventType { return EventServiceStatusChanged }

// ServiceSuspended payload.
type ServiceSuspended struct {
	eventMeta
	Reason string `json:"reason"`
}

func (ServiceSuspended) EventType() EventType { return EventServiceSuspended }

// ContractRenewed payload.
type ContractRenewed struct {
	eventMeta
	PreviousEndDate *time.Time `json:"previous_end_date,omitempty"`
	NewEndDate      time.Time  `json:"new_end_date"`
}

func (ContractRenewed) EventType() EventType { return EventContractRenewed }

// ApiCredentialGenerated payload. The credential itself is never part of the event.
type ApiCredentialGenerated struct {
	eventMeta
	IsRegeneration bool `json:"is_regeneration"`
}

func (ApiCredentialGenerated) EventType() EventType { return EventApiCredentialGenerated }

// MachineRegistered payload.
type MachineRegistered struct {
	eventMeta
	OrganizationID uuid.UUID `json:"organization_id"`
	SerialNumber   string    `json:"serial_number"`
}

func (MachineRegistered) EventType() EventType { return EventMachineRegistered }

// ApiTokenGenerated payload.
type ApiTokenGenerated struct {
	eventMeta
	IsRegeneration bool   `json:"is_regeneration"`
	Reason         string `json:"reason,omitempty"`
}

func (ApiTokenGenerated) EventType() EventType { return EventApiTokenGenerated }

// MachineStatusChanged payload.
type MachineStatusChanged struct {
	eventMeta
	PreviousStatus MachineStatus `json:"previous_status"`
	NewStatus      MachineStatus `json:"new_status"`
	Reason         string        `json:"reason"`
}

func (MachineStatusChanged) EventType() EventType { return EventMachineStatusChanged }

// MaintenanceScheduled payload.
type MaintenanceScheduled struct {
	eventMeta
	Date       time.Time  `json:"date"`
	IntervalID *uuid.UUID `json:"interval_id,omitempty"`
}

func (MaintenanceScheduled) EventType() EventType { return EventMaintenanceScheduled }

// AlarmActivated payload.
type AlarmActivated struct {
	eventMeta
	Reason         string        `json:"reason"`
	PreviousStatus MachineStatus `json:"previous_status"`
}

func (AlarmActivated) EventType() EventType { return EventAlarmActivated }

// AlarmCleared payload.
type AlarmCleared struct {
	eventMeta
	Reason string `json:"reason"`
}

func (AlarmCleared) EventType() EventType { return EventAlarmCleared }

// TicketCreated payload.
type TicketCreated struct {
	eventMeta
	TicketNumber    string         `json:"ticket_number"`
	Priority        TicketPriority `json:"priority"`
	OrganizationID  uuid.UUID      `json:"organization_id"`
	MachineID       uuid.UUID      `json:"machine_id"`
	CreatedByUserID uuid.UUID      `json:"created_by_user_id"`
}

func (TicketCreated) EventType() EventType { return EventTicketCreated }

// TicketAssigned payload.
type TicketAssigned struct {
	eventMeta
	AssigneeUserID         uuid.UUID  `json:"assignee_user_id"`
	AssignedByUserID       uuid.UUID  `json:"assigned_by_user_id"`
	PreviousAssigneeUserID *uuid.UUID `json:"previous_assignee_user_id,omitempty"`
}

func (TicketAssigned) EventType() EventType { return EventTicketAssigned }

// TicketStatusChanged payload.
type TicketStatusChanged struct {
	eventMeta
	PreviousStatus  TicketStatus `json:"previous_status"`
	NewStatus       TicketStatus `json:"new_status"`
	Reason          string       `json:"reason"`
	ChangedByUserID uuid.UUID    `json:"changed_by_user_id"`
}

func (TicketStatusChanged) EventType() EventType { return EventTicketStatusChanged }

// TicketResolved payload.
type TicketResolved struct {
	eventMeta
	Reason           string    `json:"reason"`
	ResolvedByUserID uuid.UUID `json:"resolved_by_user_id"`
}

func (TicketResolved) EventType() EventType { return EventTicketResolved }

// TicketClosed payload.
type TicketClosed struct {
	eventMeta
	Reason         string    `json:"reason"`
	ClosedByUserID uuid.UUID `json:"closed_by_user_id"`
}

func (TicketClosed) EventType() EventType { return EventTicketClosed }

// TicketReopened payload.
type TicketReopened struct {
	eventMeta
	Reason           string    `json:"reason"`
	ReopenedByUserID uuid.UUID `json:"reopened_by_user_id"`
}

func (TicketReopened) EventType() EventType { return EventTicketReopened }
