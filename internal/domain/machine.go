package domain

import (
	"time"

	"github.com/google/uuid"
)

// MachineStatus is a machine's operational status.
type MachineStatus string

const (
	MachineStatusInactive    MachineStatus = "INACTIVE"
	MachineStatusActive      MachineStatus = "ACTIVE"
	MachineStatusMaintenance MachineStatus = "MAINTENANCE"
	MachineStatusAlarm       MachineStatus = "ALARM"
)

// Valid reports whether s is a known machine status.
func (s MachineStatus) Valid() bool {
	switch s {
	case MachineStatusInactive, MachineStatusActive, MachineStatusMaintenance, MachineStatusAlarm:
		return true
	}
	return false
}

// Alarm -> Active is deliberately absent: an alarm is only lifted through ClearAlarm.
var machineTransitions = map[MachineStatus][]MachineStatus{
	MachineStatusInactive:    {MachineStatusActive, MachineStatusMaintenance, MachineStatusAlarm},
	MachineStatusActive:      {MachineStatusInactive, MachineStatusMaintenance, MachineStatusAlarm},
	MachineStatusMaintenance: {MachineStatusActive, MachineStatusInactive, MachineStatusAlarm},
	MachineStatusAlarm:       {MachineStatusInactive, MachineStatusMaintenance},
}

// CanTransitionMachine reports whether UpdateStatus may move a machine from one status to another.
func CanTransitionMachine(from, to MachineStatus) bool {
	for _, candidate := range machineTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

const (
	maxSerialNumberLength = 255
	maxBrandLength        = 100
	maxModelLength        = 100
	maxLocationLength     = 255
)

// MaintenanceInterval is a reusable maintenance cadence referenced by machines.
type MaintenanceInterval struct {
	ID   uuid.UUID
	Name string
	Days int
}

// NewMaintenanceInterval validates name and a cadence of 1 to 3650 days.
func NewMaintenanceInterval(name string, days int) (MaintenanceInterval, error) {
	const op = "maintenance_interval.new"
	name, err := requiredText(op, "name", name, 100)
	if err != nil {
		return MaintenanceInterval{}, err
	}
	if days < 1 || days > 3650 {
		return MaintenanceInterval{}, InvalidArgument(op, "days", "days must be between 1 and 3650")
	}
	return MaintenanceInterval{ID: uuid.New(), Name: name, Days: days}, nil
}

// NewMachineParams carries the factory inputs.
type NewMachineParams struct {
	OrganizationID uuid.UUID
	SerialNumber   string
	Brand          string
	Model          string
	Location       string
}

// MachineState is the persisted form of a Machine.
type MachineState struct {
	AggregateState
	OrganizationID        uuid.UUID
	SerialNumber          string
	Brand                 string
	Model                 string
	Location              string
	Status                MachineStatus
	APIToken              string
	LastMaintenanceDate   *time.Time
	NextMaintenanceDate   *time.Time
	MaintenanceIntervalID *uuid.UUID
}

// Machine is a piece of serviced equipment owned by one organization.
type Machine struct {
	aggregateBase
	organizationID  uuid.UUID
	serialNumber    string
	brand           string
	model           string
	location        string
	status          MachineStatus
	token           MachineCredential
	lastMaintenance *time.Time
	nextMaintenance *time.Time
	intervalID      *uuid.UUID
}

// NewMachine registers a machine in Inactive status and emits MachineRegistered.
// Whether the organization may register machines is checked by the caller.
func NewMachine(params NewMachineParams, clock Clock) (*Machine, error) {
	const op = "machine.create"
	if params.OrganizationID == uuid.Nil {
		return nil, InvalidArgument(op, "organization_id", "organization_id is required")
	}
	serial, err := requiredText(op, "serial_number", params.SerialNumber, maxSerialNumberLength)
	if err != nil {
		return nil, err
	}
	brand, err := optionalText(op, "brand", params.Brand, maxBrandLength)
	if err != nil {
		return nil, err
	}
	model, err := optionalText(op, "model", params.Model, maxModelLength)
	if err != nil {
		return nil, err
	}
	location, err := optionalText(op, "location", params.Location, maxLocationLength)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		aggregateBase:  newAggregateBase(clock),
		organizationID: params.OrganizationID,
		serialNumber:   serial,
		brand:          brand,
		model:          model,
		location:       location,
		status:         MachineStatusInactive,
	}
	m.record(MachineRegistered{
		eventMeta:      m.meta(m.audit.CreatedAt),
		OrganizationID: m.organizationID,
		SerialNumber:   m.serialNumber,
	})
	return m, nil
}

// RestoreMachine rebuilds a Machine from storage without emitting events.
func RestoreMachine(state MachineState, clock Clock) (*Machine, error) {
	m := &Machine{
		aggregateBase:   restoreAggregateBase(state.AggregateState, clock),
		organizationID:  state.OrganizationID,
		serialNumber:    state.SerialNumber,
		brand:           state.Brand,
		model:           state.Model,
		location:        state.Location,
		status:          state.Status,
		lastMaintenance: copyTime(state.LastMaintenanceDate),
		nextMaintenance: copyTime(state.NextMaintenanceDate),
		intervalID:      copyID(state.MaintenanceIntervalID),
	}
	if state.APIToken != "" {
		token, err := ParseMachineCredential(state.APIToken)
		if err != nil {
			return nil, err
		}
		m.token = token
	}
	return m, nil
}

// State snapshots the machine for persistence.
func (m *Machine) State() MachineState {
	return MachineState{
		AggregateState:        m.state(),
		OrganizationID:        m.organizationID,
		SerialNumber:          m.serialNumber,
		Brand:                 m.brand,
		Model:                 m.model,
		Location:              m.location,
		Status:                m.status,
		APIToken:              m.token.Value(),
		LastMaintenanceDate:   copyTime(m.lastMaintenance),
		NextMaintenanceDate:   copyTime(m.nextMaintenance),
		MaintenanceIntervalID: copyID(m.intervalID),
	}
}

func (m *Machine) AggregateType() AggregateType { return AggregateMachine }

func (m *Machine) OrganizationID() uuid.UUID         { return m.organizationID }
func (m *Machine) SerialNumber() string              { return m.serialNumber }
func (m *Machine) Brand() string                     { return m.brand }
func (m *Machine) Model() string                     { return m.model }
func (m *Machine) Location() string                  { return m.location }
func (m *Machine) Status() MachineStatus             { return m.status }
func (m *Machine) APIToken() MachineCredential       { return m.token }
func (m *Machine) LastMaintenanceDate() *time.Time   { return copyTime(m.lastMaintenance) }
func (m *Machine) NextMaintenanceDate() *time.Time   { return copyTime(m.nextMaintenance) }
func (m *Machine) MaintenanceIntervalID() *uuid.UUID { return copyID(m.intervalID) }

// GenerateApiToken issues a machine credential, replacing any existing one.
func (m *Machine) GenerateApiToken() []Event {
	return m.issueToken("")
}

// RegenerateApiToken replaces the credential and records why.
func (m *Machine) RegenerateApiToken(reason string) ([]Event, error) {
	reason, err := requiredReason("machine.regenerate_api_token", reason)
	if err != nil {
		return nil, err
	}
	return m.issueToken(reason), nil
}

// UpdateStatus moves the machine along its status table. Same-status calls are no-ops.
func (m *Machine) UpdateStatus(newStatus MachineStatus, reason string) ([]Event, error) {
	const op = "machine.update_status"
	reason, err := requiredReason(op, reason)
	if err != nil {
		return nil, err
	}
	if !newStatus.Valid() {
		return nil, InvalidArgument(op, "status", "unknown machine status")
	}
	if newStatus == m.status {
		return nil, nil
	}
	if !CanTransitionMachine(m.status, newStatus) {
		if m.status == MachineStatusAlarm {
			return nil, RuleViolation(op, "an active alarm must be cleared with ClearAlarm")
		}
		return nil, RuleViolation(op, "transition from "+string(m.status)+" to "+string(newStatus)+" is not allowed")
	}
	now := m.now()
	return m.record(m.changeStatus(newStatus, reason, now)), nil
}

// ScheduleMaintenance sets the next maintenance day. Today counts as not in the past.
func (m *Machine) ScheduleMaintenance(date time.Time, interval *MaintenanceInterval) ([]Event, error) {
	const op = "machine.schedule_maintenance"
	day := DateOf(date)
	if day.Before(Today(m.clock)) {
		return nil, InvalidArgument(op, "date", "maintenance date cannot be in the past")
	}
	if m.lastMaintenance != nil && !day.After(*m.lastMaintenance) {
		return nil, InvalidArgument(op, "date", "next maintenance must be after the last maintenance")
	}
	var intervalID *uuid.UUID
	if interval != nil {
		id := interval.ID
		intervalID = &id
	}
	m.nextMaintenance = &day
	m.intervalID = intervalID
	now := m.now()
	m.touch(now)
	return m.record(MaintenanceScheduled{eventMeta: m.meta(now), Date: day, IntervalID: copyID(intervalID)}), nil
}

// CompleteMaintenance records a completed maintenance and, with an interval, schedules the next one.
func (m *Machine) CompleteMaintenance(completedDate time.Time, interval *MaintenanceInterval) ([]Event, error) {
	const op = "machine.complete_maintenance"
	day := DateOf(completedDate)
	if day.After(Today(m.clock)) {
		return nil, InvalidArgument(op, "completed_date", "completed date cannot be in the future")
	}
	if interval != nil && interval.Days < 1 {
		return nil, InvalidArgument(op, "interval", "interval must be at least one day")
	}
	now := m.now()
	m.lastMaintenance = &day
	m.touch(now)
	if interval == nil {
		m.nextMaintenance = nil
		m.intervalID = nil
		return nil, nil
	}
	next := day.AddDate(0, 0, interval.Days)
	id := interval.ID
	m.nextMaintenance = &next
	m.intervalID = &id
	return m.record(MaintenanceScheduled{eventMeta: m.meta(now), Date: next, IntervalID: copyID(&id)}), nil
}

// ActivateAlarm puts the machine in Alarm. Already alarmed machines are left untouched.
func (m *Machine) ActivateAlarm(reason string) ([]Event, error) {
	reason, err := requiredReason("machine.activate_alarm", reason)
	if err != nil {
		return nil, err
	}
	if m.status == MachineStatusAlarm {
		return nil, nil
	}
	previous := m.status
	m.status = MachineStatusAlarm
	now := m.now()
	m.touch(now)
	return m.record(AlarmActivated{eventMeta: m.meta(now), Reason: reason, PreviousStatus: previous}), nil
}

// ClearAlarm is the only way out of Alarm into Active. It emits AlarmCleared then MachineStatusChanged.
func (m *Machine) ClearAlarm(reason string) ([]Event, error) {
	const op = "machine.clear_alarm"
	reason, err := requiredReason(op, reason)
	if err != nil {
		return nil, err
	}
	if m.status != MachineStatusAlarm {
		return nil, RuleViolation(op, "machine is not in alarm")
	}
	now := m.now()
	cleared := AlarmCleared{eventMeta: m.meta(now), Reason: reason}
	return m.record(cleared, m.changeStatus(MachineStatusActive, reason, now)), nil
}

// UpdateLocation replaces the location. No event is emitted.
func (m *Machine) UpdateLocation(location string) error {
	location, err := optionalText("machine.update_location", "location", location, maxLocationLength)
	if err != nil {
		return err
	}
	m.location = location
	m.touch(m.now())
	return nil
}

func (m *Machine) issueToken(reason string) []Event {
	isRegeneration := !m.token.IsZero()
	m.token = GenerateMachineCredential(MachineTokenPrefix)
	now := m.now()
	m.touch(now)
	return m.record(ApiTokenGenerated{eventMeta: m.meta(now), IsRegeneration: isRegeneration, Reason: reason})
}

func (m *Machine) changeStatus(next MachineStatus, reason string, now time.Time) Event {
	previous := m.status
	m.status = next
	m.touch(now)
	return MachineStatusChanged{
		eventMeta:      m.meta(now),
		PreviousStatus: previous,
		NewStatus:      next,
		Reason:         reason,
	}
}

func (m *Machine) meta(at time.Time) eventMeta {
	return newEventMeta(AggregateMachine, m.id, at)
}

var _ AggregateRoot = (*Machine)(nil)
