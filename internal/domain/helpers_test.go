package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func mustOrganization(t *testing.T, clock Clock) *Organization {
	t.Helper()
	org, err := NewOrganization(NewOrganizationParams{Name: "Acme", Email: "ops@acme.com"}, clock)
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	org.MarkCommitted()
	return org
}

func mustMachine(t *testing.T, clock Clock) *Machine {
	t.Helper()
	m, err := NewMachine(NewMachineParams{OrganizationID: uuid.New(), SerialNumber: "SN-001"}, clock)
	if err != nil {
		t.Fatalf("create machine: %v", err)
	}
	m.MarkCommitted()
	return m
}

func mustTicket(t *testing.T, clock Clock) *Ticket {
	t.Helper()
	num, err := NewTicketNumber(2025, 1, clock)
	if err != nil {
		t.Fatalf("ticket number: %v", err)
	}
	ticket, err := NewTicket(NewTicketParams{
		Number:          num,
		Title:           "Pump failure",
		Description:     "Pump stopped after restart",
		OrganizationID:  uuid.New(),
		MachineID:       uuid.New(),
		Priority:        TicketPriorityHigh,
		CreatedByUserID: uuid.New(),
	}, clock)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	ticket.MarkCommitted()
	return ticket
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType())
	}
	return out
}

func expectKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func expectTypes(t *testing.T, events []Event, want ...EventType) {
	t.Helper()
	got := eventTypes(events)
	if len(got) != len(want) {
		t.Fatalf("events: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events: want=%v got=%v", want, got)
		}
	}
}
