package domain

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTicketLifecycleScenario(t *testing.T) {
	clock := newManualClock()
	userA, userB, userC := uuid.New(), uuid.New(), uuid.New()
	num, err := ParseTicketNumber("TICK-2025-00001", clock)
	if err != nil {
		t.Fatalf("parse number: %v", err)
	}
	ticket, err := NewTicket(NewTicketParams{
		Number:          num,
		Title:           "Pump failure",
		Description:     "...",
		OrganizationID:  uuid.New(),
		MachineID:       uuid.New(),
		Priority:        TicketPriorityHigh,
		CreatedByUserID: userA,
	}, clock)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status() != TicketStatusNew {
		t.Fatalf("status: want NEW got %s", ticket.Status())
	}
	expectTypes(t, ticket.PendingEvents(), EventTicketCreated)
	created := ticket.PendingEvents()[0].(TicketCreated)
	if created.TicketNumber != "TICK-2025-00001" || created.CreatedByUserID != userA {
		t.Fatalf("created payload: %+v", created)
	}
	if by := ticket.Audit().CreatedBy; by == nil || *by != userA {
		t.Fatalf("created by must be recorded")
	}
	ticket.MarkCommitted()

	if _, err := ticket.UpdateStatus(TicketStatusInProgress, "starting", userB); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err = ticket.Close("done", userB)
	expectKind(t, err, KindInvalidOperation)

	clock.Advance(time.Hour)
	events, err := ticket.Resolve("fixed", userB)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	expectTypes(t, events, EventTicketResolved)
	if ticket.ResolvedAt() == nil || !ticket.ResolvedAt().Equal(clock.Now()) {
		t.Fatalf("resolved at: %v", ticket.ResolvedAt())
	}

	clock.Advance(time.Hour)
	events, err = ticket.Close("verified", userB)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	expectTypes(t, events, EventTicketClosed)
	if ticket.ClosedAt() == nil || ticket.ResolvedAt() == nil {
		t.Fatalf("closed ticket keeps both stamps")
	}

	events, err = ticket.Reopen("recurred", userC)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	expectTypes(t, events, EventTicketReopened, EventTicketStatusChanged)
	changed := events[1].(TicketStatusChanged)
	if changed.PreviousStatus != TicketStatusClosed || changed.NewStatus != TicketStatusReopened || changed.ChangedByUserID != userC {
		t.Fatalf("status change payload: %+v", changed)
	}
	if ticket.Status() != TicketStatusReopened || ticket.ResolvedAt() != nil || ticket.ClosedAt() != nil {
		t.Fatalf("reopen must clear stamps: status=%s resolved=%v closed=%v", ticket.Status(), ticket.ResolvedAt(), ticket.ClosedAt())
	}
	if by := ticket.Audit().UpdatedBy; by == nil || *by != userC {
		t.Fatalf("updated by must follow the last actor")
	}
	if got := len(ticket.PendingEvents()); got != 5 {
		t.Fatalf("pending events since commit: want 5 got %d", got)
	}
}

func ticketIn(t *testing.T, status TicketStatus) *Ticket {
	t.Helper()
	clock := newManualClock()
	num, err := NewTicketNumber(2025, 7, clock)
	if err != nil {
		t.Fatalf("ticket number: %v", err)
	}
	state := TicketState{
		AggregateState:  AggregateState{ID: uuid.New(), Version: 3, Audit: Audit{CreatedAt: clock.Now()}},
		Number:          num,
		Title:           "Leak",
		OrganizationID:  uuid.New(),
		MachineID:       uuid.New(),
		Priority:        TicketPriorityMedium,
		Status:          status,
		CreatedByUserID: uuid.New(),
	}
	now := clock.Now()
	switch status {
	case TicketStatusResolved:
		state.ResolvedAt = &now
	case TicketStatusClosed:
		state.ResolvedAt = &now
		state.ClosedAt = &now
	}
	return RestoreTicket(state, clock)
}

func TestTicketUpdateStatusTotality(t *testing.T) {
	for _, from := range AllTicketStatuses() {
		for _, to := range AllTicketStatuses() {
			ticket := ticketIn(t, from)
			before := ticket.State()
			events, err := ticket.UpdateStatus(to, "move", uuid.New())

			if CanTransition(from, to) {
				if err != nil {
					t.Fatalf("%s -> %s: unexpected error %v", from, to, err)
				}
				expectTypes(t, events, EventTicketStatusChanged)
				if ticket.Status() != to || ticket.Version() != before.Version {
					t.Fatalf("%s -> %s: status=%s version=%d", from, to, ticket.Status(), ticket.Version())
				}
				continue
			}

			if !IsKind(err, KindInvalidOperation) {
				t.Fatalf("%s -> %s: want invalid operation, got %v", from, to, err)
			}
			if len(events) != 0 || len(ticket.PendingEvents()) != 0 {
				t.Fatalf("%s -> %s: rejected move emitted events", from, to)
			}
			if !reflect.DeepEqual(before, ticket.State()) {
				t.Fatalf("%s -> %s: rejected move mutated the ticket", from, to)
			}
		}
	}
}

func TestCanTransitionTable(t *testing.T) {
	allowed := map[[2]TicketStatus]bool{
		{TicketStatusNew, TicketStatusInProgress}:      true,
		{TicketStatusNew, TicketStatusResolved}:        true,
		{TicketStatusInProgress, TicketStatusNew}:      true,
		{TicketStatusInProgress, TicketStatusResolved}: true,
		{TicketStatusResolved, TicketStatusClosed}:     true,
		{TicketStatusResolved, TicketStatusReopened}:   true,
		{TicketStatusClosed, TicketStatusReopened}:     true,
		{TicketStatusReopened, TicketStatusInProgress}: true,
		{TicketStatusReopened, TicketStatusResolved}:   true,
	}
	for _, from := range AllTicketStatuses() {
		for _, to := range AllTicketStatuses() {
			if got := CanTransition(from, to); got != allowed[[2]TicketStatus{from, to}] {
				t.Fatalf("%s -> %s: got %v", from, to, got)
			}
		}
	}
}

func TestTicketStatusStampsFollowStatus(t *testing.T) {
	ticket := ticketIn(t, TicketStatusResolved)
	if _, err := ticket.UpdateStatus(TicketStatusReopened, "not fixed", uuid.New()); err != nil {
		t.Fatalf("reopen via update: %v", err)
	}
	if ticket.ResolvedAt() != nil || ticket.ClosedAt() != nil {
		t.Fatalf("leaving resolved must clear stamps")
	}
	if _, err := ticket.UpdateStatus(TicketStatusResolved, "fixed", uuid.New()); err != nil {
		t.Fatalf("resolve via update: %v", err)
	}
	if ticket.ResolvedAt() == nil || ticket.ClosedAt() != nil {
		t.Fatalf("resolved status must stamp ResolvedAt only")
	}
}

func TestTicketResolveAndCloseGuards(t *testing.T) {
	closed := ticketIn(t, TicketStatusClosed)
	_, err := closed.Resolve("again", uuid.New())
	expectKind(t, err, KindInvalidOperation)

	resolved := ticketIn(t, TicketStatusResolved)
	_, err = resolved.Resolve("again", uuid.New())
	expectKind(t, err, KindInvalidOperation)

	fresh := ticketIn(t, TicketStatusNew)
	_, err = fresh.Reopen("why", uuid.New())
	expectKind(t, err, KindInvalidOperation)
	_, err = fresh.Resolve(" ", uuid.New())
	expectKind(t, err, KindInvalidArgument)
	if len(fresh.PendingEvents()) != 0 {
		t.Fatalf("failed operations must not emit events")
	}

	reopened := ticketIn(t, TicketStatusReopened)
	events, err := reopened.Resolve("done", uuid.New())
	if err != nil {
		t.Fatalf("resolve reopened: %v", err)
	}
	expectTypes(t, events, EventTicketResolved)
}

func TestTicketAssign(t *testing.T) {
	ticket := mustTicket(t, newManualClock())
	first, second, manager := uuid.New(), uuid.New(), uuid.New()

	_, err := ticket.AssignTo(uuid.Nil, manager)
	expectKind(t, err, KindInvalidArgument)

	events, err := ticket.AssignTo(first, manager)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if events[0].(TicketAssigned).PreviousAssigneeUserID != nil {
		t.Fatalf("first assignment has no previous assignee")
	}
	events, err = ticket.AssignTo(second, manager)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	assigned := events[0].(TicketAssigned)
	if assigned.PreviousAssigneeUserID == nil || *assigned.PreviousAssigneeUserID != first || assigned.AssigneeUserID != second {
		t.Fatalf("reassign payload: %+v", assigned)
	}
	if id := ticket.AssignedToUserID(); id == nil || *id != second {
		t.Fatalf("assignee not stored")
	}
}

func TestNewTicketValidation(t *testing.T) {
	clock := newManualClock()
	num, _ := NewTicketNumber(2025, 2, clock)
	valid := NewTicketParams{
		Number:          num,
		Title:           "Noise",
		OrganizationID:  uuid.New(),
		MachineID:       uuid.New(),
		CreatedByUserID: uuid.New(),
	}

	ticket, err := NewTicket(valid, clock)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Priority() != TicketPriorityMedium {
		t.Fatalf("default priority: %s", ticket.Priority())
	}

	missingNumber := valid
	missingNumber.Number = TicketNumber{}
	_, err = NewTicket(missingNumber, clock)
	expectKind(t, err, KindNullArgument)

	cases := map[string]func(p *NewTicketParams){
		"empty title":      func(p *NewTicketParams) { p.Title = " " },
		"long title":       func(p *NewTicketParams) { p.Title = strings.Repeat("t", 256) },
		"long description": func(p *NewTicketParams) { p.Description = strings.Repeat("d", 5001) },
		"no organization":  func(p *NewTicketParams) { p.OrganizationID = uuid.Nil },
		"no machine":       func(p *NewTicketParams) { p.MachineID = uuid.Nil },
		"bad priority":     func(p *NewTicketParams) { p.Priority = "URGENT" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			params := valid
			mutate(&params)
			_, err := NewTicket(params, clock)
			expectKind(t, err, KindInvalidArgument)
		})
	}
}
