package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/numbering"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/observability"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository/memory"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time          { return c.now }
func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	clock         *stepClock
	mem           *memory.Store
	store         *repository.Store
	organizations *OrganizationService
	machines      *MachineService
	tickets       *TicketService
	actor         uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &stepClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	mem := memory.NewStore(clock)
	deps := Dependencies{
		Store:        mem.Repositories(),
		Sequencer:    numbering.NewMemorySequencer(),
		Clock:        clock,
		Logger:       zaptest.NewLogger(t),
		Metrics:      observability.NewMetrics(),
		ReopenWindow: 14 * 24 * time.Hour,
	}
	return &fixture{
		clock:         clock,
		mem:           mem,
		store:         deps.Store,
		organizations: NewOrganizationService(deps),
		machines:      NewMachineService(deps),
		tickets:       NewTicketService(deps),
		actor:         uuid.New(),
	}
}

func (f *fixture) organization(t *testing.T, name string) *domain.Organization {
	t.Helper()
	org, _, err := f.organizations.Create(context.Background(), f.actor, domain.NewOrganizationParams{Name: name, Email: "ops@" + name + ".com"})
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return org
}

func (f *fixture) machine(t *testing.T, orgID uuid.UUID, serial string) *domain.Machine {
	t.Helper()
	m, _, err := f.machines.Register(context.Background(), f.actor, RegisterMachineInput{OrganizationID: orgID, SerialNumber: serial})
	if err != nil {
		t.Fatalf("register machine: %v", err)
	}
	return m
}

func expectKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	if !domain.IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func eventTypes(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType())
	}
	return out
}

func (f *fixture) outboxTypes(t *testing.T, aggregateID uuid.UUID) []domain.EventType {
	t.Helper()
	rows, err := f.store.Outbox.ListByAggregate(context.Background(), aggregateID)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	out := make([]domain.EventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func sameTypes(got []domain.EventType, want ...domain.EventType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
