// Package memory implements the repository ports in process memory.
// It backs development mode and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/events"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
)

// Store keeps committed aggregate snapshots and the outbox behind one mutex.
type Store struct {
	mu            sync.Mutex
	clock         domain.Clock
	organizations map[uuid.UUID]domain.OrganizationState
	machines      map[uuid.UUID]domain.MachineState
	tickets       map[uuid.UUID]domain.TicketState
	intervals     map[uuid.UUID]domain.MaintenanceInterval
	outbox        []repository.OutboxEvent
	sequence      int64
	failNext      error
}

// NewStore returns an empty store.
func NewStore(clock domain.Clock) *Store {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Store{
		clock:         clock,
		organizations: make(map[uuid.UUID]domain.OrganizationState),
		machines:      make(map[uuid.UUID]domain.MachineState),
		tickets:       make(map[uuid.UUID]domain.TicketState),
		intervals:     make(map[uuid.UUID]domain.MaintenanceInterval),
	}
}

// Repositories exposes the store through the repository ports.
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Organizations: organizations{s},
		Machines:      machines{s},
		Tickets:       tickets{s},
		Intervals:     intervals{s},
		Outbox:        outbox{s},
		UnitOfWork:    s,
	}
}

// FailNextCommit makes the next Commit return err without storing anything.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

type staged struct {
	organizations map[uuid.UUID]domain.OrganizationState
	machines      map[uuid.UUID]domain.MachineState
	tickets       map[uuid.UUID]domain.TicketState
	events        []domain.Event
}

// Commit validates every aggregate against the stored versions before applying any of them.
func (s *Store) Commit(ctx context.Context, aggregates ...domain.AggregateRoot) error {
	const op = "unit_of_work.commit"
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}

	batch := staged{
		organizations: make(map[uuid.UUID]domain.OrganizationState),
		machines:      make(map[uuid.UUID]domain.MachineState),
		tickets:       make(map[uuid.UUID]domain.TicketState),
	}
	for _, aggregate := range aggregates {
		if err := s.stage(op, &batch, aggregate); err != nil {
			return err
		}
		batch.events = append(batch.events, aggregate.PendingEvents()...)
	}

	envelopes := make([]events.Envelope, 0, len(batch.events))
	for _, event := range batch.events {
		envelope, err := events.NewEnvelope(event)
		if err != nil {
			return err
		}
		envelopes = append(envelopes, envelope)
	}

	for id, state := range batch.organizations {
		s.organizations[id] = state
	}
	for id, state := range batch.machines {
		s.machines[id] = state
	}
	for id, state := range batch.tickets {
		s.tickets[id] = state
	}
	now := s.clock.Now().UTC()
	for _, envelope := range envelopes {
		s.sequence++
		s.outbox = append(s.outbox, repository.OutboxEvent{
			EventID:       envelope.ID,
			Sequence:      s.sequence,
			AggregateType: envelope.AggregateType,
			AggregateID:   envelope.AggregateID,
			EventType:     envelope.Type,
			Payload:       append([]byte(nil), envelope.Payload...),
			OccurredAt:    envelope.OccurredAt,
			Status:        repository.OutboxStatusPending,
			CreatedAt:     now,
		})
	}
	for _, aggregate := range aggregates {
		aggregate.MarkCommitted()
	}
	return nil
}

func (s *Store) stage(op string, batch *staged, aggregate domain.AggregateRoot) error {
	switch a := aggregate.(type) {
	case *domain.Organization:
		state := a.State()
		stored, exists := s.organizations[state.ID]
		if err := checkVersion(op, "organization", state.ID, state.Version, stored.Version, exists); err != nil {
			return err
		}
		state.Version++
		batch.organizations[state.ID] = state
	case *domain.Machine:
		state := a.State()
		stored, exists := s.machines[state.ID]
		if err := checkVersion(op, "machine", state.ID, state.Version, stored.Version, exists); err != nil {
			return err
		}
		if s.serialTaken(batch, state.ID, state.SerialNumber) {
			return domain.InvalidOperation(op, "machine with serial number "+state.SerialNumber+" already exists")
		}
		state.Version++
		batch.machines[state.ID] = state
	case *domain.Ticket:
		state := a.State()
		stored, exists := s.tickets[state.ID]
		if err := checkVersion(op, "ticket", state.ID, state.Version, stored.Version, exists); err != nil {
			return err
		}
		if s.numberTaken(batch, state.ID, state.Number) {
			return domain.InvalidOperation(op, "ticket "+state.Number.String()+" already exists")
		}
		state.Version++
		batch.tickets[state.ID] = state
	default:
		return fmt.Errorf("%s: unsupported aggregate %T", op, aggregate)
	}
	return nil
}

func checkVersion(op, resource string, id uuid.UUID, version, storedVersion int64, exists bool) error {
	switch {
	case version == 0 && exists:
		return domain.ConcurrencyConflict(op, fmt.Sprintf("%s %s already exists", resource, id), nil)
	case version > 0 && !exists:
		return domain.NotFound(op, resource)
	case version > 0 && storedVersion != version:
		return domain.ConcurrencyConflict(op, fmt.Sprintf("%s %s changed since version %d", resource, id, version), nil)
	}
	return nil
}

func (s *Store) serialTaken(batch *staged, id uuid.UUID, serial string) bool {
	for otherID, m := range s.machines {
		if otherID != id && strings.EqualFold(m.SerialNumber, serial) {
			return true
		}
	}
	for otherID, m := range batch.machines {
		if otherID != id && strings.EqualFold(m.SerialNumber, serial) {
			return true
		}
	}
	return false
}

func (s *Store) numberTaken(batch *staged, id uuid.UUID, number domain.TicketNumber) bool {
	for otherID, t := range s.tickets {
		if otherID != id && t.Number == number {
			return true
		}
	}
	for otherID, t := range batch.tickets {
		if otherID != id && t.Number == number {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	limit = repository.NormalizeLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func contains[T comparable](list []T, v T) bool {
	for _, candidate := range list {
		if candidate == v {
			return true
		}
	}
	return false
}

func matchesTerm(term *string, fields ...string) bool {
	if term == nil || strings.TrimSpace(*term) == "" {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(*term))
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

type organizations struct{ s *Store }

func (r organizations) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	r.s.mu.Lock()
	state, ok := r.s.organizations[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, domain.NotFound("organization.get", "organization")
	}
	return domain.RestoreOrganization(state, r.s.clock)
}

func (r organizations) ListWithFilter(ctx context.Context, filter repository.OrganizationFilter) ([]*domain.Organization, error) {
	return r.list(func(state domain.OrganizationState) bool {
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, state.ServiceStatus) {
			return false
		}
		return matchesTerm(filter.SearchTerm, state.Name, state.Email)
	}, func(a, b domain.OrganizationState) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.String() < b.ID.String()
	}, filter.Limit, filter.Offset)
}

func (r organizations) ListExpiredContracts(ctx context.Context, now time.Time, limit int) ([]*domain.Organization, error) {
	return r.list(func(state domain.OrganizationState) bool {
		return state.ContractEndDate != nil && state.ContractEndDate.Before(now) && state.ServiceStatus != domain.ServiceStatusExpired
	}, func(a, b domain.OrganizationState) bool {
		return a.ContractEndDate.Before(*b.ContractEndDate)
	}, limit, 0)
}

func (r organizations) list(keep func(domain.OrganizationState) bool, less func(a, b domain.OrganizationState) bool, limit, offset int) ([]*domain.Organization, error) {
	r.s.mu.Lock()
	var states []domain.OrganizationState
	for _, state := range r.s.organizations {
		if keep(state) {
			states = append(states, state)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(states, func(i, j int) bool { return less(states[i], states[j]) })
	var out []*domain.Organization
	for _, state := range page(states, limit, offset) {
		org, err := domain.RestoreOrganization(state, r.s.clock)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, nil
}

type machines struct{ s *Store }

func (r machines) GetByID(ctx context.Context, id uuid.UUID) (*domain.Machine, error) {
	r.s.mu.Lock()
	state, ok := r.s.machines[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, domain.NotFound("machine.get", "machine")
	}
	return domain.RestoreMachine(state, r.s.clock)
}

func (r machines) ListByOrganization(ctx context.Context, filter repository.MachineFilter) ([]*domain.Machine, error) {
	r.s.mu.Lock()
	var states []domain.MachineState
	for _, state := range r.s.machines {
		if state.OrganizationID != filter.OrganizationID {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, state.Status) {
			continue
		}
		states = append(states, state)
	}
	r.s.mu.Unlock()

	sort.Slice(states, func(i, j int) bool { return states[i].SerialNumber < states[j].SerialNumber })
	var out []*domain.Machine
	for _, state := range page(states, filter.Limit, filter.Offset) {
		m, err := domain.RestoreMachine(state, r.s.clock)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

type tickets struct{ s *Store }

func (r tickets) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	r.s.mu.Lock()
	state, ok := r.s.tickets[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, domain.NotFound("ticket.get", "ticket")
	}
	return domain.RestoreTicket(state, r.s.clock), nil
}

func (r tickets) GetByNumber(ctx context.Context, number domain.TicketNumber) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, state := range r.s.tickets {
		if state.Number == number {
			return domain.RestoreTicket(state, r.s.clock), nil
		}
	}
	return nil, domain.NotFound("ticket.get", "ticket")
}

func (r tickets) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]*domain.Ticket, error) {
	r.s.mu.Lock()
	var states []domain.TicketState
	for _, state := range r.s.tickets {
		if ticketMatches(state, filter) {
			states = append(states, state)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(states, func(i, j int) bool {
		a, b := states[i], states[j]
		if !a.Audit.CreatedAt.Equal(b.Audit.CreatedAt) {
			return a.Audit.CreatedAt.After(b.Audit.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	var out []*domain.Ticket
	for _, state := range page(states, filter.Limit, filter.Offset) {
		out = append(out, domain.RestoreTicket(state, r.s.clock))
	}
	return out, nil
}

func ticketMatches(state domain.TicketState, filter repository.TicketFilter) bool {
	switch {
	case filter.OrganizationID != nil && state.OrganizationID != *filter.OrganizationID:
		return false
	case filter.MachineID != nil && state.MachineID != *filter.MachineID:
		return false
	case filter.AssigneeID != nil && (state.AssignedToUserID == nil || *state.AssignedToUserID != *filter.AssigneeID):
		return false
	case len(filter.Statuses) > 0 && !contains(filter.Statuses, state.Status):
		return false
	case len(filter.Priorities) > 0 && !contains(filter.Priorities, state.Priority):
		return false
	case filter.CreatedFrom != nil && state.Audit.CreatedAt.Before(*filter.CreatedFrom):
		return false
	case filter.CreatedTo != nil && state.Audit.CreatedAt.After(*filter.CreatedTo):
		return false
	}
	return matchesTerm(filter.SearchTerm, state.Title, state.Description, state.Number.String())
}

type intervals struct{ s *Store }

func (r intervals) Create(ctx context.Context, interval domain.MaintenanceInterval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.intervals {
		if existing.ID == interval.ID || strings.EqualFold(existing.Name, interval.Name) {
			return domain.InvalidOperation("maintenance_interval.create", "maintenance interval already exists")
		}
	}
	r.s.intervals[interval.ID] = interval
	return nil
}

func (r intervals) GetByID(ctx context.Context, id uuid.UUID) (domain.MaintenanceInterval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	interval, ok := r.s.intervals[id]
	if !ok {
		return domain.MaintenanceInterval{}, domain.NotFound("maintenance_interval.get", "maintenance interval")
	}
	return interval, nil
}

func (r intervals) List(ctx context.Context) ([]domain.MaintenanceInterval, error) {
	r.s.mu.Lock()
	out := make([]domain.MaintenanceInterval, 0, len(r.s.intervals))
	for _, interval := range r.s.intervals {
		out = append(out, interval)
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Days != out[j].Days {
			return out[i].Days < out[j].Days
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

var _ repository.UnitOfWork = (*Store)(nil)
