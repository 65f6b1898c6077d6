package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/numbering"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	base
	sequencer    numbering.Sequencer
	reopenWindow time.Duration
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	sequencer := deps.Sequencer
	if sequencer == nil {
		sequencer = numbering.NewMemorySequencer()
	}
	return &TicketService{
		base:         newBase(deps),
		sequencer:    sequencer,
		reopenWindow: deps.ReopenWindow,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	OrganizationID uuid.UUID
	MachineID      uuid.UUID
	Title          string
	Description    string
	Priority       domain.TicketPriority
}

// CreateTicket opens a ticket against a machine of the given organization.
func (s *TicketService) CreateTicket(ctx context.Context, actor uuid.UUID, input TicketCreateInput) (*domain.Ticket, []domain.Event, error) {
	const op = "ticket.create"
	if _, err := s.store.Organizations.GetByID(ctx, input.OrganizationID); err != nil {
		return nil, nil, err
	}
	machine, err := s.store.Machines.GetByID(ctx, input.MachineID)
	if err != nil {
		return nil, nil, err
	}
	if machine.OrganizationID() != input.OrganizationID {
		return nil, nil, domain.InvalidOperation(op, "machine does not belong to the organization")
	}
	number, err := numbering.NextTicketNumber(ctx, s.sequencer, s.clock)
	if err != nil {
		return nil, nil, err
	}
	ticket, err := domain.NewTicket(domain.NewTicketParams{
		Number:          number,
		Title:           input.Title,
		Description:     input.Description,
		OrganizationID:  input.OrganizationID,
		MachineID:       machine.ID(),
		Priority:        input.Priority,
		CreatedByUserID: actor,
	}, s.clock)
	if err != nil {
		return nil, nil, err
	}
	ticket.ActAs(actor)
	events, err := s.commit(ctx, "ticket.created", ticket)
	if err != nil {
		return nil, nil, err
	}
	return ticket, events, nil
}

// Get fetches one ticket.
func (s *TicketService) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return s.store.Tickets.GetByID(ctx, id)
}

// GetByNumber fetches a ticket by its rendered number.
func (s *TicketService) GetByNumber(ctx context.Context, raw string) (*domain.Ticket, error) {
	number, err := domain.ParseTicketNumber(strings.ToUpper(strings.TrimSpace(raw)), s.clock)
	if err != nil {
		return nil, err
	}
	return s.store.Tickets.GetByNumber(ctx, number)
}

// List returns tickets matching filter.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]*domain.Ticket, error) {
	return s.store.Tickets.ListWithFilter(ctx, filter)
}

func (s *TicketService) load(id uuid.UUID) func(context.Context) (*domain.Ticket, error) {
	return func(ctx context.Context) (*domain.Ticket, error) {
		return s.store.Tickets.GetByID(ctx, id)
	}
}

func (s *TicketService) AssignTo(ctx context.Context, actor, id, assignee uuid.UUID) (*domain.Ticket, []domain.Event, error) {
	return mutate(ctx, s.base, "ticket.assigned", actor, s.load(id), func(t *domain.Ticket) ([]domain.Event, error) {
		return t.AssignTo(assignee, actor)
	})
}

func (s *TicketService) UpdateStatus(ctx context.Context, actor, id uuid.UUID, status domain.TicketStatus, reason string) (*domain.Ticket, []domain.Event, error) {
	return mutate(ctx, s.base, "ticket.status_updated", actor, s.load(id), func(t *domain.Ticket) ([]domain.Event, error) {
		if status == domain.TicketStatusReopened {
			if err := s.checkReopenWindow(t); err != nil {
				return nil, err
			}
		}
		return t.UpdateStatus(status, reason, actor)
	})
}

func (s *TicketService) Resolve(ctx context.Context, actor, id uuid.UUID, reason string) (*domain.Ticket, []domain.Event, error) {
	return mutate(ctx, s.base, "ticket.resolved", actor, s.load(id), func(t *domain.Ticket) ([]domain.Event, error) {
		return t.Resolve(reason, actor)
	})
}

func (s *TicketService) Close(ctx context.Context, actor, id uuid.UUID, reason string) (*domain.Ticket, []domain.Event, error) {
	return mutate(ctx, s.base, "ticket.closed", actor, s.load(id), func(t *domain.Ticket) ([]domain.Event, error) {
		return t.Close(reason, actor)
	})
}

// Reopen returns a resolved or closed ticket to work, within the reopen window after closure.
func (s *TicketService) Reopen(ctx context.Context, actor, id uuid.UUID, reason string) (*domain.Ticket, []domain.Event, error) {
	return mutate(ctx, s.base, "ticket.reopened", actor, s.load(id), func(t *domain.Ticket) ([]domain.Event, error) {
		if err := s.checkReopenWindow(t); err != nil {
			return nil, err
		}
		return t.Reopen(reason, actor)
	})
}

func (s *TicketService) checkReopenWindow(t *domain.Ticket) error {
	closedAt := t.ClosedAt()
	if s.reopenWindow <= 0 || t.Status() != domain.TicketStatusClosed || closedAt == nil {
		return nil
	}
	if s.clock.Now().UTC().After(closedAt.Add(s.reopenWindow)) {
		return domain.InvalidOperation("ticket.reopen", "reopen window has passed")
	}
	return nil
}
