package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/api/dto"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/auth"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/service"
	apperrors "github.com/daniel-kazarnowicz-baumalog/flowertrack/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	orgID, err := parseUUID(req.OrganizationID, "organization_id")
	if err != nil {
		return err
	}
	machineID, err := parseUUID(req.MachineID, "machine_id")
	if err != nil {
		return err
	}
	if !principal.CanAccessOrganization(orgID) {
		return apperrors.NewForbidden("organization not accessible")
	}

	ticket, events, err := h.service.CreateTicket(c.UserContext(), principal.UserID, service.TicketCreateInput{
		OrganizationID: orgID,
		MachineID:      machineID,
		Title:          req.Title,
		Description:    req.Description,
		Priority:       domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket), "events": eventsResponse(events)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	if principal.Role == auth.RoleClient {
		if principal.OrganizationID == nil {
			return apperrors.NewForbidden("client is not bound to an organization")
		}
		filter.OrganizationID = principal.OrganizationID
	}
	tickets, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, ticketResponse(t))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), id)
	return respondVisibleTicket(c, principal, ticket, err)
}

// GetTicketByNumber GET /tickets/number/:number.
func (h *TicketsHandler) GetTicketByNumber(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetByNumber(c.UserContext(), c.Params("number"))
	return respondVisibleTicket(c, principal, ticket, err)
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	assignee, err := parseUUID(req.AssigneeUserID, "assignee_user_id")
	if err != nil {
		return err
	}
	ticket, events, err := h.service.AssignTo(c.UserContext(), principal.UserID, id, assignee)
	return respondTicket(c, ticket, events, err)
}

// UpdateStatus PUT /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, events, err := h.service.UpdateStatus(c.UserContext(), principal.UserID, id, domain.TicketStatus(req.Status), req.Reason)
	return respondTicket(c, ticket, events, err)
}

// Resolve POST /tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	return h.withReason(c, h.service.Resolve)
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	return h.withReason(c, h.service.Close)
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	return h.withReason(c, h.service.Reopen)
}

type reasonOperation func(ctx context.Context, actor, id uuid.UUID, reason string) (*domain.Ticket, []domain.Event, error)

func (h *TicketsHandler) withReason(c *fiber.Ctx, op reasonOperation) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ReasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if principal.Role == auth.RoleClient {
		current, err := h.service.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		if !principal.CanAccessOrganization(current.OrganizationID()) {
			return apperrors.NewNotFound("ticket", nil)
		}
	}
	ticket, events, err := op(c.UserContext(), principal.UserID, id, req.Reason)
	return respondTicket(c, ticket, events, err)
}

func parseTicketQuery(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{SearchTerm: queryString(c, "q")}
	for key, target := range map[string]**uuid.UUID{
		"organization_id": &filter.OrganizationID,
		"machine_id":      &filter.MachineID,
		"assignee_id":     &filter.AssigneeID,
	} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		id, err := parseUUID(raw, key)
		if err != nil {
			return filter, err
		}
		*target = &id
	}
	for _, s := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(s)))
	}
	for _, p := range queryList(c, "priority") {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(p)))
	}
	filter.CreatedFrom = queryTime(c, "created_from")
	filter.CreatedTo = queryTime(c, "created_to")
	filter.Limit, filter.Offset = pagination(c)
	return filter, nil
}

func respondVisibleTicket(c *fiber.Ctx, principal *auth.Principal, ticket *domain.Ticket, err error) error {
	if err != nil {
		return err
	}
	if !principal.CanAccessOrganization(ticket.OrganizationID()) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func respondTicket(c *fiber.Ctx, ticket *domain.Ticket, events []domain.Event, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket), "events": eventsResponse(events)})
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	audit := t.Audit()
	return dto.TicketResponse{
		ID:               t.ID().String(),
		TicketNumber:     t.Number().String(),
		OrganizationID:   t.OrganizationID().String(),
		MachineID:        t.MachineID().String(),
		Title:            t.Title(),
		Description:      t.Description(),
		Priority:         string(t.Priority()),
		Status:           string(t.Status()),
		CreatedByUserID:  t.CreatedByUserID().String(),
		AssignedToUserID: idString(t.AssignedToUserID()),
		ResolvedAt:       t.ResolvedAt(),
		ClosedAt:         t.ClosedAt(),
		Version:          t.Version(),
		CreatedAt:        audit.CreatedAt,
		UpdatedAt:        audit.UpdatedAt,
	}
}
