package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/api/dto"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/service"
	apperrors "github.com/daniel-kazarnowicz-baumalog/flowertrack/pkg/util"
)

// MachinesHandler exposes machine and maintenance interval endpoints.
type MachinesHandler struct {
	service *service.MachineService
}

// NewMachinesHandler constructs handler.
func NewMachinesHandler(machineService *service.MachineService) *MachinesHandler {
	return &MachinesHandler{service: machineService}
}

// Register POST /machines.
func (h *MachinesHandler) Register(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RegisterMachineRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	orgID, err := parseUUID(req.OrganizationID, "organization_id")
	if err != nil {
		return err
	}
	m, events, err := h.service.Register(c.UserContext(), principal.UserID, service.RegisterMachineInput{
		OrganizationID: orgID,
		SerialNumber:   req.SerialNumber,
		Brand:          req.Brand,
		Model:          req.Model,
		Location:       req.Location,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": machineResponse(m), "events": eventsResponse(events)})
}

// ListByOrganization GET /organizations/:id/machines.
func (h *MachinesHandler) ListByOrganization(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	orgID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if !principal.CanAccessOrganization(orgID) {
		return apperrors.NewForbidden("organization not accessible")
	}
	filter := repository.MachineFilter{OrganizationID: orgID}
	for _, s := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.MachineStatus(strings.ToUpper(s)))
	}
	filter.Limit, filter.Offset = pagination(c)
	machines, err := h.service.ListByOrganization(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.MachineResponse, 0, len(machines))
	for _, m := range machines {
		items = append(items, machineResponse(m))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /machines/:id.
func (h *MachinesHandler) Get(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !principal.CanAccessOrganization(m.OrganizationID()) {
		return apperrors.NewForbidden("machine not accessible")
	}
	return c.JSON(fiber.Map{"data": machineResponse(m)})
}

// GenerateToken POST /machines/:id/api-token. The raw token is returned only here.
func (h *MachinesHandler) GenerateToken(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	m, events, err := h.service.GenerateApiToken(c.UserContext(), principal.UserID, id)
	return respondToken(c, m, events, err)
}

// RegenerateToken POST /machines/:id/api-token/regenerate.
func (h *MachinesHandler) RegenerateToken(c *fiber.Ctx) error {
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
	m, events, err := h.service.RegenerateApiToken(c.UserContext(), principal.UserID, id, req.Reason)
	return respondToken(c, m, events, err)
}

// UpdateStatus PUT /machines/:id/status.
func (h *MachinesHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateMachineStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, events, err := h.service.UpdateStatus(c.UserContext(), principal.UserID, id, domain.MachineStatus(req.Status), req.Reason)
	return respondMachine(c, m, events, err)
}

// ScheduleMaintenance POST /machines/:id/maintenance/schedule.
func (h *MachinesHandler) ScheduleMaintenance(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.MaintenanceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	intervalID, err := optionalUUID(req.IntervalID, "interval_id")
	if err != nil {
		return err
	}
	m, events, err := h.service.ScheduleMaintenance(c.UserContext(), principal.UserID, id, req.Date, intervalID)
	return respondMachine(c, m, events, err)
}

// CompleteMaintenance POST /machines/:id/maintenance/complete.
func (h *MachinesHandler) CompleteMaintenance(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.MaintenanceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	intervalID, err := optionalUUID(req.IntervalID, "interval_id")
	if err != nil {
		return err
	}
	m, events, err := h.service.CompleteMaintenance(c.UserContext(), principal.UserID, id, req.Date, intervalID)
	return respondMachine(c, m, events, err)
}

// ActivateAlarm POST /machines/:id/alarm.
func (h *MachinesHandler) ActivateAlarm(c *fiber.Ctx) error {
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
	m, events, err := h.service.ActivateAlarm(c.UserContext(), principal.UserID, id, req.Reason)
	return respondMachine(c, m, events, err)
}

// ClearAlarm POST /machines/:id/alarm/clear.
func (h *MachinesHandler) ClearAlarm(c *fiber.Ctx) error {
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
	m, events, err := h.service.ClearAlarm(c.UserContext(), principal.UserID, id, req.Reason)
	return respondMachine(c, m, events, err)
}

// UpdateLocation PUT /machines/:id/location.
func (h *MachinesHandler) UpdateLocation(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.LocationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.service.UpdateLocation(c.UserContext(), principal.UserID, id, req.Location)
	return respondMachine(c, m, nil, err)
}

// CreateInterval POST /maintenance-intervals.
func (h *MachinesHandler) CreateInterval(c *fiber.Ctx) error {
	var req dto.CreateIntervalRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	interval, err := h.service.CreateMaintenanceInterval(c.UserContext(), req.Name, req.Days)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": intervalResponse(interval)})
}

// ListIntervals GET /maintenance-intervals.
func (h *MachinesHandler) ListIntervals(c *fiber.Ctx) error {
	intervals, err := h.service.ListMaintenanceIntervals(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.IntervalResponse, 0, len(intervals))
	for _, interval := range intervals {
		items = append(items, intervalResponse(interval))
	}
	return c.JSON(fiber.Map{"data": items})
}

func respondMachine(c *fiber.Ctx, m *domain.Machine, events []domain.Event, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": machineResponse(m), "events": eventsResponse(events)})
}

func respondToken(c *fiber.Ctx, m *domain.Machine, events []domain.Event, err error) error {
	if err != nil {
		return err
	}
	token := m.APIToken()
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":   dto.CredentialResponse{Token: token.Value(), Masked: token.String()},
		"events": eventsResponse(events),
	})
}

func machineResponse(m *domain.Machine) dto.MachineResponse {
	return dto.MachineResponse{
		ID:                    m.ID().String(),
		OrganizationID:        m.OrganizationID().String(),
		SerialNumber:          m.SerialNumber(),
		Brand:                 m.Brand(),
		Model:                 m.Model(),
		Location:              m.Location(),
		Status:                string(m.Status()),
		HasAPIToken:           !m.APIToken().IsZero(),
		LastMaintenanceDate:   m.LastMaintenanceDate(),
		NextMaintenanceDate:   m.NextMaintenanceDate(),
		MaintenanceIntervalID: idString(m.MaintenanceIntervalID()),
		Version:               m.Version(),
		CreatedAt:             m.Audit().CreatedAt,
	}
}

func intervalResponse(interval domain.MaintenanceInterval) dto.IntervalResponse {
	return dto.IntervalResponse{ID: interval.ID.String(), Name: interval.Name, Days: interval.Days}
}
