package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/api/dto"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/auth"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/service"
	apperrors "github.com/daniel-kazarnowicz-baumalog/flowertrack/pkg/util"
)

// OrganizationsHandler exposes organization endpoints.
type OrganizationsHandler struct {
	service *service.OrganizationService
}

// NewOrganizationsHandler constructs handler.
func NewOrganizationsHandler(organizationService *service.OrganizationService) *OrganizationsHandler {
	return &OrganizationsHandler{service: organizationService}
}

// Create POST /organizations.
func (h *OrganizationsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateOrganizationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	org, events, err := h.service.Create(c.UserContext(), principal.UserID, domain.NewOrganizationParams{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Notes:      req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": organizationResponse(org), "events": eventsResponse(events)})
}

// List GET /organizations.
func (h *OrganizationsHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if principal.Role == auth.RoleClient {
		return apperrors.NewForbidden("clients cannot list organizations")
	}
	filter := repository.OrganizationFilter{SearchTerm: queryString(c, "q")}
	for _, s := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.ServiceStatus(strings.ToUpper(s)))
	}
	filter.Limit, filter.Offset = pagination(c)
	orgs, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.OrganizationResponse, 0, len(orgs))
	for _, org := range orgs {
		items = append(items, organizationResponse(org))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /organizations/:id.
func (h *OrganizationsHandler) Get(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if !principal.CanAccessOrganization(id) {
		return apperrors.NewForbidden("organization not accessible")
	}
	org, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": organizationResponse(org)})
}

// UpdateServiceStatus PUT /organizations/:id/service-status.
func (h *OrganizationsHandler) UpdateServiceStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateServiceStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	org, events, err := h.service.UpdateServiceStatus(c.UserContext(), principal.UserID, id, domain.ServiceStatus(req.Status), req.Reason)
	return respondOrganization(c, org, events, err)
}

// Suspend POST /organizations/:id/suspend.
func (h *OrganizationsHandler) Suspend(c *fiber.Ctx) error {
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
	org, events, err := h.service.Suspend(c.UserContext(), principal.UserID, id, req.Reason)
	return respondOrganization(c, org, events, err)
}

// Reactivate POST /organizations/:id/reactivate.
func (h *OrganizationsHandler) Reactivate(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	org, events, err := h.service.Reactivate(c.UserContext(), principal.UserID, id)
	return respondOrganization(c, org, events, err)
}

// UpdateContact PUT /organizations/:id/contact.
func (h *OrganizationsHandler) UpdateContact(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ContactInfoRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	org, err := h.service.UpdateContactInfo(c.UserContext(), principal.UserID, id, service.ContactInfoInput{
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	return respondOrganization(c, org, nil, err)
}

// RenewContract POST /organizations/:id/contract/renew.
func (h *OrganizationsHandler) RenewContract(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.RenewContractRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	org, events, err := h.service.RenewContract(c.UserContext(), principal.UserID, id, req.ContractEndDate)
	return respondOrganization(c, org, events, err)
}

// CheckContract POST /organizations/:id/contract/check.
func (h *OrganizationsHandler) CheckContract(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	org, events, err := h.service.CheckContractExpiration(c.UserContext(), id)
	return respondOrganization(c, org, events, err)
}

// GenerateCredential POST /organizations/:id/api-credential. The raw secret is returned only here.
func (h *OrganizationsHandler) GenerateCredential(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	org, events, err := h.service.GenerateApiCredential(c.UserContext(), principal.UserID, id)
	if err != nil {
		return err
	}
	credential := org.APICredential()
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":   dto.CredentialResponse{Token: credential.Value(), Masked: credential.String()},
		"events": eventsResponse(events),
	})
}

func respondOrganization(c *fiber.Ctx, org *domain.Organization, events []domain.Event, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": organizationResponse(org), "events": eventsResponse(events)})
}

func organizationResponse(org *domain.Organization) dto.OrganizationResponse {
	audit := org.Audit()
	return dto.OrganizationResponse{
		ID:                org.ID().String(),
		Name:              org.Name(),
		Email:             org.Email().String(),
		Phone:             org.Phone(),
		Address:           org.Address(),
		City:              org.City(),
		PostalCode:        org.PostalCode(),
		Country:           org.Country(),
		Notes:             org.Notes(),
		ServiceStatus:     string(org.ServiceStatus()),
		ContractStartDate: org.ContractStartDate(),
		ContractEndDate:   org.ContractEndDate(),
		HasAPICredential:  !org.APICredential().IsZero(),
		Version:           org.Version(),
		CreatedAt:         audit.CreatedAt,
		UpdatedAt:         audit.UpdatedAt,
	}
}
