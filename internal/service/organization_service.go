package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
)

// OrganizationService coordinates organization workflows.
type OrganizationService struct {
	base
}

// NewOrganizationService constructs the service.
func NewOrganizationService(deps Dependencies) *OrganizationService {
	return &OrganizationService{base: newBase(deps)}
}

// ContactInfoInput describes a contact update.
type ContactInfoInput struct {
	Email   string
	Phone   string
	Address string
}

// Create registers a new organization.
func (s *OrganizationService) Create(ctx context.Context, actor uuid.UUID, params domain.NewOrganizationParams) (*domain.Organization, []domain.Event, error) {
	org, err := domain.NewOrganization(params, s.clock)
	if err != nil {
		return nil, nil, err
	}
	org.ActAs(actor)
	events, err := s.commit(ctx, "organization.created", org)
	if err != nil {
		return nil, nil, err
	}
	return org, events, nil
}

// Get fetches one organization.
func (s *OrganizationService) Get(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	return s.store.Organizations.GetByID(ctx, id)
}

// List returns organizations matching filter.
func (s *OrganizationService) List(ctx context.Context, filter repository.OrganizationFilter) ([]*domain.Organization, error) {
	return s.store.Organizations.ListWithFilter(ctx, filter)
}

func (s *OrganizationService) load(id uuid.UUID) func(context.Context) (*domain.Organization, error) {
	return func(ctx context.Context) (*domain.Organization, error) {
		return s.store.Organizations.GetByID(ctx, id)
	}
}

// UpdateServiceStatus applies the generic status change. Same-status calls succeed without events.
func (s *OrganizationService) UpdateServiceStatus(ctx context.Context, actor, id uuid.UUID, status domain.ServiceStatus, reason string) (*domain.Organization, []domain.Event, error) {
	return mutate(ctx, s.base, "organization.service_status_updated", actor, s.load(id), func(o *domain.Organization) ([]domain.Event, error) {
		return o.UpdateServiceStatus(status, reason)
	})
}

// Suspend suspends service for a reason.
func (s *OrganizationService) Suspend(ctx context.Context, actor, id uuid.UUID, reason string) (*domain.Organization, []domain.Event, error) {
	return mutate(ctx, s.base, "organization.suspended", actor, s.load(id), func(o *domain.Organization) ([]domain.Event, error) {
		return o.SuspendService(reason)
	})
}

// Reactivate lifts a suspension.
func (s *OrganizationService) Reactivate(ctx context.Context, actor, id uuid.UUID) (*domain.Organization, []domain.Event, error) {
	return mutate(ctx, s.base, "organization.reactivated", actor, s.load(id), func(o *domain.Organization) ([]domain.Event, error) {
		return o.ReactivateService()
	})
}

// UpdateContactInfo replaces contact details.
func (s *OrganizationService) UpdateContactInfo(ctx context.Context, actor, id uuid.UUID, input ContactInfoInput) (*domain.Organization, error) {
	org, _, err := mutate(ctx, s.base, "organization.contact_updated", actor, s.load(id), func(o *domain.Organization) ([]domain.Event, error) {
		return noEvents(o.UpdateContactInfo(input.Email, input.Phone, input.Address))
	})
	return org, err
}

// RenewContract moves the contract end date forward.
func (s *OrganizationService) RenewContract(ctx context.Context, actor, id uuid.UUID, newEndDate time.Time) (*domain.Organization, []domain.Event, error) {
	return mutate(ctx, s.base, "organization.contract_renewed", actor, s.load(id), func(o *domain.Organization) ([]domain.Event, error) {
		return o.RenewContract(newEndDate)
	})
}

// GenerateApiCredential issues a fresh organization credential.
func (s *OrganizationService) GenerateApiCredential(ctx context.Context, actor, id uuid.UUID) (*domain.Organization, []domain.Event, error) {
	return mutate(ctx, s.base, "organization.api_credential_generated", actor, s.load(id), func(o *domain.Organization) ([]domain.Event, error) {
		return o.GenerateApiCredential(), nil
	})
}

// CheckContractExpiration expires one organization whose contract has ended.
func (s *OrganizationService) CheckContractExpiration(ctx context.Context, id uuid.UUID) (*domain.Organization, []domain.Event, error) {
	return mutate(ctx, s.base, "organization.contract_checked", uuid.Nil, s.load(id), func(o *domain.Organization) ([]domain.Event, error) {
		return o.CheckContractExpiration()
	})
}

// SweepExpiredContracts expires every organization whose contract ended before now.
// Conflicting updates are skipped and picked up by the next sweep.
func (s *OrganizationService) SweepExpiredContracts(ctx context.Context, limit int) (int, error) {
	candidates, err := s.store.Organizations.ListExpiredContracts(ctx, s.clock.Now().UTC(), limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		_, events, err := s.CheckContractExpiration(ctx, candidate.ID())
		if err != nil {
			if domain.IsKind(err, domain.KindConcurrencyConflict) || domain.IsKind(err, domain.KindNotFound) {
				s.logger.Warn("skipping contract expiration", zap.String("organization_id", candidate.ID().String()), zap.Error(err))
				continue
			}
			return expired, err
		}
		if len(events) > 0 {
			expired++
		}
	}
	return expired, nil
}
