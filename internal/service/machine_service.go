package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
)

// MachineService coordinates machine workflows and maintenance intervals.
type MachineService struct {
	base
}

// NewMachineService constructs the service.
func NewMachineService(deps Dependencies) *MachineService {
	return &MachineService{base: newBase(deps)}
}

// RegisterMachineInput describes a machine registration.
type RegisterMachineInput struct {
	OrganizationID uuid.UUID
	SerialNumber   string
	Brand          string
	Model          string
	Location       string
}

// Register adds a machine to an organization whose service is active.
func (s *MachineService) Register(ctx context.Context, actor uuid.UUID, input RegisterMachineInput) (*domain.Machine, []domain.Event, error) {
	const op = "machine.register"
	org, err := s.store.Organizations.GetByID(ctx, input.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	if !org.CanRegisterMachines() {
		return nil, nil, domain.InvalidOperation(op, "organization service is "+string(org.ServiceStatus()))
	}
	m, err := domain.NewMachine(domain.NewMachineParams{
		OrganizationID: org.ID(),
		SerialNumber:   input.SerialNumber,
		Brand:          input.Brand,
		Model:          input.Model,
		Location:       input.Location,
	}, s.clock)
	if err != nil {
		return nil, nil, err
	}
	m.ActAs(actor)
	events, err := s.commit(ctx, "machine.registered", m)
	if err != nil {
		return nil, nil, err
	}
	return m, events, nil
}

// Get fetches one machine.
func (s *MachineService) Get(ctx context.Context, id uuid.UUID) (*domain.Machine, error) {
	return s.store.Machines.GetByID(ctx, id)
}

// ListByOrganization returns the machines of one organization.
func (s *MachineService) ListByOrganization(ctx context.Context, filter repository.MachineFilter) ([]*domain.Machine, error) {
	return s.store.Machines.ListByOrganization(ctx, filter)
}

func (s *MachineService) load(id uuid.UUID) func(context.Context) (*domain.Machine, error) {
	return func(ctx context.Context) (*domain.Machine, error) {
		return s.store.Machines.GetByID(ctx, id)
	}
}

func (s *MachineService) interval(ctx context.Context, id *uuid.UUID) (*domain.MaintenanceInterval, error) {
	if id == nil {
		return nil, nil
	}
	interval, err := s.store.Intervals.GetByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	return &interval, nil
}

func (s *MachineService) GenerateApiToken(ctx context.Context, actor, id uuid.UUID) (*domain.Machine, []domain.Event, error) {
	return mutate(ctx, s.base, "machine.api_token_generated", actor, s.load(id), func(m *domain.Machine) ([]domain.Event, error) {
		return m.GenerateApiToken(), nil
	})
}

func (s *MachineService) RegenerateApiToken(ctx context.Context, actor, id uuid.UUID, reason string) (*domain.Machine, []domain.Event, error) {
	return mutate(ctx, s.base, "machine.api_token_regenerated", actor, s.load(id), func(m *domain.Machine) ([]domain.Event, error) {
		return m.RegenerateApiToken(reason)
	})
}

func (s *MachineService) UpdateStatus(ctx context.Context, actor, id uuid.UUID, status domain.MachineStatus, reason string) (*domain.Machine, []domain.Event, error) {
	return mutate(ctx, s.base, "machine.status_updated", actor, s.load(id), func(m *domain.Machine) ([]domain.Event, error) {
		return m.UpdateStatus(status, reason)
	})
}

// ScheduleMaintenance sets the next maintenance day, optionally tied to an interval.
func (s *MachineService) ScheduleMaintenance(ctx context.Context, actor, id uuid.UUID, date time.Time, intervalID *uuid.UUID) (*domain.Machine, []domain.Event, error) {
	interval, err := s.interval(ctx, intervalID)
	if err != nil {
		return nil, nil, err
	}
	return mutate(ctx, s.base, "machine.maintenance_scheduled", actor, s.load(id), func(m *domain.Machine) ([]domain.Event, error) {
		return m.ScheduleMaintenance(date, interval)
	})
}

// CompleteMaintenance records a completed maintenance and schedules the next one from the interval.
func (s *MachineService) CompleteMaintenance(ctx context.Context, actor, id uuid.UUID, completed time.Time, intervalID *uuid.UUID) (*domain.Machine, []domain.Event, error) {
	interval, err := s.interval(ctx, intervalID)
	if err != nil {
		return nil, nil, err
	}
	return mutate(ctx, s.base, "machine.maintenance_completed", actor, s.load(id), func(m *domain.Machine) ([]domain.Event, error) {
		return m.CompleteMaintenance(completed, interval)
	})
}

func (s *MachineService) ActivateAlarm(ctx context.Context, actor, id uuid.UUID, reason string) (*domain.Machine, []domain.Event, error) {
	return mutate(ctx, s.base, "machine.alarm_activated", actor, s.load(id), func(m *domain.Machine) ([]domain.Event, error) {
		return m.ActivateAlarm(reason)
	})
}

func (s *MachineService) ClearAlarm(ctx context.Context, actor, id uuid.UUID, reason string) (*domain.Machine, []domain.Event, error) {
	return mutate(ctx, s.base, "machine.alarm_cleared", actor, s.load(id), func(m *domain.Machine) ([]domain.Event, error) {
		return m.ClearAlarm(reason)
	})
}

func (s *MachineService) UpdateLocation(ctx context.Context, actor, id uuid.UUID, location string) (*domain.Machine, error) {
	m, _, err := mutate(ctx, s.base, "machine.location_updated", actor, s.load(id), func(m *domain.Machine) ([]domain.Event, error) {
		return noEvents(m.UpdateLocation(location))
	})
	return m, err
}

// CreateMaintenanceInterval stores a reusable maintenance cadence.
func (s *MachineService) CreateMaintenanceInterval(ctx context.Context, name string, days int) (domain.MaintenanceInterval, error) {
	interval, err := domain.NewMaintenanceInterval(name, days)
	if err != nil {
		return domain.MaintenanceInterval{}, err
	}
	if err := s.store.Intervals.Create(ctx, interval); err != nil {
		return domain.MaintenanceInterval{}, err
	}
	return interval, nil
}

// ListMaintenanceIntervals returns every stored cadence.
func (s *MachineService) ListMaintenanceIntervals(ctx context.Context) ([]domain.MaintenanceInterval, error) {
	return s.store.Intervals.List(ctx)
}
