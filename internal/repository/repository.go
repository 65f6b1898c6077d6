package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

// DBTX lets the same statements run on the pool or inside a transaction.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// OrganizationFilter captures organization search parameters.
type OrganizationFilter struct {
	Statuses   []domain.ServiceStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// MachineFilter captures machine search parameters within one organization.
type MachineFilter struct {
	OrganizationID uuid.UUID
	Statuses       []domain.MachineStatus
	Limit          int
	Offset         int
}

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	OrganizationID *uuid.UUID
	MachineID      *uuid.UUID
	AssigneeID     *uuid.UUID
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	SearchTerm     *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// OrganizationRepository loads organizations.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	ListWithFilter(ctx context.Context, filter OrganizationFilter) ([]*domain.Organization, error)
	// ListExpiredContracts returns non-expired organizations whose contract ended before now.
	ListExpiredContracts(ctx context.Context, now time.Time, limit int) ([]*domain.Organization, error)
}

// MachineRepository loads machines.
type MachineRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Machine, error)
	ListByOrganization(ctx context.Context, filter MachineFilter) ([]*domain.Machine, error)
}

// TicketRepository loads tickets.
type TicketRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number domain.TicketNumber) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error)
}

// MaintenanceIntervalRepository stores reusable maintenance cadences.
type MaintenanceIntervalRepository interface {
	Create(ctx context.Context, interval domain.MaintenanceInterval) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.MaintenanceInterval, error)
	List(ctx context.Context) ([]domain.MaintenanceInterval, error)
}

// UnitOfWork persists aggregates together with their pending events.
// Either every aggregate and every event is stored, or nothing is.
// MarkCommitted is called on each aggregate only after the commit succeeded.
type UnitOfWork interface {
	Commit(ctx context.Context, aggregates ...domain.AggregateRoot) error
}

// Store bundles the persistence ports used by the services.
type Store struct {
	Organizations OrganizationRepository
	Machines      MachineRepository
	Tickets       TicketRepository
	Intervals     MaintenanceIntervalRepository
	Outbox        OutboxRepository
	UnitOfWork    UnitOfWork
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// NormalizeLimit clamps page sizes to the supported range.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// mapError converts driver failures into domain faults.
func mapError(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(op, resource)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			if strings.HasSuffix(pgErr.ConstraintName, "_pkey") {
				return domain.ConcurrencyConflict(op, resource+" was created concurrently", err)
			}
			return domain.InvalidOperation(op, resource+" already exists")
		case "40001", "40P01":
			return domain.ConcurrencyConflict(op, "concurrent update of "+resource, err)
		}
	}
	return err
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
