package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

type pgUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork that writes aggregates and outbox rows in one transaction.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgUnitOfWork{pool: pool}
}

func (u *pgUnitOfWork) Commit(ctx context.Context, aggregates ...domain.AggregateRoot) (err error) {
	const op = "unit_of_work.commit"
	if len(aggregates) == 0 {
		return nil
	}

	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, aggregate := range aggregates {
		if err = saveAggregate(ctx, tx, aggregate); err != nil {
			return mapError(op, string(aggregate.AggregateType()), err)
		}
		for _, event := range aggregate.PendingEvents() {
			if err = insertOutboxEvent(ctx, tx, event); err != nil {
				return mapError(op, "outbox event", err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return mapError(op, "transaction", err)
	}
	for _, aggregate := range aggregates {
		aggregate.MarkCommitted()
	}
	return nil
}

func saveAggregate(ctx context.Context, db DBTX, aggregate domain.AggregateRoot) error {
	switch a := aggregate.(type) {
	case *domain.Organization:
		return saveOrganization(ctx, db, a)
	case *domain.Machine:
		return saveMachine(ctx, db, a)
	case *domain.Ticket:
		return saveTicket(ctx, db, a)
	default:
		return fmt.Errorf("unsupported aggregate %T", aggregate)
	}
}

// NewPostgresStore wires every port to the pool.
func NewPostgresStore(pool *pgxpool.Pool, clock domain.Clock) *Store {
	return &Store{
		Organizations: NewOrganizationRepository(pool, clock),
		Machines:      NewMachineRepository(pool, clock),
		Tickets:       NewTicketRepository(pool, clock),
		Intervals:     NewMaintenanceIntervalRepository(pool),
		Outbox:        NewOutboxRepository(pool),
		UnitOfWork:    NewUnitOfWork(pool),
	}
}
