package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/numbering"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/observability"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
)

// Dependencies bundles what the application services need.
type Dependencies struct {
	Store        *repository.Store
	Sequencer    numbering.Sequencer
	Clock        domain.Clock
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	ReopenWindow time.Duration
}

type base struct {
	store   *repository.Store
	clock   domain.Clock
	logger  *zap.Logger
	metrics *observability.Metrics
}

func newBase(deps Dependencies) base {
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{store: deps.Store, clock: clock, logger: logger, metrics: deps.Metrics}
}

// mutable is an aggregate the services can stamp with the acting user.
type mutable interface {
	domain.AggregateRoot
	ActAs(userID uuid.UUID)
	HasChanges() bool
}

// commit persists one aggregate and returns the events it committed.
func (b base) commit(ctx context.Context, op string, aggregate domain.AggregateRoot) ([]domain.Event, error) {
	pending := aggregate.PendingEvents()
	kind := string(aggregate.AggregateType())
	if err := b.store.UnitOfWork.Commit(ctx, aggregate); err != nil {
		if domain.IsKind(err, domain.KindConcurrencyConflict) {
			b.metrics.RecordCommit(kind, "conflict")
			b.logger.Warn("concurrent modification", zap.String("op", op), zap.String("aggregate_id", aggregate.ID().String()), zap.Error(err))
		} else {
			b.metrics.RecordCommit(kind, "error")
			b.logger.Error("commit failed", zap.String("op", op), zap.String("aggregate_id", aggregate.ID().String()), zap.Error(err))
		}
		return nil, err
	}
	b.metrics.RecordCommit(kind, "ok")
	for _, event := range pending {
		b.metrics.RecordEvent(string(event.EventType()))
	}
	b.logger.Info(op,
		zap.String("aggregate_id", aggregate.ID().String()),
		zap.Int64("version", aggregate.Version()),
		zap.Int("events", len(pending)),
	)
	return pending, nil
}

// mutate loads one aggregate, applies one operation as actor and commits it.
// Operations that leave the aggregate untouched are not committed.
func mutate[A mutable](ctx context.Context, b base, op string, actor uuid.UUID, load func(context.Context) (A, error), apply func(A) ([]domain.Event, error)) (A, []domain.Event, error) {
	aggregate, err := load(ctx)
	if err != nil {
		var zero A
		return zero, nil, err
	}
	aggregate.ActAs(actor)
	if _, err := apply(aggregate); err != nil {
		var zero A
		return zero, nil, err
	}
	if !aggregate.HasChanges() {
		return aggregate, nil, nil
	}
	committed, err := b.commit(ctx, op, aggregate)
	if err != nil {
		var zero A
		return zero, nil, err
	}
	return aggregate, committed, nil
}

// noEvents adapts mutators that report only an error.
func noEvents(err error) ([]domain.Event, error) { return nil, err }
