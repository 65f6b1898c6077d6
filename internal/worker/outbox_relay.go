package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/events"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/observability"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
)

const (
	baseRetryDelay = 5 * time.Second
	maxRetryDelay  = 5 * time.Minute
	defaultLease   = 5 * time.Minute
)

// RelayConfig tunes one OutboxRelay.
type RelayConfig struct {
	Owner       string
	BatchSize   int
	MaxAttempts int
	// Lease is how long a claim holds before another relay may take the event over.
	Lease time.Duration
}

// RelayResult summarizes one relay pass.
type RelayResult struct {
	Claimed   int
	Delivered int
	Failed    int
	Dead      int
	Skipped   int
}

// OutboxRelay moves committed events from the outbox to a sink.
type OutboxRelay struct {
	outbox  repository.OutboxRepository
	sink    events.Sink
	clock   domain.Clock
	logger  *zap.Logger
	metrics *observability.Metrics
	cfg     RelayConfig
}

// NewOutboxRelay creates a relay. Zero config values fall back to defaults.
func NewOutboxRelay(outbox repository.OutboxRepository, sink events.Sink, clock domain.Clock, logger *zap.Logger, metrics *observability.Metrics, cfg RelayConfig) *OutboxRelay {
	if clock == nil {
		clock = domain.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Owner == "" {
		cfg.Owner = "relay-" + uuid.NewString()[:8]
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaultLease
	}
	return &OutboxRelay{
		outbox:  outbox,
		sink:    sink,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// RunOnce claims one batch and publishes it in commit order.
// After a failure the remaining events of that aggregate are released untouched,
// so a later event never overtakes an earlier one. If bookkeeping fails the rest of
// the batch is released and the event in hand waits for its lease to expire.
func (r *OutboxRelay) RunOnce(ctx context.Context) (RelayResult, error) {
	var result RelayResult
	batch, err := r.outbox.ClaimPending(ctx, r.cfg.Owner, r.cfg.BatchSize, r.cfg.Lease)
	if err != nil {
		return result, err
	}
	result.Claimed = len(batch)
	r.metrics.ObserveOutboxBatch(len(batch))

	blocked := make(map[uuid.UUID]bool)
	var release []uuid.UUID
	for i, event := range batch {
		if ctx.Err() != nil {
			for _, rest := range batch[i:] {
				release = append(release, rest.EventID)
			}
			break
		}
		if blocked[event.AggregateID] {
			release = append(release, event.EventID)
			result.Skipped++
			continue
		}
		if err := r.sink.Publish(ctx, event.Envelope()); err != nil {
			blocked[event.AggregateID] = true
			dead, markErr := r.fail(ctx, event, err)
			if markErr != nil {
				return result, r.abort(ctx, release, batch[i+1:], markErr)
			}
			if dead {
				result.Dead++
			} else {
				result.Failed++
			}
			continue
		}
		if err := r.outbox.MarkDelivered(ctx, event.EventID); err != nil {
			return result, r.abort(ctx, release, batch[i+1:], err)
		}
		r.metrics.RecordDelivery("delivered")
		result.Delivered++
	}

	if len(release) > 0 {
		if err := r.outbox.Release(context.WithoutCancel(ctx), release); err != nil {
			return result, err
		}
	}
	if result.Claimed > 0 {
		r.logger.Debug("outbox relay pass",
			zap.Int("claimed", result.Claimed),
			zap.Int("delivered", result.Delivered),
			zap.Int("failed", result.Failed),
			zap.Int("dead", result.Dead),
			zap.Int("skipped", result.Skipped))
	}
	return result, ctx.Err()
}

// abort hands unprocessed claims back before RunOnce returns cause.
func (r *OutboxRelay) abort(ctx context.Context, release []uuid.UUID, rest []repository.OutboxEvent, cause error) error {
	for _, event := range rest {
		release = append(release, event.EventID)
	}
	if len(release) == 0 {
		return cause
	}
	if err := r.outbox.Release(context.WithoutCancel(ctx), release); err != nil {
		r.logger.Error("outbox release failed", zap.Int("events", len(release)), zap.Error(err))
	}
	return cause
}

func (r *OutboxRelay) fail(ctx context.Context, event repository.OutboxEvent, cause error) (bool, error) {
	attempts := event.Attempts + 1
	dead := attempts >= r.cfg.MaxAttempts
	nextRetry := r.clock.Now().UTC().Add(retryDelay(attempts))
	if err := r.outbox.MarkFailed(context.WithoutCancel(ctx), event.EventID, attempts, &nextRetry, cause.Error(), dead); err != nil {
		return dead, err
	}
	fields := []zap.Field{
		zap.String("event_id", event.EventID.String()),
		zap.String("event_type", string(event.EventType)),
		zap.String("aggregate_id", event.AggregateID.String()),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	}
	if dead {
		r.metrics.RecordDelivery("dead")
		r.logger.Warn("outbox event moved to dead-letter", fields...)
	} else {
		r.metrics.RecordDelivery("retry")
		r.logger.Info("outbox delivery failed", append(fields, zap.Time("next_retry_at", nextRetry))...)
	}
	return dead, nil
}

// Run polls the outbox every interval until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = baseRetryDelay
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("outbox relay failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return baseRetryDelay
	}
	delay := time.Duration(attempt*attempt) * baseRetryDelay
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}
