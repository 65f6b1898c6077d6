package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
)

type outbox struct{ s *Store }

func (r outbox) ClaimPending(ctx context.Context, owner string, limit int, lease time.Duration) ([]repository.OutboxEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.clock.Now().UTC()
	blocked := make(map[uuid.UUID]bool)
	var claimed []repository.OutboxEvent
	for i := range r.s.outbox {
		if len(claimed) == limit {
			break
		}
		event := &r.s.outbox[i]
		switch {
		case event.Status == repository.OutboxStatusSending && leaseLive(event, now, lease):
			blocked[event.AggregateID] = true
			continue
		case event.Status == repository.OutboxStatusSending:
			if blocked[event.AggregateID] {
				continue
			}
		case event.Status != repository.OutboxStatusPending:
			continue
		case event.NextRetryAt != nil && event.NextRetryAt.After(now):
			blocked[event.AggregateID] = true
			continue
		case blocked[event.AggregateID]:
			continue
		}
		lockedAt, lockedBy := now, owner
		event.Status = repository.OutboxStatusSending
		event.LockedAt = &lockedAt
		event.LockedBy = &lockedBy
		claimed = append(claimed, *event)
	}
	return claimed, nil
}

// leaseLive reports whether a claimed event is still held by its owner.
func leaseLive(event *repository.OutboxEvent, now time.Time, lease time.Duration) bool {
	return event.LockedAt != nil && event.LockedAt.Add(lease).After(now)
}

func (r outbox) MarkDelivered(ctx context.Context, eventID uuid.UUID) error {
	return r.update(eventID, func(event *repository.OutboxEvent) {
		publishedAt := r.s.clock.Now().UTC()
		event.Status = repository.OutboxStatusDelivered
		event.PublishedAt = &publishedAt
		event.LockedAt, event.LockedBy = nil, nil
	})
}

func (r outbox) MarkFailed(ctx context.Context, eventID uuid.UUID, attempts int, nextRetryAt *time.Time, lastErr string, dead bool) error {
	return r.update(eventID, func(event *repository.OutboxEvent) {
		event.Status = repository.OutboxStatusPending
		if dead {
			event.Status = repository.OutboxStatusDead
			nextRetryAt = nil
		}
		event.Attempts = attempts
		event.NextRetryAt = nextRetryAt
		event.LastError = &lastErr
		event.LockedAt, event.LockedBy = nil, nil
	})
}

func (r outbox) Release(ctx context.Context, eventIDs []uuid.UUID) error {
	for _, id := range eventIDs {
		if err := r.update(id, func(event *repository.OutboxEvent) {
			if event.Status == repository.OutboxStatusSending {
				event.Status = repository.OutboxStatusPending
				event.LockedAt, event.LockedBy = nil, nil
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r outbox) ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]repository.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.OutboxEvent
	for _, event := range r.s.outbox {
		if event.AggregateID == aggregateID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (r outbox) update(eventID uuid.UUID, apply func(*repository.OutboxEvent)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.outbox {
		if r.s.outbox[i].EventID == eventID {
			apply(&r.s.outbox[i])
			return nil
		}
	}
	return nil
}
