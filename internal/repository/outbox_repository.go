package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/events"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusSending   = "sending"
	OutboxStatusDelivered = "delivered"
	OutboxStatusDead      = "dead"
)

// OutboxEvent is one committed domain event awaiting delivery to the event sink.
type OutboxEvent struct {
	EventID       uuid.UUID
	Sequence      int64
	AggregateType domain.AggregateType
	AggregateID   uuid.UUID
	EventType     domain.EventType
	Payload       []byte
	OccurredAt    time.Time
	Status        string
	Attempts      int
	NextRetryAt   *time.Time
	LockedAt      *time.Time
	LockedBy      *string
	LastError     *string
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Envelope rebuilds the wire form of the stored event.
func (e OutboxEvent) Envelope() events.Envelope {
	return events.Envelope{
		ID:            e.EventID,
		Type:          e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		OccurredAt:    e.OccurredAt,
		Payload:       e.Payload,
	}
}

// OutboxRepository drives delivery of committed events.
type OutboxRepository interface {
	// ClaimPending locks up to limit due events for owner, ordered by commit sequence.
	// A sending event whose lock is older than lease is claimable again.
	// An event waiting for retry or held under a live lease blocks the later events of its aggregate.
	ClaimPending(ctx context.Context, owner string, limit int, lease time.Duration) ([]OutboxEvent, error)
	MarkDelivered(ctx context.Context, eventID uuid.UUID) error
	// MarkFailed records a failed attempt. Dead events are never claimed again.
	MarkFailed(ctx context.Context, eventID uuid.UUID, attempts int, nextRetryAt *time.Time, lastErr string, dead bool) error
	// Release returns claimed but unattempted events to pending.
	Release(ctx context.Context, eventIDs []uuid.UUID) error
	ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]OutboxEvent, error)
}

const outboxColumns = `event_id, sequence, aggregate_type, aggregate_id, event_type, payload, occurred_at, status,
	attempts, next_retry_at, locked_at, locked_by, last_error, created_at, published_at`

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository instantiates repository.
func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

func insertOutboxEvent(ctx context.Context, db DBTX, event domain.Event) error {
	envelope, err := events.NewEnvelope(event)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, occurred_at, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now())
	`, envelope.ID, envelope.AggregateType, envelope.AggregateID, envelope.Type, []byte(envelope.Payload), envelope.OccurredAt, OutboxStatusPending)
	return err
}

func (r *outboxRepository) ClaimPending(ctx context.Context, owner string, limit int, lease time.Duration) ([]OutboxEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.pool.Query(ctx, `
		WITH candidates AS (
			SELECT e.event_id
			FROM outbox_events e
			WHERE ((e.status = $1 AND (e.next_retry_at IS NULL OR e.next_retry_at <= now()))
					OR (e.status = $3 AND e.locked_at < now() - make_interval(secs => $5)))
				AND NOT EXISTS (
					SELECT 1 FROM outbox_events earlier
					WHERE earlier.aggregate_id = e.aggregate_id
						AND earlier.sequence < e.sequence
						AND ((earlier.status = $3 AND earlier.locked_at >= now() - make_interval(secs => $5))
							OR (earlier.status = $1 AND earlier.next_retry_at > now()))
				)
			ORDER BY e.sequence ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $2
		)
		UPDATE outbox_events o
		SET status = $3, locked_at = now(), locked_by = $4
		FROM candidates c
		WHERE o.event_id = c.event_id
		RETURNING o.event_id, o.sequence, o.aggregate_type, o.aggregate_id, o.event_type, o.payload, o.occurred_at, o.status,
			o.attempts, o.next_retry_at, o.locked_at, o.locked_by, o.last_error, o.created_at, o.published_at
	`, OutboxStatusPending, limit, OutboxStatusSending, owner, lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claimed := make([]OutboxEvent, 0, limit)
	for rows.Next() {
		event, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// UPDATE ... RETURNING does not preserve the CTE order.
	sortBySequence(claimed)
	return claimed, nil
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, eventID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = $2, published_at = now(), locked_at = NULL, locked_by = NULL
		WHERE event_id = $1
	`, eventID, OutboxStatusDelivered)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, eventID uuid.UUID, attempts int, nextRetryAt *time.Time, lastErr string, dead bool) error {
	status := OutboxStatusPending
	if dead {
		status = OutboxStatusDead
		nextRetryAt = nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = $2, attempts = $3, next_retry_at = $4, last_error = $5, locked_at = NULL, locked_by = NULL
		WHERE event_id = $1
	`, eventID, status, attempts, nextRetryAt, lastErr)
	return err
}

func (r *outboxRepository) Release(ctx context.Context, eventIDs []uuid.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = $2, locked_at = NULL, locked_by = NULL
		WHERE event_id = ANY($1) AND status = $3
	`, eventIDs, OutboxStatusPending, OutboxStatusSending)
	return err
}

func (r *outboxRepository) ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+outboxColumns+` FROM outbox_events WHERE aggregate_id = $1 ORDER BY sequence ASC`, aggregateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		event, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutboxEvent(row rowScanner) (OutboxEvent, error) {
	var event OutboxEvent
	err := row.Scan(
		&event.EventID, &event.Sequence, &event.AggregateType, &event.AggregateID, &event.EventType, &event.Payload, &event.OccurredAt, &event.Status,
		&event.Attempts, &event.NextRetryAt, &event.LockedAt, &event.LockedBy, &event.LastError, &event.CreatedAt, &event.PublishedAt,
	)
	return event, err
}

func sortBySequence(list []OutboxEvent) {
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
}
