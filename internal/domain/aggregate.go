package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// AggregateRoot is what the persistence boundary needs from every aggregate.
type AggregateRoot interface {
	ID() uuid.UUID
	AggregateType() AggregateType
	Version() int64
	// PendingEvents returns the events buffered since the last commit.
	PendingEvents() []Event
	// MarkCommitted advances the version and clears the buffer. Called only after a durable commit.
	MarkCommitted()
}

// Audit records who created and last updated an aggregate. Informational only.
type Audit struct {
	CreatedAt time.Time
	CreatedBy *uuid.UUID
	UpdatedAt *time.Time
	UpdatedBy *uuid.UUID
}

// AggregateState is the persisted identity, version and audit shared by every aggregate.
type AggregateState struct {
	ID      uuid.UUID
	Version int64
	Audit   Audit
}

type aggregateBase struct {
	id      uuid.UUID
	version int64
	audit   Audit
	clock   Clock
	actor   *uuid.UUID
	pending []Event
	dirty   bool
}

func newAggregateBase(clock Clock) aggregateBase {
	clock = clockOrSystem(clock)
	return aggregateBase{
		id:    uuid.New(),
		clock: clock,
		audit: Audit{CreatedAt: clock.Now().UTC()},
		dirty: true,
	}
}

func restoreAggregateBase(state AggregateState, clock Clock) aggregateBase {
	return aggregateBase{
		id:      state.ID,
		version: state.Version,
		audit:   copyAudit(state.Audit),
		clock:   clockOrSystem(clock),
	}
}

// ID returns the aggregate identifier.
func (b *aggregateBase) ID() uuid.UUID { return b.id }

// Version returns the last committed version.
func (b *aggregateBase) Version() int64 { return b.version }

// Audit returns a copy of the audit stamps.
func (b *aggregateBase) Audit() Audit { return copyAudit(b.audit) }

// ActAs sets the user stamped into audit fields by subsequent operations.
func (b *aggregateBase) ActAs(userID uuid.UUID) {
	if userID == uuid.Nil {
		b.actor = nil
		return
	}
	b.actor = &userID
	if b.version == 0 && b.audit.CreatedBy == nil {
		b.audit.CreatedBy = &userID
	}
}

// PendingEvents returns a copy of the uncommitted events.
func (b *aggregateBase) PendingEvents() []Event {
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// HasChanges reports whether state changed since the last commit.
// No-op operations leave it false.
func (b *aggregateBase) HasChanges() bool { return b.dirty || len(b.pending) > 0 }

// MarkCommitted advances the version and clears the buffer.
func (b *aggregateBase) MarkCommitted() {
	b.version++
	b.pending = nil
	b.dirty = false
}

func (b *aggregateBase) state() AggregateState {
	return AggregateState{ID: b.id, Version: b.version, Audit: copyAudit(b.audit)}
}

func (b *aggregateBase) now() time.Time { return b.clock.Now().UTC() }

func (b *aggregateBase) touch(at time.Time) {
	b.dirty = true
	b.audit.UpdatedAt = &at
	b.audit.UpdatedBy = copyID(b.actor)
}

// record buffers events for the persistence boundary and returns them to the caller.
func (b *aggregateBase) record(events ...Event) []Event {
	b.pending = append(b.pending, events...)
	return events
}

func copyAudit(a Audit) Audit {
	return Audit{
		CreatedAt: a.CreatedAt,
		CreatedBy: copyID(a.CreatedBy),
		UpdatedAt: copyTime(a.UpdatedAt),
		UpdatedBy: copyID(a.UpdatedBy),
	}
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func requiredText(op, field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", InvalidArgument(op, field, field+" is required")
	}
	if utf8.RuneCountInString(value) > max {
		return "", InvalidArgument(op, field, field+" is too long")
	}
	return value, nil
}

func optionalText(op, field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > max {
		return "", InvalidArgument(op, field, field+" is too long")
	}
	return value, nil
}

func requiredReason(op, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", InvalidArgument(op, "reason", "reason is required")
	}
	return reason, nil
}
