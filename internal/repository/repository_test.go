package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.Kind
	}{
		{"no rows", pgx.ErrNoRows, domain.KindNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.KindNotFound},
		{"duplicate serial", &pgconn.PgError{Code: "23505", ConstraintName: "machines_serial_number_key"}, domain.KindInvalidOperation},
		{"duplicate id", &pgconn.PgError{Code: "23505", ConstraintName: "tickets_pkey"}, domain.KindConcurrencyConflict},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, domain.KindConcurrencyConflict},
		{"domain error passes through", domain.RuleViolation("op", "nope"), domain.KindDomainRuleViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError("test", "thing", tc.err)
			if !domain.IsKind(got, tc.want) {
				t.Fatalf("want %s, got %v", tc.want, got)
			}
		})
	}

	plain := errors.New("connection reset")
	if got := mapError("test", "thing", plain); got != plain {
		t.Fatalf("unknown errors must pass through unchanged, got %v", got)
	}
	if mapError("test", "thing", nil) != nil {
		t.Fatalf("nil stays nil")
	}
}

func TestNormalizeLimit(t *testing.T) {
	for in, want := range map[int]int{-1: 50, 0: 50, 10: 10, 200: 200, 1000: 200} {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d): want %d got %d", in, want, got)
		}
	}
}

func TestSortBySequence(t *testing.T) {
	list := []OutboxEvent{{Sequence: 3}, {Sequence: 1}, {Sequence: 2}}
	sortBySequence(list)
	for i, e := range list {
		if e.Sequence != int64(i+1) {
			t.Fatalf("order: %+v", list)
		}
	}
}

func TestOutboxEventEnvelope(t *testing.T) {
	e := OutboxEvent{
		EventID:       uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: domain.AggregateTicket,
		EventType:     domain.EventTicketClosed,
		Payload:       []byte(`{"reason":"done"}`),
	}
	env := e.Envelope()
	if env.ID != e.EventID || env.AggregateID != e.AggregateID || env.Type != domain.EventTicketClosed {
		t.Fatalf("envelope: %+v", env)
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := env.Decode(&payload); err != nil || payload.Reason != "done" {
		t.Fatalf("payload: %+v %v", payload, err)
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusClosed})
	if len(got) != 2 || got[0] != "NEW" || got[1] != "CLOSED" {
		t.Fatalf("toStrings: %v", got)
	}
}
