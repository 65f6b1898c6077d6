package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

func suspendedEvent(t *testing.T) domain.Event {
	t.Helper()
	clock := domain.FixedClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	org, err := domain.NewOrganization(domain.NewOrganizationParams{Name: "Acme", Email: "ops@acme.com"}, clock)
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	events, err := org.SuspendService("non-payment")
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	return events[0]
}

func TestNewEnvelope(t *testing.T) {
	event := suspendedEvent(t)
	env, err := NewEnvelope(event)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if env.ID != event.EventID() || env.Type != domain.EventServiceSuspended || env.AggregateType != domain.AggregateOrganization {
		t.Fatalf("metadata not copied: %+v", env)
	}

	var payload map[string]any
	if err := env.Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["reason"] != "non-payment" || len(payload) != 1 {
		t.Fatalf("payload must hold only exported fields: %v", payload)
	}

	headers := env.Headers()
	if headers["event_type"] != string(domain.EventServiceSuspended) || headers["aggregate_id"] != event.AggregateID().String() {
		t.Fatalf("headers: %v", headers)
	}

	if _, err := NewEnvelope(nil); err == nil {
		t.Fatalf("nil event must fail")
	}
}

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")
	d.Subscribe(domain.EventTicketCreated, func(ctx context.Context, e Envelope) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(domain.EventTicketCreated, func(ctx context.Context, e Envelope) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(domain.EventTicketClosed, func(ctx context.Context, e Envelope) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Envelope{ID: uuid.New(), Type: domain.EventTicketCreated})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls: %v", calls)
	}

	if err := d.Publish(context.Background(), Envelope{Type: domain.EventAlarmCleared}); err != nil {
		t.Fatalf("no subscribers: %v", err)
	}
}

func TestFanOutStopsAtFirstFailure(t *testing.T) {
	var reached bool
	failing := SinkFunc(func(context.Context, Envelope) error { return errors.New("down") })
	after := SinkFunc(func(context.Context, Envelope) error { reached = true; return nil })
	if err := FanOut(failing, nil, after).Publish(context.Background(), Envelope{}); err == nil {
		t.Fatalf("expected failure")
	}
	if reached {
		t.Fatalf("later sinks must not run after a failure")
	}
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSinkPublish(t *testing.T) {
	writer := &fakeWriter{}
	sink := &KafkaSink{writer: writer, topic: "flowertrack.events"}
	env, err := NewEnvelope(suspendedEvent(t))
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}

	if err := sink.Publish(context.Background(), env); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("messages: %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if msg.Topic != "flowertrack.events" || string(msg.Key) != env.AggregateID.String() {
		t.Fatalf("topic/key: %s %s", msg.Topic, msg.Key)
	}
	var decoded Envelope
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value: %v", err)
	}
	if decoded.ID != env.ID || decoded.Type != env.Type {
		t.Fatalf("decoded envelope: %+v", decoded)
	}
	if len(msg.Headers) != len(env.Headers()) {
		t.Fatalf("headers: %v", msg.Headers)
	}

	writer.err = errors.New("broker down")
	if err := sink.Publish(context.Background(), env); err == nil {
		t.Fatalf("writer failure must surface")
	}
}

func TestNewKafkaSinkRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaSink(config.KafkaConfig{Topic: "flowertrack.events"}); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewKafkaSink(config.KafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Fatalf("expected error without topic")
	}
}
