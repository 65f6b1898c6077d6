package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

// Envelope is the wire form of a committed domain event.
type Envelope struct {
	ID            uuid.UUID            `json:"id"`
	Type          domain.EventType     `json:"type"`
	AggregateType domain.AggregateType `json:"aggregate_type"`
	AggregateID   uuid.UUID            `json:"aggregate_id"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Payload       json.RawMessage      `json:"payload"`
}

// NewEnvelope serializes the exported fields of event into the payload.
func NewEnvelope(event domain.Event) (Envelope, error) {
	if event == nil {
		return Envelope{}, fmt.Errorf("encode event: nil event")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return Envelope{
		ID:            event.EventID(),
		Type:          event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt().UTC(),
		Payload:       payload,
	}, nil
}

// Decode unmarshals the payload into out.
func (e Envelope) Decode(out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return nil
}

// Headers returns the transport metadata attached to every published message.
func (e Envelope) Headers() map[string]string {
	return map[string]string{
		"event_id":       e.ID.String(),
		"event_type":     string(e.Type),
		"aggregate_type": string(e.AggregateType),
		"aggregate_id":   e.AggregateID.String(),
		"occurred_at":    e.OccurredAt.Format(time.RFC3339Nano),
	}
}
