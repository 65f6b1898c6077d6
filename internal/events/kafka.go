package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
)

// messageWriter is the subset of *kafka.Writer used by KafkaSink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes envelopes to one topic keyed by aggregate id,
// so a partition sees an aggregate's events in commit order.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink builds a synchronous producer from the Kafka config.
func NewKafkaSink(cfg config.KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		MaxAttempts:  max(cfg.MaxAttempts, 1),
		BatchTimeout: time.Duration(cfg.WriteBatchTimeoutMS) * time.Millisecond,
		Transport: &kafka.Transport{
			ClientID: cfg.ClientID,
		},
	}
	return &KafkaSink{writer: w, topic: cfg.Topic}, nil
}

// Publish writes one message whose value is the JSON envelope.
func (s *KafkaSink) Publish(ctx context.Context, envelope Envelope) error {
	if s == nil || s.writer == nil {
		return errors.New("kafka sink not initialized")
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	headers := envelope.Headers()
	msg := kafka.Message{
		Topic:   s.topic,
		Key:     []byte(envelope.AggregateID.String()),
		Value:   value,
		Headers: make([]kafka.Header, 0, len(headers)),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return s.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the producer.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
