package events

import "context"

// Sink receives committed events in per-aggregate commit order.
type Sink interface {
	Publish(ctx context.Context, envelope Envelope) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(context.Context, Envelope) error

func (f SinkFunc) Publish(ctx context.Context, envelope Envelope) error { return f(ctx, envelope) }

// FanOut publishes to every sink in order and stops at the first failure.
func FanOut(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, envelope Envelope) error {
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Publish(ctx, envelope); err != nil {
				return err
			}
		}
		return nil
	})
}
