package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Envelope) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Sink
	Subscribe(eventType domain.EventType, handler EventHandler)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[domain.EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[domain.EventType][]EventHandler),
	}
}

// Publish synchronously invokes every handler for the event type.
// All handlers run; their failures are joined into the returned error.
func (d *inMemoryDispatcher) Publish(ctx context.Context, envelope Envelope) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[envelope.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, envelope); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", envelope.Type, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType domain.EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
