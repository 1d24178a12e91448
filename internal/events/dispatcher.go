package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// EventHandler reacts to one published ledger event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ledger events out to subscribers. Publishing never fails
// because of a subscriber; the ledger write has already happened.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// syncDispatcher runs subscribers inline, in subscription order.
type syncDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
	logger   *zap.Logger
}

// NewInMemoryDispatcher returns a dispatcher that runs handlers on the
// publishing goroutine.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &syncDispatcher{
		handlers: map[EventType][]EventHandler{},
		logger:   logger,
	}
}

func (d *syncDispatcher) Publish(ctx context.Context, event Event) error {
	for _, handler := range d.subscribers(event.Type) {
		if err := invoke(ctx, handler, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.String("email", event.Email),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (d *syncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
	d.mu.Unlock()
}

// subscribers copies the handler list so Publish runs without the lock held.
func (d *syncDispatcher) subscribers(eventType EventType) []EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	registered := d.handlers[eventType]
	out := make([]EventHandler, len(registered))
	copy(out, registered)
	return out
}

// invoke turns a panicking handler into an error so later handlers still run.
func invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}
