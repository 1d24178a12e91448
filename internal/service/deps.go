package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/events"
)

// publisher lets services fire events whether or not a dispatcher is wired.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func newPublisher(dispatcher events.Dispatcher, logger *zap.Logger) publisher {
	return publisher{dispatcher: dispatcher, logger: logger}
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
