package ports

import (
	"context"

	"github.com/dienynas/attendapi/internal/core/domain"
)

// EventHandler processes one delivered event. A returned error is logged by
// the bus and never reaches the publisher or other handlers.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventPublisher is the producer side of the in-process bus. Publish is
// fire-and-forget: it schedules handlers and returns without waiting.
type EventPublisher interface {
	Publish(name string, payload map[string]any)
}

// EventSubscriber registers handlers. A handler never observes events
// published before it was registered.
type EventSubscriber interface {
	Subscribe(name string, handler EventHandler)
}
