package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/dienynas/attendapi/internal/core/ports"
)

// Bus is the in-process publish/subscribe registry. Subscription lists are
// ordered; Publish snapshots the handlers registered at call time and runs
// each on its own goroutine, so the publisher never waits on a consumer.
// State is purely in-memory: nothing survives a restart, and a handler
// registered after a publish never sees that earlier event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	wg       sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]ports.EventHandler)}
}

func (b *Bus) Subscribe(name string, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish schedules every handler registered for name, in subscription
// order, and returns immediately. A handler error or panic is logged and
// isolated; it never reaches the publisher or sibling handlers.
func (b *Bus) Publish(name string, payload map[string]any) {
	b.mu.RLock()
	snapshot := b.handlers[name]
	b.mu.RUnlock()

	event := domain.Event{
		Name:        name,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}

	for _, handler := range snapshot {
		b.wg.Add(1)
		go b.deliver(handler, event)
	}
}

func (b *Bus) deliver(handler ports.EventHandler, event domain.Event) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panic: event=%s: %v", event.Name, r)
		}
	}()
	if err := handler(context.Background(), event); err != nil {
		log.Printf("event handler failed: event=%s: %v", event.Name, err)
	}
}

// Drain blocks until every handler scheduled so far has finished. Intended
// for shutdown and tests; scheduled work is never cancelled.
func (b *Bus) Drain() {
	b.wg.Wait()
}

func (b *Bus) Close() error {
	b.Drain()
	return nil
}
