package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/dienynas/attendapi/internal/core/ports"
	"github.com/google/uuid"
)

const auditMaxAttempts = 3

// AuditConsumer turns published domain events into audit rows. A failing
// write is retried with backoff; after the final attempt the event goes to
// the dead-letter table instead of disappearing, so losing an audit fact
// requires two independent store failures.
type AuditConsumer struct {
	repo        ports.AuditRepository
	maxAttempts int
	sleep       func(time.Duration)

	persistedTotal    atomic.Int64
	retriedTotal      atomic.Int64
	deadLetteredTotal atomic.Int64
}

type AuditConsumerMetrics struct {
	PersistedTotal    int64
	RetriedTotal      int64
	DeadLetteredTotal int64
}

func NewAuditConsumer(repo ports.AuditRepository) *AuditConsumer {
	return &AuditConsumer{
		repo:        repo,
		maxAttempts: auditMaxAttempts,
		sleep:       time.Sleep,
	}
}

// Register subscribes the consumer to every audited event name. Called once
// at wiring time, before the first publish.
func (c *AuditConsumer) Register(bus ports.EventSubscriber) {
	for _, name := range domain.AuditedEvents {
		bus.Subscribe(name, c.Handle)
	}
}

func (c *AuditConsumer) Handle(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("serialize audit payload: %w", err)
	}

	entry := domain.AuditEntry{
		EventID: uuid.NewString(),
		Action:  event.Name,
		Payload: string(payload),
	}
	if actor, ok := event.ActorUserID(); ok {
		entry.ActorUserID = &actor
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.retriedTotal.Add(1)
			c.sleep(auditBackoff(attempt))
		}
		if lastErr = c.repo.Append(ctx, entry); lastErr == nil {
			c.persistedTotal.Add(1)
			return nil
		}
	}

	letter := domain.AuditDeadLetter{
		Action:    event.Name,
		Payload:   string(payload),
		Attempts:  c.maxAttempts,
		LastError: lastErr.Error(),
	}
	if err := c.repo.AppendDeadLetter(ctx, letter); err != nil {
		return fmt.Errorf("dead-letter audit event %s after %d attempts (%v): %w", event.Name, c.maxAttempts, lastErr, err)
	}

	c.deadLetteredTotal.Add(1)
	log.Printf("audit write dead-lettered: action=%s attempts=%d err=%v", event.Name, c.maxAttempts, lastErr)
	return nil
}

func (c *AuditConsumer) Metrics() AuditConsumerMetrics {
	return AuditConsumerMetrics{
		PersistedTotal:    c.persistedTotal.Load(),
		RetriedTotal:      c.retriedTotal.Load(),
		DeadLetteredTotal: c.deadLetteredTotal.Load(),
	}
}

func auditBackoff(attempt int) time.Duration {
	d := time.Duration(attempt*attempt) * 100 * time.Millisecond
	if d > 2*time.Second {
		return 2 * time.Second
	}
	return d
}
