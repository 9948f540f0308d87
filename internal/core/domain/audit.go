package domain

import "time"

// AuditEntry is one append-only row in the audit trail. Once written it is
// never mutated, only soft-deleted by an administrative purge.
type AuditEntry struct {
	ID          int64
	EventID     string
	ActorUserID *int64
	Action      string
	Payload     string
	CreatedAt   time.Time
}

// AuditDeadLetter records an event whose audit write kept failing, so the
// fact is not silently lost.
type AuditDeadLetter struct {
	ID        int64
	Action    string
	Payload   string
	Attempts  int
	LastError string
	CreatedAt time.Time
}
