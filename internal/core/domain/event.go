package domain

import "time"

// Domain event names published on the in-process bus.
const (
	EventCheckIn        = "CHECK_IN"
	EventCheckOut       = "CHECK_OUT"
	EventProfileUpdated = "PROFILE_UPDATED"
)

// AuditedEvents lists every event name the audit trail records.
var AuditedEvents = []string{EventCheckIn, EventCheckOut, EventProfileUpdated}

// Event is a named, immutable fact handed to the bus once a state change has
// committed. The bus only fans the value out to subscribers; it takes no
// ownership of the payload.
type Event struct {
	Name        string
	Payload     map[string]any
	PublishedAt time.Time
}

// ActorUserID extracts the optional userId payload field.
func (e Event) ActorUserID() (int64, bool) {
	switch v := e.Payload["userId"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
