package domain

import "time"

// Clock supplies the wall time used to derive attendance dates. The day
// boundary moves with the configured location, so the clock is injected
// rather than read from the process-local timezone.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns a Clock reporting wall time in loc. A nil location
// falls back to UTC.
func NewSystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}
