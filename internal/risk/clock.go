package risk

import "time"

const dayKeyLayout = "2006-01-02"

// Clock supplies current time and the current UTC calendar-day key, injected
// so day-rollover logic is testable without wall-clock dependence.
type Clock interface {
	Now() time.Time
	Day() string
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
func (utcClock) Day() string    { return time.Now().UTC().Format(dayKeyLayout) }

func NewClock() Clock { return utcClock{} }

// DayKey formats t's UTC date the way Clock.Day does.
func DayKey(t time.Time) string { return t.UTC().Format(dayKeyLayout) }
