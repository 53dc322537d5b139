package clock

import "time"

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// TimeClocker is the production clock implementation backed by time.Now.
type TimeClocker struct{}

// New returns a TimeClocker that reads the current system time.
func New() *TimeClocker {
	return &TimeClocker{}
}

// Now returns the current system time in UTC, truncated to microseconds so
// values survive a round trip through Postgres timestamptz unchanged.
func (*TimeClocker) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
