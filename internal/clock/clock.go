package clock

import "time"

// Clock abstracts time retrieval so the booking rules are deterministic in
// tests. Every logical operation reads the clock exactly once.
type Clock interface {
	Now() time.Time
}

// System returns wall-clock time truncated to whole seconds, the minimum
// meaningful resolution for booking intervals. Always UTC.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Fixed always reports the same instant.
type Fixed struct {
	Time time.Time
}

func (f Fixed) Now() time.Time {
	return f.Time
}
