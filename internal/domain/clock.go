package domain

import "time"

// Clock supplies the current instant for every past/future check.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns wall-clock UTC time.
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}

// FixedClock always returns t. Useful for tests and replays.
func FixedClock(t time.Time) Clock {
	t = t.UTC()
	return ClockFunc(func() time.Time { return t })
}

func clockOrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock()
	}
	return c
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar day of c.
func Today(c Clock) time.Time {
	return DateOf(clockOrSystem(c).Now())
}
