package billing

import "time"

// =============================================================================
// CLOCK - Injected "now"
// =============================================================================

// Clock supplies the instant period boundaries are computed from.
// Tests pin it with FixedClock so month-end transitions never flake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock reads the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// =============================================================================
// DAY / MONTH UTILITIES
// =============================================================================

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return Date(t.Year(), t.Month(), 1)
}

// EndOfMonth returns the last calendar day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// AddMonths moves a month start by n months. Callers pass month starts, so
// day overflow (Jan 31 + 1 month) cannot happen.
func AddMonths(monthStart time.Time, n int) time.Time {
	return StartOfMonth(monthStart).AddDate(0, n, 0)
}

// DaysBetween counts whole calendar days from -> to.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}
