package billing

import "time"

// =============================================================================
// PERIOD - A closed range of calendar days
// =============================================================================

// Period is [Start, End] in whole days.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod returns the calendar month containing t.
func MonthPeriod(t time.Time) Period {
	return Period{Start: StartOfMonth(t), End: EndOfMonth(t)}
}

// Contains reports whether t's calendar day lies inside [Start, End].
func (p Period) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(p.Start)) && !d.After(Day(p.End))
}

func (p Period) Validate() error {
	if Day(p.End).Before(Day(p.Start)) {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// =============================================================================
// WINDOW - The four tracked months relative to now
// =============================================================================

// Window holds the month starts of the tracking window. Payments dated
// before Month3 fall into the "older" bucket.
type Window struct {
	CurrentMonth time.Time
	Month1       time.Time
	Month2       time.Time
	Month3       time.Time
}

// WindowAt builds the window for the month containing now.
func WindowAt(now time.Time) Window {
	current := StartOfMonth(now)
	return Window{
		CurrentMonth: current,
		Month1:       AddMonths(current, -1),
		Month2:       AddMonths(current, -2),
		Month3:       AddMonths(current, -3),
	}
}

// Span covers every day from Month3's start to the end of CurrentMonth.
// Deliveries outside it never affect a summary.
func (w Window) Span() Period {
	return Period{Start: w.Month3, End: EndOfMonth(w.CurrentMonth)}
}

type bucket int

const (
	bucketOlder bucket = iota
	bucketMonth3
	bucketMonth2
	bucketMonth1
	bucketCurrent
)

// bucketFor groups a date by when it happened, not by what it was meant to pay.
func (w Window) bucketFor(t time.Time) bucket {
	d := Day(t)
	switch {
	case d.Before(w.Month3):
		return bucketOlder
	case d.Before(w.Month2):
		return bucketMonth3
	case d.Before(w.Month1):
		return bucketMonth2
	case d.Before(w.CurrentMonth):
		return bucketMonth1
	default:
		return bucketCurrent
	}
}

// NextDueDate is dueDay of the month after CurrentMonth.
func (w Window) NextDueDate(dueDay int) time.Time {
	next := AddMonths(w.CurrentMonth, 1)
	return Date(next.Year(), next.Month(), dueDay)
}
