/*
summary.go - Summary assembly and payment status

PURPOSE:
  Answers "what does this customer owe right now?" by combining the month
  amounts (amounts.go) with the historical allocation (allocator.go).

STATUS (recomputed every call, nothing stored):
  paid     TotalDue <= 0
  overdue  TotalDue > 0 and IsOverdue
  partial  TotalDue > 0, not overdue, some payment on record
  pending  TotalDue > 0, not overdue, never paid

OVERDUE:
  A customer with nothing due is never overdue. Otherwise:
    - paid before: overdue once more than OverdueAfter days have passed
      since the last payment
    - never paid: overdue when anything is owed from before the current
      month (older dues or Month1..Month3). Current-month charges alone are
      not late until NextDueDate.

NEXT DUE DATE:
  DueDay (default 5th) of the month after CurrentMonth.
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultOverdueAfterDays = 60
	DefaultDueDay           = 5
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine holds the few knobs of the calculation. The zero value uses the
// system clock and the defaults above. It carries no state between calls
// and is safe for concurrent use.
type Engine struct {
	Clock            Clock
	OverdueAfterDays int
	DueDay           int
}

// NewEngine returns an Engine with default thresholds.
func NewEngine(clock Clock) *Engine {
	return &Engine{Clock: clock, OverdueAfterDays: DefaultOverdueAfterDays, DueDay: DefaultDueDay}
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now().UTC()
	}
	return e.Clock.Now()
}

func (e *Engine) overdueAfter() int {
	if e.OverdueAfterDays <= 0 {
		return DefaultOverdueAfterDays
	}
	return e.OverdueAfterDays
}

func (e *Engine) dueDay() int {
	if e.DueDay < 1 || e.DueDay > 28 {
		return DefaultDueDay
	}
	return e.DueDay
}

// Window returns the tracking window for the engine's current instant.
func (e *Engine) Window() Window { return WindowAt(e.now()) }

// Now returns the engine's current instant.
func (e *Engine) Now() time.Time { return e.now() }

// =============================================================================
// SUMMARY
// =============================================================================

// Summarize builds the payment summary for one customer. payments and
// deliveries may contain other customers' records; both are filtered by
// customer ID.
func (e *Engine) Summarize(c Customer, payments []Payment, deliveries []Delivery) Summary {
	now := e.now()
	w := WindowAt(now)
	payments = PaymentsFor(c.ID, payments)

	amounts := AmountsFor(c.ID, deliveries, w)
	hist := AllocateHistory(c.PendingDues, amounts, payments, w)

	s := Summary{
		CustomerID:   c.ID,
		Window:       w,
		CurrentMonth: newPeriodDue(amounts.CurrentMonth, hist.CurrentMonthPaid),
		Month1:       newPeriodDue(amounts.Month1, hist.Month1Paid),
		Month2:       newPeriodDue(amounts.Month2, hist.Month2Paid),
		Month3:       newPeriodDue(amounts.Month3, hist.Month3Paid),
		OlderDues:    hist.OlderDues,
		TotalPaid:    TotalPaid(payments),
		NextDueDate:  w.NextDueDate(e.dueDay()),
	}
	s.TotalDue = s.OlderDues.Add(s.Month3.Due).Add(s.Month2.Due).Add(s.Month1.Due).Add(s.CurrentMonth.Due)
	s.LastPaymentDate = lastPaymentDate(c, payments)
	s.IsOverdue = e.isOverdue(s, now)
	s.Status = statusOf(s)
	return s
}

// Arrears is everything owed from before the current month.
func (s Summary) Arrears() decimal.Decimal {
	return s.OlderDues.Add(s.Month3.Due).Add(s.Month2.Due).Add(s.Month1.Due)
}

func (e *Engine) isOverdue(s Summary, now time.Time) bool {
	if !s.TotalDue.IsPositive() {
		return false
	}
	if s.LastPaymentDate == nil {
		return s.Arrears().IsPositive()
	}
	return DaysBetween(*s.LastPaymentDate, now) > e.overdueAfter()
}

func statusOf(s Summary) PaymentStatus {
	switch {
	case !s.TotalDue.IsPositive():
		return StatusPaid
	case s.IsOverdue:
		return StatusOverdue
	case s.LastPaymentDate != nil:
		return StatusPartial
	default:
		return StatusPending
	}
}

// PaymentsFor returns the payments belonging to customerID.
func PaymentsFor(customerID CustomerID, payments []Payment) []Payment {
	var out []Payment
	for _, p := range payments {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out
}

// lastPaymentDate is the later of the customer's LastPayment and the newest
// paid payment on record.
func lastPaymentDate(c Customer, payments []Payment) *time.Time {
	var last *time.Time
	if c.LastPayment != nil {
		d := Day(*c.LastPayment)
		last = &d
	}
	for _, p := range payments {
		if !p.Applied() {
			continue
		}
		d := Day(p.EffectiveDate())
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	return last
}
