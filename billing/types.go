/*
Package billing provides the payment calculation engine for milk delivery
accounts.

PURPOSE:
  Given a customer's delivery charges and payment history, the engine works
  out what is owed in each tracked month, classifies the account, and splits
  a new payment across outstanding months oldest-first. Everything here is a
  pure function of its inputs: the caller loads records, the engine computes,
  the caller persists the returned patch.

KEY CONCEPTS IN THIS FILE (types.go):
  - Customer: the account, with its carried-forward PendingDues
  - Delivery: one day's priced delivery (immutable)
  - Payment: one recorded payment (immutable)
  - Summary / Allocation: derived values, never persisted

TRACKING WINDOW:
  Four calendar months are tracked individually relative to "now":
  CurrentMonth, Month1 (previous), Month2, Month3. Anything older lives only
  in the customer's scalar PendingDues ("older dues").

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never float64
  2. Purity: no I/O, no hidden clock; "now" comes from an injected Clock
  3. Explicit results: every Summary/Allocation field is always populated

SEE ALSO:
  - amounts.go: per-month billable amounts
  - allocator.go: historical reconstruction of paid-per-month
  - summary.go: summary assembly and status
  - processor.go: allocation of a new payment
  - validation.go: payment amount/date checks
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type PaymentID string
type DeliveryID string

// =============================================================================
// CUSTOMER
// =============================================================================

// Customer is consumed read-only except for PendingDues and LastPayment,
// which change only through a CustomerPatch returned by ProcessPayment.
type Customer struct {
	ID            CustomerID
	Name          string
	Phone         string
	DailyQuantity decimal.Decimal // liters per day
	RatePerLiter  decimal.Decimal

	// PendingDues is the balance carried forward from before Month3.
	// Never negative; the engine only lowers it.
	PendingDues decimal.Decimal

	// LastPayment is the date of the most recent successful payment.
	LastPayment *time.Time

	CreatedAt time.Time
}

// CustomerPatch is the only mutation the engine ever asks a caller to persist.
type CustomerPatch struct {
	PendingDues decimal.Decimal
	LastPayment time.Time
}

// =============================================================================
// DELIVERY
// =============================================================================

type Delivery struct {
	ID          DeliveryID
	CustomerID  CustomerID
	Date        time.Time
	Quantity    decimal.Decimal
	DailyAmount decimal.Decimal // Quantity × rate on that day
	CreatedAt   time.Time
}

// DailyAmount prices one day of delivery.
func DailyAmount(quantity, ratePerLiter decimal.Decimal) decimal.Decimal {
	return quantity.Mul(ratePerLiter).Round(2)
}

// =============================================================================
// PAYMENT
// =============================================================================

type PaymentRecordStatus string

const (
	PaymentRecordPaid    PaymentRecordStatus = "paid"
	PaymentRecordPending PaymentRecordStatus = "pending"
	PaymentRecordFailed  PaymentRecordStatus = "failed"
)

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodUPI  PaymentMethod = "upi"
	MethodCard PaymentMethod = "card"
	MethodBank PaymentMethod = "bank_transfer"
)

type Payment struct {
	ID         PaymentID
	CustomerID CustomerID
	Amount     decimal.Decimal
	Status     PaymentRecordStatus
	Method     PaymentMethod
	PaidDate   *time.Time
	Notes      string
	CreatedAt  time.Time
}

// EffectiveDate is PaidDate when present, otherwise CreatedAt.
func (p Payment) EffectiveDate() time.Time {
	if p.PaidDate != nil {
		return *p.PaidDate
	}
	return p.CreatedAt
}

// Applied reports whether the payment counts as received funds.
func (p Payment) Applied() bool { return p.Status == PaymentRecordPaid }

// =============================================================================
// SUMMARY - Derived, recomputed per request
// =============================================================================

type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "paid"
	StatusPartial PaymentStatus = "partial"
	StatusPending PaymentStatus = "pending"
	StatusOverdue PaymentStatus = "overdue"
)

// PeriodDue is the billed, paid and outstanding amount of one tracked month.
type PeriodDue struct {
	Amount decimal.Decimal
	Paid   decimal.Decimal
	Due    decimal.Decimal
}

func newPeriodDue(amount, paid decimal.Decimal) PeriodDue {
	return PeriodDue{Amount: amount, Paid: paid, Due: nonNegative(amount.Sub(paid))}
}

type Summary struct {
	CustomerID CustomerID
	Window     Window

	CurrentMonth PeriodDue
	Month1       PeriodDue
	Month2       PeriodDue
	Month3       PeriodDue

	// OlderDues is PendingDues minus what historical payments dated before
	// Month3 have already covered.
	OlderDues decimal.Decimal

	TotalDue  decimal.Decimal
	TotalPaid decimal.Decimal

	Status          PaymentStatus
	IsOverdue       bool
	LastPaymentDate *time.Time
	NextDueDate     time.Time
}

// =============================================================================
// ALLOCATION - How one new payment is split
// =============================================================================

// Allocation lists, oldest first, how much of one payment went to each bucket.
// Credit is whatever was left after every due was cleared.
type Allocation struct {
	OlderDues    decimal.Decimal
	Month3       decimal.Decimal
	Month2       decimal.Decimal
	Month1       decimal.Decimal
	CurrentMonth decimal.Decimal
	Credit       decimal.Decimal
}

// Total is the sum of every bucket including Credit.
func (a Allocation) Total() decimal.Decimal {
	return a.OlderDues.Add(a.Month3).Add(a.Month2).Add(a.Month1).Add(a.CurrentMonth).Add(a.Credit)
}

type PaymentOutcome string

const (
	OutcomePaid     PaymentOutcome = "paid"
	OutcomePartial  PaymentOutcome = "partial"
	OutcomeOverpaid PaymentOutcome = "overpaid"
)

// PaymentResult is what ProcessPayment hands back to the caller.
type PaymentResult struct {
	Allocation       Allocation
	Patch            CustomerPatch
	RemainingBalance decimal.Decimal
	Outcome          PaymentOutcome
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MustParseDecimal parses s or returns zero.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
