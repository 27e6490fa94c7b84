/*
processor.go - Allocation of a single new payment

PURPOSE:
  Splits one incoming payment across what the pre-payment summary says is
  still due, oldest first:

    OlderDues -> Month3 -> Month2 -> Month1 -> CurrentMonth -> Credit

  Each step is capped at that bucket's due. Whatever survives all five caps
  becomes Credit (an advance); money is never dropped.

CUSTOMER STATE:
  Only two fields change:
    PendingDues = max(0, summary.OlderDues - allocation.OlderDues)
    LastPayment = today (the day the payment is recorded)
  Month-level dues are not stored; they are recomputed from deliveries and
  payments on the next Summarize.

OUTCOME:
  RemainingBalance = max(0, TotalDue - amount + Credit)
  overpaid if Credit > 0, else paid if RemainingBalance <= 0, else partial.

CONCURRENCY:
  summary must be fresh. Two payments processed against the same stale
  summary would both be allocated to the same dues. Callers serialize
  read-summary / process / persist per customer (see collection.Service).
*/
package billing

import "github.com/shopspring/decimal"

// Allocate runs the oldest-first waterfall for any amount >= 0.
// Allocate(s, a).Total() always equals a.
func Allocate(s Summary, amount decimal.Decimal) Allocation {
	remaining := nonNegative(amount)
	take := func(due decimal.Decimal) decimal.Decimal {
		applied := minDecimal(remaining, nonNegative(due))
		remaining = remaining.Sub(applied)
		return applied
	}

	a := Allocation{}
	a.OlderDues = take(s.OlderDues)
	a.Month3 = take(s.Month3.Due)
	a.Month2 = take(s.Month2.Due)
	a.Month1 = take(s.Month1.Due)
	a.CurrentMonth = take(s.CurrentMonth.Due)
	a.Credit = remaining
	return a
}

// ProcessPayment allocates amount against summary and returns the customer
// patch to persist. It fails only when amount is not positive.
func (e *Engine) ProcessPayment(c Customer, amount decimal.Decimal, summary Summary) (PaymentResult, error) {
	if !amount.IsPositive() {
		return PaymentResult{}, ErrInvalidAmount
	}

	alloc := Allocate(summary, amount)
	remaining := nonNegative(summary.TotalDue.Sub(amount).Add(alloc.Credit))

	outcome := OutcomePartial
	switch {
	case alloc.Credit.IsPositive():
		outcome = OutcomeOverpaid
	case !remaining.IsPositive():
		outcome = OutcomePaid
	}

	return PaymentResult{
		Allocation: alloc,
		Patch: CustomerPatch{
			PendingDues: nonNegative(summary.OlderDues.Sub(alloc.OlderDues)),
			LastPayment: Day(e.now()),
		},
		RemainingBalance: remaining,
		Outcome:          outcome,
	}, nil
}
