/*
allocator.go - Historical reconstruction of what each month has been paid

PURPOSE:
  Rebuilds, from the complete payment history, how much of each tracked
  month (and of the older-dues bucket) is already covered. Nothing is kept
  between calls: the same inputs always give the same answer, so a summary
  can be rebuilt from scratch at any time.

BUCKETING:
  Every paid payment is grouped by its effective DATE, not by the month it
  was meant to settle:

    date < Month3                 -> older
    Month3 <= date < Month2       -> month3
    Month2 <= date < Month1       -> month2
    Month1 <= date < CurrentMonth -> month1
    date >= CurrentMonth          -> current

APPLICATION:
  1. older funds pay PendingDues first (capped at PendingDues)
  2. what older funds could not use spills into Month3
  3. month3 funds + spillover pay Month3 (capped)
  4. month2, month1, current funds each pay their own month (capped)

  Only the older bucket spills forward. Excess in any other bucket is not
  carried into a newer month. Downstream figures depend on this, so keep it.

EXAMPLE:
  PendingDues 500, Month3 900; payments: 700 on a date before Month3,
  400 during Month3.

    olderPaid = min(700, 500)          = 500  (OlderDues left: 0)
    spill     = 700 - 500              = 200
    month3Paid = min(400 + 200, 900)   = 600  (Month3 due: 300)
*/
package billing

import "github.com/shopspring/decimal"

// HistoricalAllocation is how the recorded payments cover the window.
type HistoricalAllocation struct {
	OlderPaid        decimal.Decimal
	Month3Paid       decimal.Decimal
	Month2Paid       decimal.Decimal
	Month1Paid       decimal.Decimal
	CurrentMonthPaid decimal.Decimal

	// OlderDues is PendingDues minus OlderPaid, never negative.
	OlderDues decimal.Decimal
}

// bucketTotals sums paid payments per date bucket.
func bucketTotals(payments []Payment, w Window) map[bucket]decimal.Decimal {
	totals := map[bucket]decimal.Decimal{
		bucketOlder:   decimal.Zero,
		bucketMonth3:  decimal.Zero,
		bucketMonth2:  decimal.Zero,
		bucketMonth1:  decimal.Zero,
		bucketCurrent: decimal.Zero,
	}
	for _, p := range payments {
		if !p.Applied() {
			continue
		}
		b := w.bucketFor(p.EffectiveDate())
		totals[b] = totals[b].Add(p.Amount)
	}
	return totals
}

// AllocateHistory replays payments against the window's amounts.
// Order of the payments slice does not matter.
func AllocateHistory(pendingDues decimal.Decimal, amounts PeriodAmounts, payments []Payment, w Window) HistoricalAllocation {
	pendingDues = nonNegative(pendingDues)
	totals := bucketTotals(payments, w)

	olderPaid := minDecimal(totals[bucketOlder], pendingDues)
	spill := totals[bucketOlder].Sub(olderPaid)

	return HistoricalAllocation{
		OlderPaid:        olderPaid,
		Month3Paid:       minDecimal(totals[bucketMonth3].Add(spill), amounts.Month3),
		Month2Paid:       minDecimal(totals[bucketMonth2], amounts.Month2),
		Month1Paid:       minDecimal(totals[bucketMonth1], amounts.Month1),
		CurrentMonthPaid: minDecimal(totals[bucketCurrent], amounts.CurrentMonth),
		OlderDues:        nonNegative(pendingDues.Sub(olderPaid)),
	}
}

// TotalPaid sums every paid payment ever recorded.
func TotalPaid(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Applied() {
			total = total.Add(p.Amount)
		}
	}
	return total
}
