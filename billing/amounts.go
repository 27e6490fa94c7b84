package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERIOD AMOUNT CALCULATOR
// =============================================================================

// PeriodAmounts are the billed totals of the four tracked months.
type PeriodAmounts struct {
	CurrentMonth decimal.Decimal
	Month1       decimal.Decimal
	Month2       decimal.Decimal
	Month3       decimal.Decimal
}

// Total sums the four months.
func (a PeriodAmounts) Total() decimal.Decimal {
	return a.CurrentMonth.Add(a.Month1).Add(a.Month2).Add(a.Month3)
}

// MonthAmount sums DailyAmount over customerID's deliveries in the calendar
// month that starts at monthStart, both ends inclusive. Returns zero when
// nothing matches.
func MonthAmount(customerID CustomerID, deliveries []Delivery, monthStart time.Time) decimal.Decimal {
	month := MonthPeriod(monthStart)
	total := decimal.Zero
	for _, d := range deliveries {
		if d.CustomerID != customerID || !month.Contains(d.Date) {
			continue
		}
		total = total.Add(d.DailyAmount)
	}
	return total
}

// AmountsFor computes all four months of the window.
func AmountsFor(customerID CustomerID, deliveries []Delivery, w Window) PeriodAmounts {
	return PeriodAmounts{
		CurrentMonth: MonthAmount(customerID, deliveries, w.CurrentMonth),
		Month1:       MonthAmount(customerID, deliveries, w.Month1),
		Month2:       MonthAmount(customerID, deliveries, w.Month2),
		Month3:       MonthAmount(customerID, deliveries, w.Month3),
	}
}
