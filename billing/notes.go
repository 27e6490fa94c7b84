package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol prefixes amounts in payment notes.
const DefaultCurrencySymbol = "₹"

// Notes renders one line per non-zero bucket, oldest first, e.g.
//
//	₹1200.00 applied to older dues
//	₹800.00 applied to Jul 2026
//	₹50.00 credited as advance
func (a Allocation) Notes(w Window, currency string) []string {
	if currency == "" {
		currency = DefaultCurrencySymbol
	}
	lines := []string{}
	add := func(amount decimal.Decimal, what string) {
		if amount.IsPositive() {
			lines = append(lines, currency+amount.StringFixed(2)+" "+what)
		}
	}

	add(a.OlderDues, "applied to older dues")
	add(a.Month3, "applied to "+monthLabel(w.Month3))
	add(a.Month2, "applied to "+monthLabel(w.Month2))
	add(a.Month1, "applied to "+monthLabel(w.Month1))
	add(a.CurrentMonth, "applied to "+monthLabel(w.CurrentMonth))
	add(a.Credit, "credited as advance")
	return lines
}

// Describe joins Notes into a single payment note.
func (a Allocation) Describe(w Window, currency string) string {
	return strings.Join(a.Notes(w, currency), ", ")
}

func monthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}
