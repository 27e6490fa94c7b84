package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishprajapat/billing-sub000/billing"
)

// =============================================================================
// FIXTURES - A spread of account shapes used by the property checks
// =============================================================================

type fixture struct {
	name       string
	customer   billing.Customer
	payments   []billing.Payment
	deliveries []billing.Delivery
}

func fixtures() []fixture {
	var all []billing.Delivery
	all = append(all, dailyDeliveries("c1", billing.Date(2026, time.July, 1), 31, "40")...)
	all = append(all, dailyDeliveries("c1", billing.Date(2026, time.August, 1), 31, "45")...)
	all = append(all, dailyDeliveries("c1", billing.Date(2026, time.September, 1), 30, "50")...)
	all = append(all, dailyDeliveries("c1", billing.Date(2026, time.October, 1), 15, "55")...)

	return []fixture{
		{name: "empty account", customer: customer("c1", "0")},
		{name: "older dues only", customer: customer("c1", "750")},
		{name: "full window unpaid", customer: customer("c1", "300"), deliveries: all},
		{
			name:       "each month partly paid in its own month",
			customer:   customer("c1", "300"),
			deliveries: all,
			payments: []billing.Payment{
				paidOn("c1", "200", billing.Date(2026, time.June, 30)),
				paidOn("c1", "1000", billing.Date(2026, time.July, 25)),
				paidOn("c1", "1395", billing.Date(2026, time.August, 31)),
				paidOn("c1", "700", billing.Date(2026, time.September, 15)),
				paidOn("c1", "100", billing.Date(2026, time.October, 14)),
			},
		},
		{
			name:       "everything settled",
			customer:   customer("c1", "0"),
			deliveries: all,
			payments: []billing.Payment{
				paidOn("c1", "1240", billing.Date(2026, time.July, 31)),
				paidOn("c1", "1395", billing.Date(2026, time.August, 31)),
				paidOn("c1", "1500", billing.Date(2026, time.September, 30)),
				paidOn("c1", "825", billing.Date(2026, time.October, 15)),
			},
		},
		{
			name:       "over-paid month does not go negative",
			customer:   customer("c1", "0"),
			deliveries: all,
			payments: []billing.Payment{
				paidOn("c1", "9999", billing.Date(2026, time.August, 3)),
			},
		},
	}
}

// =============================================================================
// P1 - CONSERVATION
// =============================================================================

func TestProperty_AllocationConservesMoney(t *testing.T) {
	engine := newTestEngine()
	amounts := []string{"0", "0.01", "1", "299.99", "300", "750", "1240", "2635.50", "5000", "123456.78"}

	for _, f := range fixtures() {
		s := engine.Summarize(f.customer, f.payments, f.deliveries)
		for _, a := range amounts {
			amount := money(a)
			alloc := billing.Allocate(s, amount)

			assert.True(t, alloc.Total().Equal(amount), "%s: allocated %s of %s", f.name, alloc.Total(), a)
			if amount.LessThanOrEqual(s.TotalDue) {
				assert.True(t, alloc.Credit.IsZero(), "%s: credit on %s <= due %s", f.name, a, s.TotalDue)
			} else {
				assert.True(t, alloc.Credit.Equal(amount.Sub(s.TotalDue)), "%s: credit for %s", f.name, a)
			}
		}
	}
}

// =============================================================================
// P2 - OLDEST FIRST
// =============================================================================

func TestProperty_OldestFirst(t *testing.T) {
	engine := newTestEngine()
	f := fixtures()[2] // full window unpaid
	s := engine.Summarize(f.customer, f.payments, f.deliveries)

	dues := []decimal.Decimal{s.OlderDues, s.Month3.Due, s.Month2.Due, s.Month1.Due, s.CurrentMonth.Due}

	for cents := int64(0); cents <= s.TotalDue.IntPart()*100+500; cents += 3717 {
		amount := decimal.New(cents, -2)
		a := billing.Allocate(s, amount)
		got := []decimal.Decimal{a.OlderDues, a.Month3, a.Month2, a.Month1, a.CurrentMonth}

		// A bucket may only receive money once every older bucket is full.
		for i := 1; i < len(got); i++ {
			if got[i].IsPositive() {
				for j := 0; j < i; j++ {
					require.True(t, got[j].Equal(dues[j]),
						"amount %s: bucket %d funded before bucket %d was full", amount, i, j)
				}
			}
		}
	}
}

// =============================================================================
// P3 - IDEMPOTENT SUMMARY
// =============================================================================

func TestProperty_SummaryIsIdempotent(t *testing.T) {
	engine := newTestEngine()
	for _, f := range fixtures() {
		first := engine.Summarize(f.customer, f.payments, f.deliveries)
		second := engine.Summarize(f.customer, f.payments, f.deliveries)
		assert.Equal(t, first, second, f.name)
	}
}

// =============================================================================
// P4 - NON-NEGATIVE DUES
// =============================================================================

func TestProperty_DuesNeverNegative(t *testing.T) {
	engine := newTestEngine()
	for _, f := range fixtures() {
		s := engine.Summarize(f.customer, f.payments, f.deliveries)
		for _, d := range []decimal.Decimal{s.OlderDues, s.Month3.Due, s.Month2.Due, s.Month1.Due, s.CurrentMonth.Due, s.TotalDue} {
			assert.False(t, d.IsNegative(), "%s: negative due %s", f.name, d)
		}
	}
}

// =============================================================================
// P5 - STATUS CONSISTENCY
// =============================================================================

func TestProperty_NothingDueMeansPaid(t *testing.T) {
	engine := newTestEngine()
	for _, f := range fixtures() {
		s := engine.Summarize(f.customer, f.payments, f.deliveries)
		if !s.TotalDue.IsPositive() {
			assert.Equal(t, billing.StatusPaid, s.Status, f.name)
			assert.False(t, s.IsOverdue, f.name)
		} else {
			assert.NotEqual(t, billing.StatusPaid, s.Status, f.name)
		}
	}
}

// =============================================================================
// MODEL INVARIANT - TotalDue = amounts + PendingDues - TotalPaid
// =============================================================================

func TestProperty_TotalDueReconciles(t *testing.T) {
	// Holds whenever no bucket is over-paid, which is true for the first
	// five fixtures.
	engine := newTestEngine()
	for _, f := range fixtures()[:5] {
		s := engine.Summarize(f.customer, f.payments, f.deliveries)
		billed := billing.AmountsFor(f.customer.ID, f.deliveries, s.Window).Total()
		expected := billed.Add(f.customer.PendingDues).Sub(s.TotalPaid)

		assert.True(t, expected.Equal(s.TotalDue), "%s: expected %s, got %s", f.name, expected, s.TotalDue)
	}
}

func TestProperty_PatchPlusWindowShareMatchesRemaining(t *testing.T) {
	// GIVEN: older dues plus current-month charges, nothing paid yet
	// WHEN: a payment is processed, the patch applied and only the share
	//       that landed inside the window is replayed as a payment today
	// THEN: the rebuilt summary's TotalDue equals the reported RemainingBalance
	//
	// Replaying the full amount also credits the older-dues share to the
	// current month, so the rebuilt total drops below RemainingBalance.
	engine := newTestEngine()
	c := customer("c1", "300")
	deliveries := dailyDeliveries("c1", billing.Date(2026, time.October, 1), 15, "55")
	s := engine.Summarize(c, nil, deliveries)
	require.True(t, s.TotalDue.Equal(money("1125")))

	for _, a := range []string{"50", "301.25", "825", "2000"} {
		res, err := engine.ProcessPayment(c, money(a), s)
		require.NoError(t, err)

		updated := c
		updated.PendingDues = res.Patch.PendingDues
		last := res.Patch.LastPayment
		updated.LastPayment = &last

		// The older-dues share is settled through PendingDues; the rest is
		// a payment dated today.
		recorded := paidOn("c1", res.Allocation.Total().Sub(res.Allocation.OlderDues).String(), today)
		after := engine.Summarize(updated, []billing.Payment{recorded}, deliveries)

		assert.True(t, after.TotalDue.Equal(res.RemainingBalance), "amount %s: %s vs %s", a, after.TotalDue, res.RemainingBalance)
	}
}
