package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishprajapat/billing-sub000/billing"
	"github.com/krishprajapat/billing-sub000/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCustomer(t *testing.T, s *sqlite.Store, id billing.CustomerID, pending string) {
	t.Helper()
	require.NoError(t, s.SaveCustomer(context.Background(), billing.Customer{
		ID:            id,
		Name:          "Customer " + string(id),
		Phone:         "9800000000",
		DailyQuantity: decimal.NewFromInt(2),
		RatePerLiter:  decimal.NewFromInt(60),
		PendingDues:   billing.MustParseDecimal(pending),
	}))
}

func TestStore_CustomerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "c1", "1200.50")

	c, err := s.GetCustomer(ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, "Customer c1", c.Name)
	assert.True(t, c.PendingDues.Equal(decimal.RequireFromString("1200.50")))
	assert.True(t, c.RatePerLiter.Equal(decimal.NewFromInt(60)))
	assert.Nil(t, c.LastPayment)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestStore_GetCustomerNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.GetCustomer(context.Background(), "missing")

	assert.ErrorIs(t, err, billing.ErrCustomerNotFound)
}

func TestStore_SaveCustomerKeepsDuesOnUpdate(t *testing.T) {
	// GIVEN: a customer whose dues were changed by a payment
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "c1", "500")
	require.NoError(t, s.UpdateCustomerDues(ctx, "c1", billing.CustomerPatch{
		PendingDues: decimal.NewFromInt(100),
		LastPayment: billing.Date(2026, time.October, 15),
	}))

	// WHEN: the profile is saved again
	seedCustomer(t, s, "c1", "999")

	// THEN: dues still come from the payment flow
	c, err := s.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.PendingDues.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, c.LastPayment)
	assert.Equal(t, billing.Date(2026, time.October, 15), *c.LastPayment)
}

func TestStore_UpdateCustomerDuesUnknown(t *testing.T) {
	s := newStore(t)

	err := s.UpdateCustomerDues(context.Background(), "nope", billing.CustomerPatch{})

	assert.ErrorIs(t, err, billing.ErrCustomerNotFound)
}

func TestStore_ListCustomersByName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "b", "0")
	seedCustomer(t, s, "a", "0")

	list, err := s.ListCustomers(ctx)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, billing.CustomerID("a"), list[0].ID)
	assert.Equal(t, billing.CustomerID("b"), list[1].ID)
}

func TestStore_DeliveriesByPeriod(t *testing.T) {
	// GIVEN: deliveries on both sides of a month boundary
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "c1", "0")
	for i, day := range []time.Time{
		billing.Date(2026, time.August, 31),
		billing.Date(2026, time.September, 1),
		billing.Date(2026, time.September, 30),
		billing.Date(2026, time.October, 1),
	} {
		require.NoError(t, s.SaveDelivery(ctx, billing.Delivery{
			ID:          billing.DeliveryID(fmt.Sprintf("d%d", i)),
			CustomerID:  "c1",
			Date:        day,
			Quantity:    decimal.NewFromInt(2),
			DailyAmount: decimal.RequireFromString("120.25"),
		}))
	}

	// WHEN: September is queried
	got, err := s.FindDeliveriesByCustomer(ctx, "c1", billing.MonthPeriod(billing.Date(2026, time.September, 1)))
	require.NoError(t, err)

	// THEN: only September days come back, in date order
	require.Len(t, got, 2)
	assert.Equal(t, billing.Date(2026, time.September, 1), got[0].Date)
	assert.Equal(t, billing.Date(2026, time.September, 30), got[1].Date)
	assert.True(t, got[0].DailyAmount.Equal(decimal.RequireFromString("120.25")))
}

func TestStore_DeliveryKeepsCreatedAt(t *testing.T) {
	// GIVEN: a delivery stamped by the caller's clock
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "c1", "0")
	stamped := time.Date(2026, time.October, 15, 10, 30, 0, 0, time.UTC)

	// WHEN
	require.NoError(t, s.SaveDelivery(ctx, billing.Delivery{
		ID:          "d1",
		CustomerID:  "c1",
		Date:        billing.Date(2026, time.October, 15),
		Quantity:    decimal.NewFromInt(1),
		DailyAmount: decimal.NewFromInt(60),
		CreatedAt:   stamped,
	}))

	// THEN: the stored timestamp is the caller's, not the wall clock
	got, err := s.FindDeliveriesByCustomer(ctx, "c1", billing.MonthPeriod(billing.Date(2026, time.October, 1)))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, stamped.Equal(got[0].CreatedAt), "got %s", got[0].CreatedAt)
}

func TestStore_DuplicateDeliveryDay(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "c1", "0")
	d := billing.Delivery{ID: "d1", CustomerID: "c1", Date: billing.Date(2026, time.October, 1), Quantity: decimal.NewFromInt(1), DailyAmount: decimal.NewFromInt(60)}
	require.NoError(t, s.SaveDelivery(ctx, d))

	d.ID = "d2"
	err := s.SaveDelivery(ctx, d)

	assert.ErrorIs(t, err, billing.ErrDuplicateDelivery)
}

func TestStore_InvalidPeriod(t *testing.T) {
	s := newStore(t)
	_, err := s.FindDeliveriesByCustomer(context.Background(), "c1", billing.Period{
		Start: billing.Date(2026, time.October, 2),
		End:   billing.Date(2026, time.October, 1),
	})
	assert.ErrorIs(t, err, billing.ErrInvalidPeriod)
}

func TestStore_PaymentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "c1", "0")
	paid := billing.Date(2026, time.October, 3)

	require.NoError(t, s.SavePayment(ctx, billing.Payment{
		ID: "p1", CustomerID: "c1", Amount: decimal.RequireFromString("300.50"),
		Status: billing.PaymentRecordPaid, Method: billing.MethodUPI, PaidDate: &paid,
		Notes: "applied to Oct 2026", CreatedAt: paid,
	}))
	require.NoError(t, s.SavePayment(ctx, billing.Payment{
		ID: "p2", CustomerID: "c1", Amount: decimal.NewFromInt(50),
		Status: billing.PaymentRecordPending, CreatedAt: paid.Add(time.Hour),
	}))

	got, err := s.FindPaymentsByCustomer(ctx, "c1")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, billing.PaymentID("p1"), got[0].ID)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("300.50")))
	assert.Equal(t, billing.MethodUPI, got[0].Method)
	require.NotNil(t, got[0].PaidDate)
	assert.Equal(t, paid, *got[0].PaidDate)
	assert.Nil(t, got[1].PaidDate)
	assert.False(t, got[1].Applied())
}

func TestStore_WithTxRollsBack(t *testing.T) {
	// GIVEN: a customer with dues
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "c1", "500")
	boom := errors.New("boom")

	// WHEN: a transaction writes and then fails
	err := s.WithTx(ctx, func(repo billing.Repository) error {
		require.NoError(t, repo.SavePayment(ctx, billing.Payment{ID: "p1", CustomerID: "c1", Amount: decimal.NewFromInt(500), Status: billing.PaymentRecordPaid}))
		require.NoError(t, repo.UpdateCustomerDues(ctx, "c1", billing.CustomerPatch{LastPayment: billing.Date(2026, time.October, 15)}))
		return boom
	})

	// THEN: nothing was persisted
	assert.ErrorIs(t, err, boom)
	c, err := s.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.PendingDues.Equal(decimal.NewFromInt(500)))
	payments, err := s.FindPaymentsByCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestStore_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedCustomer(t, s, "c1", "500")

	err := s.WithTx(ctx, func(repo billing.Repository) error {
		c, err := repo.GetCustomer(ctx, "c1")
		if err != nil {
			return err
		}
		if err := repo.SavePayment(ctx, billing.Payment{ID: "p1", CustomerID: c.ID, Amount: decimal.NewFromInt(500), Status: billing.PaymentRecordPaid}); err != nil {
			return err
		}
		return repo.UpdateCustomerDues(ctx, c.ID, billing.CustomerPatch{PendingDues: decimal.Zero, LastPayment: billing.Date(2026, time.October, 15)})
	})
	require.NoError(t, err)

	c, err := s.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.PendingDues.IsZero())
	payments, err := s.FindPaymentsByCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}
