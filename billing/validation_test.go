package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishprajapat/billing-sub000/billing"
)

func TestValidatePaymentAmount(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		totalDue     string
		valid        bool
		errorCount   int
		warningCount int
	}{
		{"negative amount fails", "-5", "1000", false, 1, 0},
		{"zero amount fails", "0", "1000", false, 1, 0},
		{"within due", "800", "1000", true, 0, 0},
		{"exact due", "1000", "1000", true, 0, 0},
		{"above due warns once", "1500", "1000", true, 0, 1},
		{"more than double due warns twice", "3000", "1000", true, 0, 2},
		{"pure advance on zero due", "500", "0", true, 0, 1},
		{"advance on negative due", "500", "-20", true, 0, 1},
		{"three decimals fails", "10.005", "1000", false, 1, 0},
		{"trailing zeros are fine", "10.500", "1000", true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := billing.ValidatePaymentAmount(money(tt.amount), money(tt.totalDue))

			assert.Equal(t, tt.valid, r.IsValid)
			assert.Len(t, r.Errors, tt.errorCount)
			assert.Len(t, r.Warnings, tt.warningCount)
		})
	}
}

func TestValidatePaymentAmount_ScenarioE(t *testing.T) {
	// GIVEN/WHEN: a negative amount
	bad := billing.ValidatePaymentAmount(money("-5"), money("1000"))

	// THEN: refused with one error
	assert.False(t, bad.IsValid)
	require.Len(t, bad.Errors, 1)
	assert.Contains(t, bad.Errors[0], "greater than zero")
	assert.ErrorIs(t, bad.Err(), billing.ErrPaymentRejected)

	// GIVEN/WHEN: more than the total due
	over := billing.ValidatePaymentAmount(money("3000"), money("1000"))

	// THEN: accepted with two warnings. 3000 exceeds the total due and is
	// also more than twice it, so both rules fire.
	assert.True(t, over.IsValid)
	assert.Empty(t, over.Errors)
	require.Len(t, over.Warnings, 2)
	assert.Contains(t, over.Warnings[0], "credited as advance")
	assert.Contains(t, over.Warnings[1], "significantly higher")
	assert.NoError(t, over.Err())

	// GIVEN/WHEN: above the total due but not twice it
	slightlyOver := billing.ValidatePaymentAmount(money("1500"), money("1000"))

	// THEN: only the advance-credit warning
	require.Len(t, slightlyOver.Warnings, 1)
	assert.Contains(t, slightlyOver.Warnings[0], "credited as advance")
}

func TestValidatePaymentDate(t *testing.T) {
	now := billing.Date(2026, time.October, 15)

	future := billing.ValidatePaymentDate(billing.Date(2026, time.October, 16), now)
	assert.False(t, future.IsValid)

	sameDay := billing.ValidatePaymentDate(time.Date(2026, time.October, 15, 18, 0, 0, 0, time.UTC), now)
	assert.True(t, sameDay.IsValid)
	assert.Empty(t, sameDay.Warnings)

	old := billing.ValidatePaymentDate(billing.Date(2025, time.October, 1), now)
	assert.True(t, old.IsValid)
	assert.Len(t, old.Warnings, 1)
}

func TestValidationResult_Merge(t *testing.T) {
	amount := billing.ValidatePaymentAmount(money("1500"), money("1000"))
	date := billing.ValidatePaymentDate(billing.Date(2030, time.January, 1), billing.Date(2026, time.October, 15))

	merged := amount.Merge(date)

	assert.False(t, merged.IsValid)
	assert.Len(t, merged.Errors, 1)
	assert.Len(t, merged.Warnings, 1)

	var vErr *billing.ValidationFailedError
	require.ErrorAs(t, merged.Err(), &vErr)
	assert.Equal(t, merged.Errors, vErr.Errors)
}
