package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT VALIDATION
// =============================================================================

// MaxPaymentAge is how old a payment date may be before it draws a warning.
const MaxPaymentAge = 365

// ValidationResult separates blocking errors from advisory warnings.
// Callers refuse the payment when IsValid is false and surface Warnings
// alongside a successful response otherwise.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

func newValidationResult() ValidationResult {
	return ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}
}

func (r *ValidationResult) fail(msg string) {
	r.IsValid = false
	r.Errors = append(r.Errors, msg)
}

func (r *ValidationResult) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Merge folds other into r.
func (r ValidationResult) Merge(other ValidationResult) ValidationResult {
	out := ValidationResult{
		IsValid:  r.IsValid && other.IsValid,
		Errors:   append(append([]string{}, r.Errors...), other.Errors...),
		Warnings: append(append([]string{}, r.Warnings...), other.Warnings...),
	}
	return out
}

// Err returns a *ValidationFailedError when the result is invalid.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationFailedError{Errors: r.Errors}
}

// ValidatePaymentAmount checks an amount against the customer's total due.
// A non-positive total due with a positive amount is a valid advance.
func ValidatePaymentAmount(amount, totalDue decimal.Decimal) ValidationResult {
	r := newValidationResult()

	if !amount.IsPositive() {
		r.fail("Payment amount must be greater than zero")
		return r
	}
	if !amount.Equal(amount.Truncate(2)) {
		r.fail("Payment amount cannot have more than 2 decimal places")
	}

	if amount.GreaterThan(totalDue) {
		r.warn(fmt.Sprintf("Payment amount exceeds total due of %s. Excess will be credited as advance.", totalDue.StringFixed(2)))
	}
	if totalDue.IsPositive() && amount.GreaterThan(totalDue.Mul(decimal.NewFromInt(2))) {
		r.warn("Payment amount is significantly higher than total due. Please verify.")
	}
	return r
}

// ValidatePaymentDate rejects future dates and warns about very old ones.
func ValidatePaymentDate(date, now time.Time) ValidationResult {
	r := newValidationResult()
	if Day(date).After(Day(now)) {
		r.fail("Payment date cannot be in the future")
		return r
	}
	if DaysBetween(date, now) > MaxPaymentAge {
		r.warn("Payment date is more than a year old. Please verify.")
	}
	return r
}
