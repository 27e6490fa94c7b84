/*
errors.go - Centralized error types for the billing engine

ERROR CATEGORIES:
  1. Input errors - invalid payment amount/date (client errors, never retried)
  2. Lookup errors - customer missing in a repository
  3. Store errors - wrapped by repository implementations

The engine itself only fails on invalid arithmetic input. Business states
such as overdue, partial or overpaid are results, not errors.
*/
package billing

import (
	"errors"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a payment amount is zero or negative.
	ErrInvalidAmount = errors.New("payment amount must be greater than zero")

	// ErrPaymentRejected is returned when validation produced errors.
	ErrPaymentRejected = errors.New("payment rejected")

	// ErrCustomerNotFound is returned by repositories for unknown customers.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidInput is returned for customer or delivery input that
	// cannot be priced, such as a missing name or a negative rate.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateDelivery is returned when a customer's day is already
	// recorded.
	ErrDuplicateDelivery = errors.New("delivery already recorded for this day")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationFailedError carries the validation messages that blocked a payment.
type ValidationFailedError struct {
	Errors []string
}

func (e *ValidationFailedError) Error() string {
	return "payment rejected: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationFailedError) Unwrap() error {
	return ErrPaymentRejected
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrPaymentRejected) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidInput)
}

// IsConflict returns true if the error reports an already-recorded fact.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateDelivery)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}
