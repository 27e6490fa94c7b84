/*
store.go - Persistence interfaces the engine's callers depend on

PURPOSE:
  The engine takes already-loaded records and returns pure results. These
  interfaces describe what a caller needs from storage to feed it and to
  persist its output. The engine package itself never calls them.

KEY INTERFACES:
  Repository:   load a customer, its payments and deliveries; write the
                new payment and the customer patch
  TxRepository: Repository plus WithTx for atomic read-modify-write

APPEND-ONLY PAYMENTS:
  Payments and deliveries are immutable facts. There is SavePayment but no
  update or delete. The only mutable state is the customer's
  (PendingDues, LastPayment) pair, changed through UpdateCustomerDues.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - billing/store/memory.go: in-memory for tests/dev
*/
package billing

import "context"

// Repository is the storage surface used around the engine.
type Repository interface {
	// GetCustomer returns ErrCustomerNotFound when id is unknown.
	GetCustomer(ctx context.Context, id CustomerID) (Customer, error)

	// FindPaymentsByCustomer returns every payment of the customer, any status.
	FindPaymentsByCustomer(ctx context.Context, id CustomerID) ([]Payment, error)

	// FindDeliveriesByCustomer returns deliveries dated within period.
	FindDeliveriesByCustomer(ctx context.Context, id CustomerID, period Period) ([]Delivery, error)

	// UpdateCustomerDues persists the patch returned by ProcessPayment.
	UpdateCustomerDues(ctx context.Context, id CustomerID, patch CustomerPatch) error

	// SavePayment appends a payment record.
	SavePayment(ctx context.Context, p Payment) error
}

// TxRepository wraps Repository with transaction support.
// If fn returns an error nothing fn wrote is kept.
type TxRepository interface {
	Repository
	WithTx(ctx context.Context, fn func(Repository) error) error
}
