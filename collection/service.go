/*
Package collection runs the dues engine against storage.

PURPOSE:
  The billing engine is pure. This package loads the records it needs,
  calls it, and persists what it returns. It owns the one read-modify-write
  sequence in the system: recording a payment.

PAYMENT FLOW (RecordPayment):
  1. Lock the customer (KeyedMutex)
  2. Inside WithTx: load customer, payments, window deliveries
  3. Summarize, then validate amount against TotalDue (and the date)
  4. ProcessPayment -> allocation + customer patch
  5. SavePayment (full amount, notes describing the allocation)
  6. UpdateCustomerDues(patch)
  7. Commit, unlock

  The lock serializes callers in this process; the transaction keeps the
  writes atomic. Two payments for the same customer can never allocate
  against the same stale summary.

OTHER OPERATIONS:
  Summary           read-only summary for one customer
  ValidatePayment   dry run of step 3
  RecordDelivery    price one day's milk at the customer's rate
  OverdueAccounts   summarize everyone, keep the overdue ones
*/
package collection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/krishprajapat/billing-sub000/billing"
)

// Store is the storage the service needs: the engine repository plus the
// customer and delivery writes used by the HTTP layer.
type Store interface {
	billing.TxRepository
	SaveCustomer(ctx context.Context, c billing.Customer) error
	ListCustomers(ctx context.Context) ([]billing.Customer, error)
	SaveDelivery(ctx context.Context, d billing.Delivery) error
}

// Service coordinates the engine and the store.
type Service struct {
	store    Store
	engine   *billing.Engine
	logger   *zap.Logger
	locks    *KeyedMutex
	currency string
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithCurrency sets the symbol used in payment notes.
func WithCurrency(symbol string) Option {
	return func(s *Service) {
		if symbol != "" {
			s.currency = symbol
		}
	}
}

// WithIDGenerator replaces uuid generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(store Store, engine *billing.Engine, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    store,
		engine:   engine,
		logger:   logger.Named("collection"),
		locks:    NewKeyedMutex(),
		currency: billing.DefaultCurrencySymbol,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine exposes the engine the service was built with.
func (s *Service) Engine() *billing.Engine { return s.engine }

// =============================================================================
// CUSTOMERS
// =============================================================================

// NewCustomer is the input for CreateCustomer.
type NewCustomer struct {
	Name          string
	Phone         string
	DailyQuantity decimal.Decimal
	RatePerLiter  decimal.Decimal
	PendingDues   decimal.Decimal
}

func (s *Service) CreateCustomer(ctx context.Context, in NewCustomer) (billing.Customer, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return billing.Customer{}, fmt.Errorf("%w: name is required", billing.ErrInvalidInput)
	case !in.DailyQuantity.IsPositive():
		return billing.Customer{}, fmt.Errorf("%w: daily quantity must be greater than zero", billing.ErrInvalidInput)
	case !in.RatePerLiter.IsPositive():
		return billing.Customer{}, fmt.Errorf("%w: rate per liter must be greater than zero", billing.ErrInvalidInput)
	case in.PendingDues.IsNegative():
		return billing.Customer{}, fmt.Errorf("%w: pending dues cannot be negative", billing.ErrInvalidInput)
	}

	c := billing.Customer{
		ID:            billing.CustomerID(s.newID()),
		Name:          name,
		Phone:         strings.TrimSpace(in.Phone),
		DailyQuantity: in.DailyQuantity,
		RatePerLiter:  in.RatePerLiter,
		PendingDues:   in.PendingDues,
		CreatedAt:     s.engine.Now().UTC(),
	}
	if err := s.store.SaveCustomer(ctx, c); err != nil {
		return billing.Customer{}, err
	}
	s.logger.Info("customer created", zap.String("customer_id", string(c.ID)), zap.String("name", c.Name))
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id billing.CustomerID) (billing.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]billing.Customer, error) {
	return s.store.ListCustomers(ctx)
}

// =============================================================================
// DELIVERIES
// =============================================================================

// DeliveryInput records one day's delivery. A nil Quantity means the
// customer's usual daily quantity; a zero Date means today.
type DeliveryInput struct {
	CustomerID billing.CustomerID
	Date       time.Time
	Quantity   *decimal.Decimal
}

func (s *Service) RecordDelivery(ctx context.Context, in DeliveryInput) (billing.Delivery, error) {
	c, err := s.store.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return billing.Delivery{}, err
	}

	now := s.engine.Now()
	date := billing.Day(now)
	if !in.Date.IsZero() {
		date = billing.Day(in.Date)
	}
	if date.After(billing.Day(now)) {
		return billing.Delivery{}, fmt.Errorf("%w: delivery date cannot be in the future", billing.ErrInvalidInput)
	}

	quantity := c.DailyQuantity
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	if quantity.IsNegative() {
		return billing.Delivery{}, fmt.Errorf("%w: quantity cannot be negative", billing.ErrInvalidInput)
	}

	d := billing.Delivery{
		ID:          billing.DeliveryID(s.newID()),
		CustomerID:  c.ID,
		Date:        date,
		Quantity:    quantity,
		DailyAmount: billing.DailyAmount(quantity, c.RatePerLiter),
		CreatedAt:   now.UTC(),
	}
	if err := s.store.SaveDelivery(ctx, d); err != nil {
		return billing.Delivery{}, err
	}
	s.logger.Debug("delivery recorded",
		zap.String("customer_id", string(c.ID)),
		zap.Time("date", date),
		zap.String("amount", d.DailyAmount.StringFixed(2)),
	)
	return d, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary builds the customer's current payment summary.
func (s *Service) Summary(ctx context.Context, id billing.CustomerID) (billing.Summary, error) {
	c, payments, deliveries, err := s.load(ctx, s.store, id)
	if err != nil {
		return billing.Summary{}, err
	}
	return s.engine.Summarize(c, payments, deliveries), nil
}

// Payments lists the customer's payment records oldest first.
func (s *Service) Payments(ctx context.Context, id billing.CustomerID) ([]billing.Payment, error) {
	if _, err := s.store.GetCustomer(ctx, id); err != nil {
		return nil, err
	}
	return s.store.FindPaymentsByCustomer(ctx, id)
}

// load reads everything Summarize needs. Deliveries are limited to the
// tracking window; anything older lives in PendingDues.
func (s *Service) load(ctx context.Context, repo billing.Repository, id billing.CustomerID) (billing.Customer, []billing.Payment, []billing.Delivery, error) {
	c, err := repo.GetCustomer(ctx, id)
	if err != nil {
		return billing.Customer{}, nil, nil, err
	}
	payments, err := repo.FindPaymentsByCustomer(ctx, id)
	if err != nil {
		return billing.Customer{}, nil, nil, fmt.Errorf("load payments: %w", err)
	}
	deliveries, err := repo.FindDeliveriesByCustomer(ctx, id, s.engine.Window().Span())
	if err != nil {
		return billing.Customer{}, nil, nil, fmt.Errorf("load deliveries: %w", err)
	}
	return c, payments, deliveries, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentInput describes an incoming payment. PaidDate is optional and
// only affects the stored record's date; the customer's LastPayment is
// always today.
type PaymentInput struct {
	CustomerID billing.CustomerID
	Amount     decimal.Decimal
	Method     billing.PaymentMethod
	PaidDate   *time.Time
	Notes      string
}

// Receipt is the outcome of RecordPayment.
type Receipt struct {
	Payment  billing.Payment
	Result   billing.PaymentResult
	Summary  billing.Summary // before the payment
	Warnings []string
	Notes    []string
}

// ValidatePayment checks an amount (and optional date) against the
// customer's current dues without recording anything.
func (s *Service) ValidatePayment(ctx context.Context, id billing.CustomerID, amount decimal.Decimal, paidDate *time.Time) (billing.ValidationResult, billing.Summary, error) {
	summary, err := s.Summary(ctx, id)
	if err != nil {
		return billing.ValidationResult{}, billing.Summary{}, err
	}
	return s.validate(amount, paidDate, summary), summary, nil
}

func (s *Service) validate(amount decimal.Decimal, paidDate *time.Time, summary billing.Summary) billing.ValidationResult {
	result := billing.ValidatePaymentAmount(amount, summary.TotalDue)
	if paidDate != nil {
		result = result.Merge(billing.ValidatePaymentDate(*paidDate, s.engine.Now()))
	}
	return result
}

// RecordPayment validates, allocates and persists a payment while holding
// the customer's lock. Validation errors return a *billing.ValidationFailedError
// and nothing is written.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (Receipt, error) {
	method := in.Method
	if method == "" {
		method = billing.MethodCash
	}
	if !validMethod(method) {
		return Receipt{}, fmt.Errorf("%w: unknown payment method %q", billing.ErrInvalidInput, method)
	}

	unlock := s.locks.Lock(string(in.CustomerID))
	defer unlock()

	var receipt Receipt
	err := s.store.WithTx(ctx, func(repo billing.Repository) error {
		c, payments, deliveries, err := s.load(ctx, repo, in.CustomerID)
		if err != nil {
			return err
		}

		summary := s.engine.Summarize(c, payments, deliveries)
		check := s.validate(in.Amount, in.PaidDate, summary)
		if err := check.Err(); err != nil {
			return err
		}

		result, err := s.engine.ProcessPayment(c, in.Amount, summary)
		if err != nil {
			return err
		}

		paidDate := result.Patch.LastPayment
		if in.PaidDate != nil {
			paidDate = billing.Day(*in.PaidDate)
		}
		notes := result.Allocation.Notes(summary.Window, s.currency)
		description := strings.Join(notes, ", ")
		if in.Notes != "" {
			description = strings.TrimSpace(in.Notes) + "; " + description
		}

		payment := billing.Payment{
			ID:         billing.PaymentID(s.newID()),
			CustomerID: c.ID,
			Amount:     in.Amount,
			Status:     billing.PaymentRecordPaid,
			Method:     method,
			PaidDate:   &paidDate,
			Notes:      description,
			CreatedAt:  s.engine.Now().UTC(),
		}
		if err := repo.SavePayment(ctx, payment); err != nil {
			return err
		}
		if err := repo.UpdateCustomerDues(ctx, c.ID, result.Patch); err != nil {
			return err
		}

		receipt = Receipt{
			Payment:  payment,
			Result:   result,
			Summary:  summary,
			Warnings: check.Warnings,
			Notes:    notes,
		}
		return nil
	})
	if err != nil {
		if billing.IsClientError(err) {
			s.logger.Info("payment rejected", zap.String("customer_id", string(in.CustomerID)), zap.Error(err))
		}
		return Receipt{}, err
	}

	s.logger.Info("payment recorded",
		zap.String("customer_id", string(in.CustomerID)),
		zap.String("payment_id", string(receipt.Payment.ID)),
		zap.String("amount", in.Amount.StringFixed(2)),
		zap.String("outcome", string(receipt.Result.Outcome)),
		zap.String("remaining", receipt.Result.RemainingBalance.StringFixed(2)),
		zap.String("credit", receipt.Result.Allocation.Credit.StringFixed(2)),
	)
	return receipt, nil
}

func validMethod(m billing.PaymentMethod) bool {
	switch m {
	case billing.MethodCash, billing.MethodUPI, billing.MethodCard, billing.MethodBank:
		return true
	}
	return false
}

// =============================================================================
// OVERDUE REPORT
// =============================================================================

// OverdueAccount pairs an overdue customer with its summary.
type OverdueAccount struct {
	Customer billing.Customer
	Summary  billing.Summary
}

// OverdueAccounts summarizes every customer and returns the overdue ones,
// largest TotalDue first.
func (s *Service) OverdueAccounts(ctx context.Context) ([]OverdueAccount, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	var overdue []OverdueAccount
	for _, c := range customers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary, err := s.Summary(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", c.ID, err)
		}
		if summary.IsOverdue {
			overdue = append(overdue, OverdueAccount{Customer: c, Summary: summary})
		}
	}

	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].Summary.TotalDue.GreaterThan(overdue[j].Summary.TotalDue)
	})
	return overdue, nil
}
