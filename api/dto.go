/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the billing model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND DATES:
  Amounts travel as decimal strings ("1200.00") in both directions so no
  client ever rounds through a float. Dates are "2006-01-02".

VALIDATION:
  Request structs carry go-playground/validator tags for shape checks.
  Business rules (amount vs dues, future dates) stay in the billing
  package and come back as 400 with an "errors" list.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/krishprajapat/billing-sub000/billing"
	"github.com/krishprajapat/billing-sub000/collection"
)

const dateLayout = "2006-01-02"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateCustomerRequest is the request to create a customer.
type CreateCustomerRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	DailyQuantity string `json:"daily_quantity" validate:"required,numeric"`
	RatePerLiter  string `json:"rate_per_liter" validate:"required,numeric"`
	PendingDues   string `json:"pending_dues" validate:"omitempty,numeric"`
}

// RecordDeliveryRequest records one day. Empty fields default to today and
// the customer's usual quantity.
type RecordDeliveryRequest struct {
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Quantity string `json:"quantity" validate:"omitempty,numeric"`
}

// RecordPaymentRequest is the body of POST /api/customers/{id}/payments.
type RecordPaymentRequest struct {
	Amount   string `json:"amount" validate:"required,numeric"`
	Method   string `json:"method" validate:"omitempty,oneof=cash upi card bank_transfer"`
	PaidDate string `json:"paid_date" validate:"omitempty,datetime=2006-01-02"`
	Notes    string `json:"notes" validate:"omitempty,max=500"`
}

// ValidatePaymentRequest is the body of POST /api/payments/validate.
type ValidatePaymentRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Amount     string `json:"amount" validate:"required,numeric"`
	PaidDate   string `json:"paid_date" validate:"omitempty,datetime=2006-01-02"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone,omitempty"`
	DailyQuantity string  `json:"daily_quantity"`
	RatePerLiter  string  `json:"rate_per_liter"`
	PendingDues   string  `json:"pending_dues"`
	LastPayment   *string `json:"last_payment,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// PeriodDueDTO is one tracked month of a summary.
type PeriodDueDTO struct {
	Month  string `json:"month"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
	Paid   string `json:"paid"`
	Due    string `json:"due"`
}

// SummaryDTO is the payment summary of one customer.
type SummaryDTO struct {
	CustomerID      string       `json:"customer_id"`
	CurrentMonth    PeriodDueDTO `json:"current_month"`
	Month1          PeriodDueDTO `json:"month1"`
	Month2          PeriodDueDTO `json:"month2"`
	Month3          PeriodDueDTO `json:"month3"`
	OlderDues       string       `json:"older_dues"`
	TotalDue        string       `json:"total_due"`
	TotalPaid       string       `json:"total_paid"`
	Status          string       `json:"status"`
	IsOverdue       bool         `json:"is_overdue"`
	LastPaymentDate *string      `json:"last_payment_date,omitempty"`
	NextDueDate     string       `json:"next_due_date"`
}

// DeliveryDTO represents a priced delivery.
type DeliveryDTO struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customer_id"`
	Date        string `json:"date"`
	Quantity    string `json:"quantity"`
	DailyAmount string `json:"daily_amount"`
}

// PaymentDTO represents a stored payment record.
type PaymentDTO struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	Amount     string  `json:"amount"`
	Status     string  `json:"status"`
	Method     string  `json:"method,omitempty"`
	PaidDate   *string `json:"paid_date,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// AllocationDTO is the oldest-first split of a payment.
type AllocationDTO struct {
	OlderDues    string `json:"older_dues"`
	Month3       string `json:"month3"`
	Month2       string `json:"month2"`
	Month1       string `json:"month1"`
	CurrentMonth string `json:"current_month"`
	Credit       string `json:"credit"`
}

// PaymentReceiptDTO is returned when a payment is recorded.
type PaymentReceiptDTO struct {
	Payment          PaymentDTO    `json:"payment"`
	Allocation       AllocationDTO `json:"allocation"`
	RemainingBalance string        `json:"remaining_balance"`
	Outcome          string        `json:"outcome"`
	PendingDues      string        `json:"pending_dues"`
	LastPayment      string        `json:"last_payment"`
	Notes            []string      `json:"notes"`
	Warnings         []string      `json:"warnings"`
}

// ValidationDTO is returned by the validate endpoint.
type ValidationDTO struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	TotalDue string   `json:"total_due"`
}

// OverdueAccountDTO is one row of the overdue report.
type OverdueAccountDTO struct {
	Customer CustomerDTO `json:"customer"`
	Summary  SummaryDTO  `json:"summary"`
}

// FieldErrorDTO describes one failed request field.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the error body of every failed request.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
	Fields  []FieldErrorDTO `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func toCustomerDTO(c billing.Customer) CustomerDTO {
	dto := CustomerDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		Phone:         c.Phone,
		DailyQuantity: c.DailyQuantity.String(),
		RatePerLiter:  formatMoney(c.RatePerLiter),
		PendingDues:   formatMoney(c.PendingDues),
		LastPayment:   formatDatePtr(c.LastPayment),
	}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPeriodDueDTO(monthStart time.Time, p billing.PeriodDue) PeriodDueDTO {
	return PeriodDueDTO{
		Month:  monthStart.Format("2006-01"),
		Label:  monthStart.Format("Jan 2006"),
		Amount: formatMoney(p.Amount),
		Paid:   formatMoney(p.Paid),
		Due:    formatMoney(p.Due),
	}
}

func toSummaryDTO(s billing.Summary) SummaryDTO {
	return SummaryDTO{
		CustomerID:      string(s.CustomerID),
		CurrentMonth:    toPeriodDueDTO(s.Window.CurrentMonth, s.CurrentMonth),
		Month1:          toPeriodDueDTO(s.Window.Month1, s.Month1),
		Month2:          toPeriodDueDTO(s.Window.Month2, s.Month2),
		Month3:          toPeriodDueDTO(s.Window.Month3, s.Month3),
		OlderDues:       formatMoney(s.OlderDues),
		TotalDue:        formatMoney(s.TotalDue),
		TotalPaid:       formatMoney(s.TotalPaid),
		Status:          string(s.Status),
		IsOverdue:       s.IsOverdue,
		LastPaymentDate: formatDatePtr(s.LastPaymentDate),
		NextDueDate:     formatDate(s.NextDueDate),
	}
}

func toDeliveryDTO(d billing.Delivery) DeliveryDTO {
	return DeliveryDTO{
		ID:          string(d.ID),
		CustomerID:  string(d.CustomerID),
		Date:        formatDate(d.Date),
		Quantity:    d.Quantity.String(),
		DailyAmount: formatMoney(d.DailyAmount),
	}
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:         string(p.ID),
		CustomerID: string(p.CustomerID),
		Amount:     formatMoney(p.Amount),
		Status:     string(p.Status),
		Method:     string(p.Method),
		PaidDate:   formatDatePtr(p.PaidDate),
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}

func toAllocationDTO(a billing.Allocation) AllocationDTO {
	return AllocationDTO{
		OlderDues:    formatMoney(a.OlderDues),
		Month3:       formatMoney(a.Month3),
		Month2:       formatMoney(a.Month2),
		Month1:       formatMoney(a.Month1),
		CurrentMonth: formatMoney(a.CurrentMonth),
		Credit:       formatMoney(a.Credit),
	}
}

func toReceiptDTO(r collection.Receipt) PaymentReceiptDTO {
	return PaymentReceiptDTO{
		Payment:          toPaymentDTO(r.Payment),
		Allocation:       toAllocationDTO(r.Result.Allocation),
		RemainingBalance: formatMoney(r.Result.RemainingBalance),
		Outcome:          string(r.Result.Outcome),
		PendingDues:      formatMoney(r.Result.Patch.PendingDues),
		LastPayment:      formatDate(r.Result.Patch.LastPayment),
		Notes:            nonNil(r.Notes),
		Warnings:         nonNil(r.Warnings),
	}
}

func toValidationDTO(v billing.ValidationResult, s billing.Summary) ValidationDTO {
	return ValidationDTO{
		IsValid:  v.IsValid,
		Errors:   nonNil(v.Errors),
		Warnings: nonNil(v.Warnings),
		TotalDue: formatMoney(s.TotalDue),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
