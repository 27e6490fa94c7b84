/*
handlers.go - HTTP API handlers for the billing service

PURPOSE:
  Exposes the dues engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the collection service.

ENDPOINTS:
  Customers:
    GET    /api/customers                  List customers
    POST   /api/customers                  Create customer
    GET    /api/customers/{id}             Get customer
    GET    /api/customers/{id}/summary     Dues summary (4 months + older dues)

  Deliveries:
    POST   /api/customers/{id}/deliveries  Record one day's delivery

  Payments:
    GET    /api/customers/{id}/payments    Payment history
    POST   /api/customers/{id}/payments    Record a payment (allocates oldest first)
    POST   /api/payments/validate          Dry-run validation

  Reports:
    GET    /api/reports/overdue            Overdue accounts, largest due first

  Scenarios (only when Handler.Store is set):
    GET    /api/scenarios                  List demo scenarios
    GET    /api/scenarios/current          Currently loaded scenario
    POST   /api/scenarios/load             Reset and load a scenario
    POST   /api/scenarios/reset            Reset the database

REQUEST FLOW:
  1. Decode JSON body
  2. Shape validation (validator tags)
  3. Parse decimals/dates
  4. Call collection.Service
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, failed field validation, rejected payment
  - 404: Customer not found
  - 409: Delivery already recorded for the day
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/krishprajapat/billing-sub000/billing"
	"github.com/krishprajapat/billing-sub000/collection"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *collection.Service

	// Ping reports storage health for /healthz. Optional.
	Ping func(ctx context.Context) error

	// Store enables the demo scenario routes. Optional.
	Store ScenarioStore

	logger   *zap.Logger
	validate *validator.Validate

	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *collection.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Service:  svc,
		logger:   logger.Named("api"),
		validate: v,
	}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all customers.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.ListCustomers(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer creates a new customer.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := collection.NewCustomer{Name: req.Name, Phone: req.Phone}
	var err error
	if in.DailyQuantity, err = parseDecimal("daily_quantity", req.DailyQuantity); err == nil {
		if in.RatePerLiter, err = parseDecimal("rate_per_liter", req.RatePerLiter); err == nil {
			in.PendingDues, err = parseOptionalDecimal("pending_dues", req.PendingDues)
		}
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.Service.CreateCustomer(r.Context(), in)
	if err != nil {
		h.fail(w, r, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

// GetCustomer returns a single customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCustomer(r.Context(), customerID(r))
	if err != nil {
		h.fail(w, r, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// GetSummary returns the customer's dues summary. It is rebuilt from
// deliveries and payments on every request.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context(), customerID(r))
	if err != nil {
		h.fail(w, r, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// DELIVERY HANDLERS
// =============================================================================

// RecordDelivery prices and stores one day's delivery.
func (h *Handler) RecordDelivery(w http.ResponseWriter, r *http.Request) {
	var req RecordDeliveryRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := collection.DeliveryInput{CustomerID: customerID(r)}
	if req.Date != "" {
		in.Date, _ = time.Parse(dateLayout, req.Date) // checked by the datetime tag
	}
	if req.Quantity != "" {
		q, err := parseDecimal("quantity", req.Quantity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		in.Quantity = &q
	}

	d, err := h.Service.RecordDelivery(r.Context(), in)
	if err != nil {
		h.fail(w, r, "Failed to record delivery", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeliveryDTO(d))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns the customer's payment history.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.Payments(r.Context(), customerID(r))
	if err != nil {
		h.fail(w, r, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment validates and records a payment, allocating it oldest
// first. Warnings are returned with the receipt; errors block it.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := parseDecimal("amount", req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	receipt, err := h.Service.RecordPayment(r.Context(), collection.PaymentInput{
		CustomerID: customerID(r),
		Amount:     amount,
		Method:     billing.PaymentMethod(req.Method),
		PaidDate:   parseOptionalDate(req.PaidDate),
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptDTO(receipt))
}

// ValidatePayment runs payment validation without recording anything.
func (h *Handler) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	var req ValidatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := parseDecimal("amount", req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, summary, err := h.Service.ValidatePayment(r.Context(), billing.CustomerID(req.CustomerID), amount, parseOptionalDate(req.PaidDate))
	if err != nil {
		h.fail(w, r, "Failed to validate payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toValidationDTO(result, summary))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ListOverdue returns every overdue account.
func (h *Handler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.OverdueAccounts(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to build overdue report", err)
		return
	}

	dtos := make([]OverdueAccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = OverdueAccountDTO{Customer: toCustomerDTO(a.Customer), Summary: toSummaryDTO(a.Summary)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports liveness and, when configured, storage health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Storage unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func customerID(r *http.Request) billing.CustomerID {
	return billing.CustomerID(chi.URLParam(r, "id"))
}

// decode reads a JSON body into dst and runs tag validation. It writes the
// 400 response itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			resp := ErrorResponse{Error: "Request validation failed"}
			for _, fe := range fieldErrs {
				resp.Fields = append(resp.Fields, FieldErrorDTO{Field: fe.Field(), Message: validationMessage(fe)})
			}
			writeJSON(w, http.StatusBadRequest, resp)
			return false
		}
		writeError(w, http.StatusBadRequest, "Request validation failed", err)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "numeric":
		return "Must be numeric"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "datetime":
		return "Must be a date formatted " + fe.Param()
	default:
		return "Invalid value"
	}
}

// fail maps service errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	var rejected *billing.ValidationFailedError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Payment rejected", Errors: rejected.Errors})
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Customer not found", err)
	case billing.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func parseOptionalDecimal(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(field, s)
}

// parseOptionalDate expects a value already checked by the datetime tag.
func parseOptionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
