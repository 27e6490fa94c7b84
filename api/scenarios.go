/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built accounts that show each payment status the summary
	can produce. Dates are relative to the engine's clock, so a scenario
	always lands in the current tracking window.

AVAILABLE SCENARIOS:

	current-month:  Deliveries this month only, nothing paid (pending)
	older-dues:     1200 carried over plus this month (overdue, pay 2000 to
	                see older dues cleared first)
	settled:        Three full months delivered and paid month by month (paid)
	long-overdue:   Last payment 90 days ago with two unpaid months (overdue)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the customer
 3. Record daily deliveries
 4. Record historical payments directly (no allocation)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "older-dues"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: customer and payment handlers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krishprajapat/billing-sub000/billing"
	"github.com/krishprajapat/billing-sub000/collection"
)

// ScenarioStore is the storage scenarios write to.
type ScenarioStore interface {
	collection.Store
	Reset(ctx context.Context) error
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CustomerID  string `json:"customer_id"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "current-month",
		Name:        "Current Month Only",
		Description: "Daily deliveries this month, no payments yet",
		CustomerID:  "demo-current",
	},
	{
		ID:          "older-dues",
		Name:        "Older Dues",
		Description: "1200 carried over from before the window plus this month's milk",
		CustomerID:  "demo-older",
	},
	{
		ID:          "settled",
		Name:        "Settled",
		Description: "Three months delivered and paid at each month end",
		CustomerID:  "demo-settled",
	},
	{
		ID:          "long-overdue",
		Name:        "Long Overdue",
		Description: "Last payment 90 days ago, two months unpaid",
		CustomerID:  "demo-overdue",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context, ScenarioStore, time.Time) error
	switch req.ScenarioID {
	case "current-month":
		load = loadCurrentMonthScenario
	case "older-dues":
		load = loadOlderDuesScenario
	case "settled":
		load = loadSettledScenario
	case "long-overdue":
		load = loadLongOverdueScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.currentScenario = ""
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx, h.Store, h.Service.Engine().Now()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadCurrentMonthScenario(ctx context.Context, st ScenarioStore, now time.Time) error {
	c := demoCustomer("demo-current", "Meera Shah", "0", now)
	if err := st.SaveCustomer(ctx, c); err != nil {
		return err
	}
	w := billing.WindowAt(now)
	return deliverDaily(ctx, st, c, w.CurrentMonth, billing.Day(now))
}

func loadOlderDuesScenario(ctx context.Context, st ScenarioStore, now time.Time) error {
	c := demoCustomer("demo-older", "Rajesh Patel", "1200", now)
	if err := st.SaveCustomer(ctx, c); err != nil {
		return err
	}
	w := billing.WindowAt(now)
	return deliverDaily(ctx, st, c, w.CurrentMonth, billing.Day(now))
}

func loadSettledScenario(ctx context.Context, st ScenarioStore, now time.Time) error {
	c := demoCustomer("demo-settled", "Anita Desai", "0", now)
	if err := st.SaveCustomer(ctx, c); err != nil {
		return err
	}

	w := billing.WindowAt(now)
	for _, month := range []time.Time{w.Month3, w.Month2, w.Month1} {
		end := billing.EndOfMonth(month)
		if err := deliverDaily(ctx, st, c, month, end); err != nil {
			return err
		}
		days := int64(billing.DaysBetween(month, end) + 1)
		total := billing.DailyAmount(c.DailyQuantity, c.RatePerLiter).Mul(decimal.NewFromInt(days))
		if err := savePaid(ctx, st, c.ID, total, end); err != nil {
			return err
		}
	}
	return nil
}

func loadLongOverdueScenario(ctx context.Context, st ScenarioStore, now time.Time) error {
	c := demoCustomer("demo-overdue", "Vikram Singh", "800", now)
	last := billing.Day(now).AddDate(0, 0, -90)
	c.LastPayment = &last
	if err := st.SaveCustomer(ctx, c); err != nil {
		return err
	}

	w := billing.WindowAt(now)
	if err := deliverDaily(ctx, st, c, w.Month2, billing.EndOfMonth(w.Month1)); err != nil {
		return err
	}
	return savePaid(ctx, st, c.ID, decimal.NewFromInt(500), last)
}

// =============================================================================
// HELPERS
// =============================================================================

func demoCustomer(id, name, pending string, now time.Time) billing.Customer {
	return billing.Customer{
		ID:            billing.CustomerID(id),
		Name:          name,
		Phone:         "9800000000",
		DailyQuantity: decimal.NewFromInt(2),
		RatePerLiter:  decimal.NewFromInt(60),
		PendingDues:   billing.MustParseDecimal(pending),
		CreatedAt:     now.UTC(),
	}
}

// deliverDaily records the customer's usual quantity for every day in
// [from, to].
func deliverDaily(ctx context.Context, st ScenarioStore, c billing.Customer, from, to time.Time) error {
	amount := billing.DailyAmount(c.DailyQuantity, c.RatePerLiter)
	for day := billing.Day(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		d := billing.Delivery{
			ID:          billing.DeliveryID(fmt.Sprintf("%s-%s", c.ID, day.Format("20060102"))),
			CustomerID:  c.ID,
			Date:        day,
			Quantity:    c.DailyQuantity,
			DailyAmount: amount,
			CreatedAt:   day,
		}
		if err := st.SaveDelivery(ctx, d); err != nil {
			return fmt.Errorf("delivery %s: %w", day.Format(dateLayout), err)
		}
	}
	return nil
}

func savePaid(ctx context.Context, st ScenarioStore, id billing.CustomerID, amount decimal.Decimal, date time.Time) error {
	d := billing.Day(date)
	return st.SavePayment(ctx, billing.Payment{
		ID:         billing.PaymentID(fmt.Sprintf("%s-pay-%s", id, d.Format("20060102"))),
		CustomerID: id,
		Amount:     amount,
		Status:     billing.PaymentRecordPaid,
		Method:     billing.MethodCash,
		PaidDate:   &d,
		Notes:      "demo payment",
		CreatedAt:  d,
	})
}
