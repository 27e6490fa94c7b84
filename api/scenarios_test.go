package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_LoadEach(t *testing.T) {
	expected := map[string]struct {
		status    string
		isOverdue bool
	}{
		"current-month": {"pending", false},
		"older-dues":    {"overdue", true},
		"settled":       {"paid", false},
		"long-overdue":  {"overdue", true},
	}

	ts := newTestServer(t)
	list := decodeBody[[]ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios", nil))
	require.Len(t, list, len(expected))

	for _, sc := range list {
		t.Run(sc.ID, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": sc.ID})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			customers := decodeBody[[]CustomerDTO](t, ts.do(t, http.MethodGet, "/api/customers", nil))
			require.Len(t, customers, 1, "load resets previous data")
			assert.Equal(t, sc.CustomerID, customers[0].ID)

			s := decodeBody[SummaryDTO](t, ts.do(t, http.MethodGet, "/api/customers/"+sc.CustomerID+"/summary", nil))
			assert.Equal(t, expected[sc.ID].status, s.Status)
			assert.Equal(t, expected[sc.ID].isOverdue, s.IsOverdue)

			current := decodeBody[ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios/current", nil))
			assert.Equal(t, sc.ID, current.ID)
		})
	}
}

func TestScenarios_OlderDuesPayment(t *testing.T) {
	// GIVEN: the older-dues scenario (1200 older + 15 days at 120)
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "older-dues"}).Code)

	// WHEN: 2000 is paid
	rec := ts.do(t, http.MethodPost, "/api/customers/demo-older/payments", RecordPaymentRequest{Amount: "2000"})

	// THEN: older dues are cleared first
	require.Equal(t, http.StatusCreated, rec.Code)
	receipt := decodeBody[PaymentReceiptDTO](t, rec)
	assert.Equal(t, "1200.00", receipt.Allocation.OlderDues)
	assert.Equal(t, "800.00", receipt.Allocation.CurrentMonth)
	assert.Equal(t, "1000.00", receipt.RemainingBalance)
}

func TestScenarios_UnknownAndReset(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.createCustomer(t, "0")
	rec = ts.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	customers := decodeBody[[]CustomerDTO](t, ts.do(t, http.MethodGet, "/api/customers", nil))
	assert.Empty(t, customers)
	assert.Equal(t, "null\n", ts.do(t, http.MethodGet, "/api/scenarios/current", nil).Body.String())
}
