package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krishprajapat/billing-sub000/collection"
)

func TestOverdueMonitor_Sweep(t *testing.T) {
	// GIVEN: two overdue customers and one current
	ts := newTestServer(t)
	ts.createCustomer(t, "700")
	ts.createCustomer(t, "300")
	ts.createCustomer(t, "0")

	core, logs := observer.New(zapcore.InfoLevel)
	monitor := NewOverdueMonitor(ts.service, zap.New(core))

	// WHEN
	result := monitor.Sweep(context.Background())

	// THEN
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Overdue)
	assert.Equal(t, "2800.00", result.TotalDue.StringFixed(2))
	assert.Equal(t, 1, logs.FilterMessage("overdue sweep complete").Len())

	last, ok := monitor.LastSweep()
	require.True(t, ok)
	assert.Equal(t, 2, last.Overdue)
}

func TestOverdueMonitor_StartStop(t *testing.T) {
	ts := newTestServer(t)
	ts.createCustomer(t, "500")

	monitor := NewOverdueMonitor(ts.service, zap.NewNop())
	monitor.CheckInterval = 10 * time.Millisecond

	monitor.Start()
	assert.Eventually(t, func() bool {
		last, ok := monitor.LastSweep()
		return ok && last.Overdue == 1
	}, time.Second, 5*time.Millisecond)
	monitor.Stop()
	monitor.Stop() // idempotent
}

func TestOverdueMonitor_Disabled(t *testing.T) {
	monitor := NewOverdueMonitor(collection.NewService(nil, nil, nil), nil)
	monitor.Enabled = false

	monitor.Start()
	monitor.Stop()

	_, ok := monitor.LastSweep()
	assert.False(t, ok)
}
