/*
scheduler.go - Periodic overdue sweep

PURPOSE:
  Periodically summarizes every customer and logs the accounts that are
  overdue, so collection staff see them without polling the report.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on Start
  - Keeps the result of the latest sweep for inspection

USAGE:
  monitor := NewOverdueMonitor(service, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - handlers.go: ListOverdue endpoint (on-demand report)
  - collection/service.go: OverdueAccounts
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/krishprajapat/billing-sub000/collection"
)

// SweepResult summarizes one overdue sweep.
type SweepResult struct {
	RanAt    time.Time
	Overdue  int
	TotalDue decimal.Decimal
	Err      error
}

// OverdueMonitor runs OverdueAccounts on an interval.
type OverdueMonitor struct {
	Service       *collection.Service
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastMu sync.RWMutex
	last   *SweepResult
}

// NewOverdueMonitor creates a monitor with a one hour interval.
func NewOverdueMonitor(svc *collection.Service, logger *zap.Logger) *OverdueMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueMonitor{
		Service:       svc,
		CheckInterval: time.Hour,
		Enabled:       true,
		logger:        logger.Named("overdue-monitor"),
	}
}

// Start begins the monitor.
func (m *OverdueMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled || m.CheckInterval <= 0 {
		m.logger.Info("overdue monitor disabled")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run(m.ticker, m.stop)

	m.logger.Info("overdue monitor started", zap.Duration("interval", m.CheckInterval))
}

// Stop stops the monitor and waits for a running sweep to finish.
func (m *OverdueMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stop)
	m.wg.Wait()
	m.ticker = nil
	m.logger.Info("overdue monitor stopped")
}

func (m *OverdueMonitor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer m.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	m.Sweep(ctx)
	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-stop:
			return
		}
	}
}

// Sweep runs one overdue check and records its result.
func (m *OverdueMonitor) Sweep(ctx context.Context) SweepResult {
	result := SweepResult{RanAt: time.Now().UTC(), TotalDue: decimal.Zero}

	accounts, err := m.Service.OverdueAccounts(ctx)
	if err != nil {
		result.Err = err
		m.logger.Error("overdue sweep failed", zap.Error(err))
	} else {
		result.Overdue = len(accounts)
		for _, a := range accounts {
			result.TotalDue = result.TotalDue.Add(a.Summary.TotalDue)
			m.logger.Debug("overdue account",
				zap.String("customer_id", string(a.Customer.ID)),
				zap.String("name", a.Customer.Name),
				zap.String("total_due", a.Summary.TotalDue.StringFixed(2)),
			)
		}
		m.logger.Info("overdue sweep complete",
			zap.Int("overdue", result.Overdue),
			zap.String("total_due", result.TotalDue.StringFixed(2)),
		)
	}

	m.lastMu.Lock()
	m.last = &result
	m.lastMu.Unlock()
	return result
}

// LastSweep returns the most recent sweep, if any.
func (m *OverdueMonitor) LastSweep() (SweepResult, bool) {
	m.lastMu.RLock()
	defer m.lastMu.RUnlock()
	if m.last == nil {
		return SweepResult{}, false
	}
	return *m.last, true
}
