// Package store provides in-memory billing repositories.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/krishprajapat/billing-sub000/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	customers  map[billing.CustomerID]billing.Customer
	payments   map[billing.CustomerID][]billing.Payment
	deliveries map[billing.CustomerID][]billing.Delivery
}

func NewMemory() *Memory {
	return &Memory{
		customers:  make(map[billing.CustomerID]billing.Customer),
		payments:   make(map[billing.CustomerID][]billing.Payment),
		deliveries: make(map[billing.CustomerID][]billing.Delivery),
	}
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = make(map[billing.CustomerID]billing.Customer)
	m.payments = make(map[billing.CustomerID][]billing.Payment)
	m.deliveries = make(map[billing.CustomerID][]billing.Delivery)
	return nil
}

// SaveCustomer inserts or replaces a customer.
func (m *Memory) SaveCustomer(_ context.Context, c billing.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

// ListCustomers returns all customers ordered by name.
func (m *Memory) ListCustomers(_ context.Context) ([]billing.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]billing.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SaveDelivery appends a delivery, keeping each customer's list date-ordered.
// A second delivery on the same day returns billing.ErrDuplicateDelivery.
func (m *Memory) SaveDelivery(_ context.Context, d billing.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := billing.Day(d.Date)
	for _, existing := range m.deliveries[d.CustomerID] {
		if billing.Day(existing.Date).Equal(day) {
			return billing.ErrDuplicateDelivery
		}
	}
	m.saveDeliveryLocked(d)
	return nil
}

func (m *Memory) saveDeliveryLocked(d billing.Delivery) {
	list := m.deliveries[d.CustomerID]
	i := sort.Search(len(list), func(i int) bool { return list[i].Date.After(d.Date) })
	list = append(list, billing.Delivery{})
	copy(list[i+1:], list[i:])
	list[i] = d
	m.deliveries[d.CustomerID] = list
}

func (m *Memory) GetCustomer(_ context.Context, id billing.CustomerID) (billing.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCustomerLocked(id)
}

func (m *Memory) getCustomerLocked(id billing.CustomerID) (billing.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return billing.Customer{}, billing.ErrCustomerNotFound
	}
	return c, nil
}

func (m *Memory) FindPaymentsByCustomer(_ context.Context, id billing.CustomerID) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paymentsLocked(id), nil
}

func (m *Memory) paymentsLocked(id billing.CustomerID) []billing.Payment {
	result := make([]billing.Payment, len(m.payments[id]))
	copy(result, m.payments[id])
	return result
}

func (m *Memory) FindDeliveriesByCustomer(_ context.Context, id billing.CustomerID, period billing.Period) ([]billing.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deliveriesLocked(id, period), nil
}

func (m *Memory) deliveriesLocked(id billing.CustomerID, period billing.Period) []billing.Delivery {
	var result []billing.Delivery
	for _, d := range m.deliveries[id] {
		if period.Contains(d.Date) {
			result = append(result, d)
		}
	}
	return result
}

func (m *Memory) UpdateCustomerDues(_ context.Context, id billing.CustomerID, patch billing.CustomerPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateDuesLocked(id, patch)
}

func (m *Memory) updateDuesLocked(id billing.CustomerID, patch billing.CustomerPatch) error {
	c, err := m.getCustomerLocked(id)
	if err != nil {
		return err
	}
	last := patch.LastPayment
	c.PendingDues = patch.PendingDues
	c.LastPayment = &last
	m.customers[id] = c
	return nil
}

func (m *Memory) SavePayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.CustomerID] = append(m.payments[p.CustomerID], p)
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn under the write lock. On error the store is restored to
// the snapshot taken before fn ran.
func (m *Memory) WithTx(ctx context.Context, fn func(billing.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	customers  map[billing.CustomerID]billing.Customer
	payments   map[billing.CustomerID][]billing.Payment
	deliveries map[billing.CustomerID][]billing.Delivery
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		customers:  make(map[billing.CustomerID]billing.Customer, len(m.customers)),
		payments:   make(map[billing.CustomerID][]billing.Payment, len(m.payments)),
		deliveries: make(map[billing.CustomerID][]billing.Delivery, len(m.deliveries)),
	}
	for k, v := range m.customers {
		s.customers[k] = v
	}
	for k, v := range m.payments {
		s.payments[k] = append([]billing.Payment{}, v...)
	}
	for k, v := range m.deliveries {
		s.deliveries[k] = append([]billing.Delivery{}, v...)
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.customers = s.customers
	m.payments = s.payments
	m.deliveries = s.deliveries
}

// txView works on the parent's maps while WithTx holds its lock.
type txView struct {
	parent *Memory
}

func (tv *txView) GetCustomer(_ context.Context, id billing.CustomerID) (billing.Customer, error) {
	return tv.parent.getCustomerLocked(id)
}

func (tv *txView) FindPaymentsByCustomer(_ context.Context, id billing.CustomerID) ([]billing.Payment, error) {
	return tv.parent.paymentsLocked(id), nil
}

func (tv *txView) FindDeliveriesByCustomer(_ context.Context, id billing.CustomerID, period billing.Period) ([]billing.Delivery, error) {
	return tv.parent.deliveriesLocked(id, period), nil
}

func (tv *txView) UpdateCustomerDues(_ context.Context, id billing.CustomerID, patch billing.CustomerPatch) error {
	return tv.parent.updateDuesLocked(id, patch)
}

func (tv *txView) SavePayment(_ context.Context, p billing.Payment) error {
	tv.parent.payments[p.CustomerID] = append(tv.parent.payments[p.CustomerID], p)
	return nil
}

var _ billing.TxRepository = (*Memory)(nil)
