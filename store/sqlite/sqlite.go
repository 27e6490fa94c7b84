/*
Package sqlite provides a SQLite-backed billing repository.

PURPOSE:
  Implements billing.TxRepository plus the customer/delivery CRUD the HTTP
  layer needs. The engine never sees SQL; it receives the slices loaded
  here.

KEY TABLES:
  customers:  account records; pending_dues and last_payment are the only
              columns the payment flow updates
  deliveries: priced daily deliveries (append-only)
  payments:   recorded payments (append-only)

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch deliveries or payments. Corrections
  are new records.

MONEY:
  Amounts are stored as decimal strings (TEXT) and parsed back into
  decimal.Decimal, so no float rounding ever enters the ledger.

CONCURRENCY:
  sync.RWMutex serializes writers. The pool is limited to one connection so
  ":memory:" databases are shared by every query. WithTx holds the write
  lock for the whole read-modify-write.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/krishprajapat/billing-sub000/billing"
)

const dayLayout = "2006-01-02"

// Store implements billing.TxRepository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		daily_quantity TEXT NOT NULL,
		rate_per_liter TEXT NOT NULL,
		pending_dues TEXT NOT NULL DEFAULT '0',
		last_payment TEXT,
		created_at TEXT NOT NULL
	);

	-- Deliveries (append-only)
	CREATE TABLE IF NOT EXISTS deliveries (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		date TEXT NOT NULL,
		quantity TEXT NOT NULL,
		daily_amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- One delivery per customer per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_delivery_day
		ON deliveries(customer_id, date);

	-- Payments (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		method TEXT,
		paid_date TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_customer
		ON payments(customer_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data (dev/test only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"payments", "deliveries", "customers"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// CUSTOMERS
// =============================================================================

// SaveCustomer inserts a customer or updates its profile fields.
// pending_dues is only written on insert; afterwards it changes through
// UpdateCustomerDues.
func (s *Store) SaveCustomer(ctx context.Context, c billing.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO customers (id, name, phone, daily_quantity, rate_per_liter, pending_dues, last_payment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			daily_quantity = excluded.daily_quantity,
			rate_per_liter = excluded.rate_per_liter
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, nullString(c.Phone),
		c.DailyQuantity.String(), c.RatePerLiter.String(), c.PendingDues.String(),
		nullDate(c.LastPayment),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id billing.CustomerID) (billing.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCustomer(ctx, s.db, id)
}

func getCustomer(ctx context.Context, q querier, id billing.CustomerID) (billing.Customer, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, phone, daily_quantity, rate_per_liter, pending_dues, last_payment, created_at
		FROM customers WHERE id = ?`, id)

	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Customer{}, billing.ErrCustomerNotFound
	}
	return c, err
}

// ListCustomers returns all customers ordered by name.
func (s *Store) ListCustomers(ctx context.Context) ([]billing.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, daily_quantity, rate_per_liter, pending_dues, last_payment, created_at
		FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []billing.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) UpdateCustomerDues(ctx context.Context, id billing.CustomerID, patch billing.CustomerPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCustomerDues(ctx, s.db, id, patch)
}

func updateCustomerDues(ctx context.Context, q querier, id billing.CustomerID, patch billing.CustomerPatch) error {
	res, err := q.ExecContext(ctx,
		"UPDATE customers SET pending_dues = ?, last_payment = ? WHERE id = ?",
		patch.PendingDues.String(), billing.Day(patch.LastPayment).Format(dayLayout), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer dues: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrCustomerNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (billing.Customer, error) {
	var (
		c                            billing.Customer
		phone, lastPayment           sql.NullString
		quantity, rate, dues, create string
	)
	if err := row.Scan(&c.ID, &c.Name, &phone, &quantity, &rate, &dues, &lastPayment, &create); err != nil {
		return c, err
	}
	c.Phone = phone.String
	c.DailyQuantity = billing.MustParseDecimal(quantity)
	c.RatePerLiter = billing.MustParseDecimal(rate)
	c.PendingDues = billing.MustParseDecimal(dues)
	c.LastPayment = parseNullDate(lastPayment)
	c.CreatedAt, _ = time.Parse(time.RFC3339, create)
	return c, nil
}

// =============================================================================
// DELIVERIES
// =============================================================================

// SaveDelivery appends a delivery. A second delivery for the same customer
// and day is rejected with billing.ErrDuplicateDelivery.
func (s *Store) SaveDelivery(ctx context.Context, d billing.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, customer_id, date, quantity, daily_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.CustomerID, billing.Day(d.Date).Format(dayLayout),
		d.Quantity.String(), d.DailyAmount.String(),
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrDuplicateDelivery
		}
		return fmt.Errorf("failed to save delivery: %w", err)
	}
	return nil
}

func (s *Store) FindDeliveriesByCustomer(ctx context.Context, id billing.CustomerID, period billing.Period) ([]billing.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findDeliveries(ctx, s.db, id, period)
}

func findDeliveries(ctx context.Context, q querier, id billing.CustomerID, period billing.Period) ([]billing.Delivery, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, customer_id, date, quantity, daily_amount, created_at
		FROM deliveries
		WHERE customer_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		id, billing.Day(period.Start).Format(dayLayout), billing.Day(period.End).Format(dayLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []billing.Delivery
	for rows.Next() {
		var (
			d                              billing.Delivery
			date, quantity, amount, create string
		)
		if err := rows.Scan(&d.ID, &d.CustomerID, &date, &quantity, &amount, &create); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.Date, _ = time.Parse(dayLayout, date)
		d.Quantity = billing.MustParseDecimal(quantity)
		d.DailyAmount = billing.MustParseDecimal(amount)
		d.CreatedAt, _ = time.Parse(time.RFC3339, create)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) SavePayment(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePayment(ctx, s.db, p)
}

func savePayment(ctx context.Context, q querier, p billing.Payment) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO payments (id, customer_id, amount, status, method, paid_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CustomerID, p.Amount.String(), p.Status,
		nullString(string(p.Method)), nullDate(p.PaidDate), nullString(p.Notes),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (s *Store) FindPaymentsByCustomer(ctx context.Context, id billing.CustomerID) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findPayments(ctx, s.db, id)
}

func findPayments(ctx context.Context, q querier, id billing.CustomerID) ([]billing.Payment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, customer_id, amount, status, method, paid_date, notes, created_at
		FROM payments
		WHERE customer_id = ?
		ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		var (
			p                       billing.Payment
			amount, create          string
			method, paidDate, notes sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.CustomerID, &amount, &p.Status, &method, &paidDate, &notes, &create); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = billing.MustParseDecimal(amount)
		p.Method = billing.PaymentMethod(method.String)
		p.PaidDate = parseNullDate(paidDate)
		p.Notes = notes.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, create)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (billing.TxRepository)
// =============================================================================

// WithTx executes fn within a database transaction under the write lock.
func (s *Store) WithTx(ctx context.Context, fn func(billing.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetCustomer(ctx context.Context, id billing.CustomerID) (billing.Customer, error) {
	return getCustomer(ctx, ts.tx, id)
}

func (ts *txStore) FindPaymentsByCustomer(ctx context.Context, id billing.CustomerID) ([]billing.Payment, error) {
	return findPayments(ctx, ts.tx, id)
}

func (ts *txStore) FindDeliveriesByCustomer(ctx context.Context, id billing.CustomerID, period billing.Period) ([]billing.Delivery, error) {
	return findDeliveries(ctx, ts.tx, id, period)
}

func (ts *txStore) UpdateCustomerDues(ctx context.Context, id billing.CustomerID, patch billing.CustomerPatch) error {
	return updateCustomerDues(ctx, ts.tx, id, patch)
}

func (ts *txStore) SavePayment(ctx context.Context, p billing.Payment) error {
	return savePayment(ctx, ts.tx, p)
}

var _ billing.TxRepository = (*Store)(nil)

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: billing.Day(*t).Format(dayLayout), Valid: true}
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(dayLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
