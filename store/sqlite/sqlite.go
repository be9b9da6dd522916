/*
Package sqlite provides a SQLite-backed implementation of the billing
storage interfaces.

PURPOSE:
  Implements billing.Store (tenants, properties/units, payments) using
  SQLite. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  tenants:    Resident records with the materialized due_balance cache
  properties: Property headers (landlord link)
  units:      Unit catalog, ordered by position within a property
  payments:   Payment history; rows are never updated except for the
              Pending -> Paid status flip, and deleted only when a
              Pending row is voided

REPRESENTATION:
  - Money columns are TEXT holding exact decimal strings; parsing floats
    back out of REAL columns is how billing systems grow cent drift.
  - Timestamps are RFC3339 TEXT. Nullable dates use NULL, not zero time.
  - Insertion order is the rowid; list queries ORDER BY rowid so reads
    replay writes the way the in-memory store does.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery is cleaner.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  books := billing.NewBookkeeper(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definitions
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/ledger"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Residents
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		resident_type TEXT NOT NULL,
		property_id TEXT,
		unit_name TEXT,
		rent_amount TEXT NOT NULL DEFAULT '0',
		last_payment_date TEXT,
		last_billed_period TEXT,
		security_deposit TEXT NOT NULL DEFAULT '0',
		due_balance TEXT NOT NULL DEFAULT '0',
		archived BOOLEAN DEFAULT FALSE,
		archived_at TEXT,
		created_at TEXT NOT NULL
	);

	-- Composite-key occupancy lookups (tenant -> unit join)
	CREATE INDEX IF NOT EXISTS idx_tenants_unit
		ON tenants(property_id, unit_name);
	CREATE INDEX IF NOT EXISTS idx_tenants_archived
		ON tenants(archived);

	-- Properties
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		landlord_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_properties_landlord
		ON properties(landlord_id);

	-- Units (catalog order preserved via position)
	CREATE TABLE IF NOT EXISTS units (
		property_id TEXT NOT NULL,
		name TEXT NOT NULL,
		ownership TEXT NOT NULL,
		unit_type TEXT,
		status TEXT NOT NULL,
		rent_amount TEXT NOT NULL DEFAULT '0',
		service_charge TEXT NOT NULL DEFAULT '0',
		handover_status TEXT NOT NULL,
		handover_date TEXT,
		position INTEGER NOT NULL,
		PRIMARY KEY (property_id, name),
		FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_units_property
		ON units(property_id, position);

	-- Payments
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_method TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_tenant
		ON payments(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_payments_status
		ON payments(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANT STORE (billing.TenantStore interface)
// =============================================================================

// PutTenant inserts or replaces a tenant record.
func (s *Store) PutTenant(ctx context.Context, t billing.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tenants (id, name, phone, resident_type, property_id, unit_name,
			rent_amount, last_payment_date, last_billed_period, security_deposit,
			due_balance, archived, archived_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			resident_type = excluded.resident_type,
			property_id = excluded.property_id,
			unit_name = excluded.unit_name,
			rent_amount = excluded.rent_amount,
			last_payment_date = excluded.last_payment_date,
			last_billed_period = excluded.last_billed_period,
			security_deposit = excluded.security_deposit,
			due_balance = excluded.due_balance,
			archived = excluded.archived,
			archived_at = excluded.archived_at,
			created_at = excluded.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		nullString(t.Phone),
		string(t.ResidentType),
		nullString(string(t.PropertyID)),
		nullString(t.UnitName),
		t.Lease.RentAmount.String(),
		nullTime(t.Lease.LastPaymentDate),
		nullString(t.Lease.LastBilledPeriod),
		t.Lease.SecurityDeposit.String(),
		t.DueBalance.String(),
		t.Archived,
		nullTime(t.ArchivedAt),
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put tenant: %w", err)
	}
	return nil
}

// Tenant returns one tenant by ID.
func (s *Store) Tenant(ctx context.Context, id billing.TenantID) (*billing.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, tenantSelect+" WHERE id = ?", id)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", billing.ErrTenantNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Tenants lists tenants in insertion order.
func (s *Store) Tenants(ctx context.Context, includeArchived bool) ([]billing.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := tenantSelect
	if !includeArchived {
		query += " WHERE archived = FALSE"
	}
	query += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []billing.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

// SetDueBalance writes the materialized cache column.
func (s *Store) SetDueBalance(ctx context.Context, id billing.TenantID, balance ledger.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE tenants SET due_balance = ? WHERE id = ?",
		balance.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set due balance: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", billing.ErrTenantNotFound, id))
}

// ArchiveTenant marks a move-out. The record stays.
func (s *Store) ArchiveTenant(ctx context.Context, id billing.TenantID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE tenants SET archived = TRUE, archived_at = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to archive tenant: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", billing.ErrTenantNotFound, id))
}

const tenantSelect = `
	SELECT id, name, phone, resident_type, property_id, unit_name,
	       rent_amount, last_payment_date, last_billed_period, security_deposit,
	       due_balance, archived, archived_at, created_at
	FROM tenants`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*billing.Tenant, error) {
	var (
		t                billing.Tenant
		phone            sql.NullString
		propertyID       sql.NullString
		unitName         sql.NullString
		rentAmount       string
		lastPaymentDate  sql.NullString
		lastBilledPeriod sql.NullString
		securityDeposit  string
		dueBalance       string
		archivedAt       sql.NullString
		createdAt        string
	)

	err := row.Scan(
		&t.ID, &t.Name, &phone, &t.ResidentType, &propertyID, &unitName,
		&rentAmount, &lastPaymentDate, &lastBilledPeriod, &securityDeposit,
		&dueBalance, &t.Archived, &archivedAt, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}

	t.Phone = phone.String
	t.PropertyID = billing.PropertyID(propertyID.String)
	t.UnitName = unitName.String
	t.Lease = billing.Lease{
		RentAmount:       ledger.MustMoney(rentAmount),
		LastPaymentDate:  parseTimePtr(lastPaymentDate),
		LastBilledPeriod: lastBilledPeriod.String,
		SecurityDeposit:  ledger.MustMoney(securityDeposit),
	}
	t.DueBalance = ledger.MustMoney(dueBalance)
	t.ArchivedAt = parseTimePtr(archivedAt)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

// =============================================================================
// PROPERTY STORE (billing.PropertyStore interface)
// =============================================================================

// PutProperty inserts or replaces a property and its full unit list.
func (s *Store) PutProperty(ctx context.Context, p billing.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO properties (id, name, landlord_id)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			landlord_id = excluded.landlord_id
	`, p.ID, p.Name, nullString(string(p.LandlordID)))
	if err != nil {
		return fmt.Errorf("failed to put property: %w", err)
	}

	// The unit list is replaced wholesale so catalog order follows the input.
	if _, err := tx.ExecContext(ctx, "DELETE FROM units WHERE property_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to clear units: %w", err)
	}
	for i := range p.Units {
		if err := insertUnit(ctx, tx, p.ID, p.Units[i], i); err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %s/%s", billing.ErrDuplicateUnit, p.ID, p.Units[i].Name)
			}
			return fmt.Errorf("failed to insert unit: %w", err)
		}
	}

	return tx.Commit()
}

// Property returns one property with units in catalog order.
func (s *Store) Property(ctx context.Context, id billing.PropertyID) (*billing.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p          billing.Property
		landlordID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, landlord_id FROM properties WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &landlordID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", billing.ErrPropertyNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan property: %w", err)
	}
	p.LandlordID = billing.LandlordID(landlordID.String)

	units, err := s.unitsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Units = units
	return &p, nil
}

// Properties lists the whole catalog in insertion order.
func (s *Store) Properties(ctx context.Context) ([]billing.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, landlord_id FROM properties ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var properties []billing.Property
	for rows.Next() {
		var (
			p          billing.Property
			landlordID sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &landlordID); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		p.LandlordID = billing.LandlordID(landlordID.String)
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range properties {
		units, err := s.unitsOf(ctx, properties[i].ID)
		if err != nil {
			return nil, err
		}
		properties[i].Units = units
	}
	return properties, nil
}

// AddUnit appends a unit to a property's catalog.
func (s *Store) AddUnit(ctx context.Context, id billing.PropertyID, u billing.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM properties WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check property: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", billing.ErrPropertyNotFound, id)
	}

	var position int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM units WHERE property_id = ?", id).Scan(&position); err != nil {
		return fmt.Errorf("failed to count units: %w", err)
	}

	if err := insertUnit(ctx, s.db, id, u, position); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s/%s", billing.ErrDuplicateUnit, id, u.Name)
		}
		return fmt.Errorf("failed to insert unit: %w", err)
	}
	return nil
}

// UpdateUnit replaces a unit in place, preserving catalog order.
func (s *Store) UpdateUnit(ctx context.Context, id billing.PropertyID, u billing.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE units SET
			ownership = ?, unit_type = ?, status = ?,
			rent_amount = ?, service_charge = ?,
			handover_status = ?, handover_date = ?
		WHERE property_id = ? AND name = ?
	`,
		string(u.Ownership), nullString(u.UnitType), string(u.Status),
		u.RentAmount.String(), u.ServiceCharge.String(),
		string(u.HandoverStatus), nullTime(u.HandoverDate),
		id, u.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update unit: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s/%s", billing.ErrUnitNotFound, id, u.Name))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUnit(ctx context.Context, db execer, id billing.PropertyID, u billing.Unit, position int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO units (property_id, name, ownership, unit_type, status,
			rent_amount, service_charge, handover_status, handover_date, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, u.Name, string(u.Ownership), nullString(u.UnitType), string(u.Status),
		u.RentAmount.String(), u.ServiceCharge.String(),
		string(u.HandoverStatus), nullTime(u.HandoverDate), position,
	)
	return err
}

func (s *Store) unitsOf(ctx context.Context, id billing.PropertyID) ([]billing.Unit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, ownership, unit_type, status, rent_amount, service_charge,
		       handover_status, handover_date
		FROM units WHERE property_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []billing.Unit
	for rows.Next() {
		var (
			u             billing.Unit
			unitType      sql.NullString
			rentAmount    string
			serviceCharge string
			handoverDate  sql.NullString
		)
		err := rows.Scan(&u.Name, &u.Ownership, &unitType, &u.Status,
			&rentAmount, &serviceCharge, &u.HandoverStatus, &handoverDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		u.UnitType = unitType.String
		u.RentAmount = ledger.MustMoney(rentAmount)
		u.ServiceCharge = ledger.MustMoney(serviceCharge)
		u.HandoverDate = parseTimePtr(handoverDate)
		units = append(units, u)
	}
	return units, rows.Err()
}

// =============================================================================
// PAYMENT STORE (billing.PaymentStore interface)
// =============================================================================

// AddPayment appends a payment row.
func (s *Store) AddPayment(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments (id, tenant_id, amount, date, type, status,
			payment_method, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.TenantID,
		p.Amount.String(),
		p.Date.UTC().Format(time.RFC3339),
		string(p.Type),
		string(p.Status),
		nullString(p.PaymentMethod),
		nullString(p.Notes),
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("payment %s already exists", p.ID)
		}
		return fmt.Errorf("failed to add payment: %w", err)
	}
	return nil
}

// Payment returns one payment by ID.
func (s *Store) Payment(ctx context.Context, id billing.PaymentID) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, paymentSelect+" WHERE id = ?", id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", billing.ErrPaymentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PaymentsByTenant lists one resident's payments in insertion order.
func (s *Store) PaymentsByTenant(ctx context.Context, id billing.TenantID) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, paymentSelect+" WHERE tenant_id = ? ORDER BY rowid ASC", id)
}

// Payments lists the full history in insertion order.
func (s *Store) Payments(ctx context.Context) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, paymentSelect+" ORDER BY rowid ASC")
}

// SetPaymentStatus flips a row's lifecycle state.
func (s *Store) SetPaymentStatus(ctx context.Context, id billing.PaymentID, status billing.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", billing.ErrPaymentNotFound, id))
}

// DeletePayment removes a row (void of a Pending payment).
func (s *Store) DeletePayment(ctx context.Context, id billing.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", billing.ErrPaymentNotFound, id))
}

const paymentSelect = `
	SELECT id, tenant_id, amount, date, type, status, payment_method, notes, created_at
	FROM payments`

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]billing.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*billing.Payment, error) {
	var (
		p             billing.Payment
		amount        string
		date          string
		paymentMethod sql.NullString
		notes         sql.NullString
		createdAt     string
	)

	err := row.Scan(&p.ID, &p.TenantID, &amount, &date, &p.Type, &p.Status,
		&paymentMethod, &notes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.Amount = ledger.MustMoney(amount)
	p.Date, _ = time.Parse(time.RFC3339, date)
	p.PaymentMethod = paymentMethod.String
	p.Notes = notes.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

// Compile-time check that Store implements the full billing surface.
var _ billing.Store = (*Store)(nil)
