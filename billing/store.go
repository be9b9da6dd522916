/*
store.go - Persistence interfaces

PURPOSE:
  Narrow interfaces the computations are written against. Two
  implementations ship: an in-memory store (tests, demo seeding) and the
  SQLite store. The bookkeeper composes these; nothing in this package
  performs I/O outside an implementation.

CONVENTIONS:
  - Readers return copies; callers may mutate what they receive.
  - List order is stable: insertion order for tenants and payments,
    catalog order for properties and their units. Aggregations depend on
    this for deterministic output.
  - Missing records return the package sentinels (ErrTenantNotFound and
    friends), never nil-with-no-error.
*/
package billing

import (
	"context"
	"time"

	"github.com/warp/billing-engine/ledger"
)

// TenantStore persists resident records.
type TenantStore interface {
	// PutTenant inserts or replaces a tenant record.
	PutTenant(ctx context.Context, t Tenant) error

	// Tenant returns one tenant by ID.
	Tenant(ctx context.Context, id TenantID) (*Tenant, error)

	// Tenants lists tenants in insertion order. Archived residents are
	// included only when asked for; they still owe whatever they owe.
	Tenants(ctx context.Context, includeArchived bool) ([]Tenant, error)

	// SetDueBalance writes the materialized cache. Only the bookkeeper's
	// recompute paths call this.
	SetDueBalance(ctx context.Context, id TenantID, balance ledger.Money) error

	// ArchiveTenant marks a move-out. The record stays.
	ArchiveTenant(ctx context.Context, id TenantID, at time.Time) error
}

// PropertyStore persists the unit catalog.
type PropertyStore interface {
	// PutProperty inserts or replaces a property and its unit list.
	PutProperty(ctx context.Context, p Property) error

	// Property returns one property with units in catalog order.
	Property(ctx context.Context, id PropertyID) (*Property, error)

	// Properties lists the whole catalog.
	Properties(ctx context.Context) ([]Property, error)

	// AddUnit appends a unit to a property's catalog. Duplicate names are
	// rejected; the name is the join key tenants reference.
	AddUnit(ctx context.Context, id PropertyID, u Unit) error

	// UpdateUnit replaces a unit in place, preserving catalog order.
	UpdateUnit(ctx context.Context, id PropertyID, u Unit) error
}

// PaymentStore persists the payment history.
type PaymentStore interface {
	// AddPayment appends a payment row.
	AddPayment(ctx context.Context, p Payment) error

	// Payment returns one payment by ID.
	Payment(ctx context.Context, id PaymentID) (*Payment, error)

	// PaymentsByTenant lists one resident's payments in insertion order.
	PaymentsByTenant(ctx context.Context, id TenantID) ([]Payment, error)

	// Payments lists the full history in insertion order.
	Payments(ctx context.Context) ([]Payment, error)

	// SetPaymentStatus flips a row's lifecycle state.
	SetPaymentStatus(ctx context.Context, id PaymentID, status PaymentStatus) error

	// DeletePayment removes a row. Only the bookkeeper calls this, and
	// only for Pending rows being voided; Paid rows are immutable history.
	DeletePayment(ctx context.Context, id PaymentID) error
}

// Store is the full persistence surface.
type Store interface {
	TenantStore
	PropertyStore
	PaymentStore
	Close() error
}
