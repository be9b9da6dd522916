/*
Package billing implements property-management billing and arrears.

PURPOSE:
  This package contains the domain model (tenants, units, properties,
  payments) and the computations over it: monthly charge schedules,
  statement generation with running balances, arrears aggregation across
  residents and landlord portfolios, and the floor-code grouping parser.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tenant: One lease occupancy record. Tenants pay rent, homeowners pay
    service charge. Residents are archived on move-out, never deleted.
  - Unit: A physical space inside a Property, referenced by tenants
    through the (propertyId, unitName) composite key.
  - Payment: An immutable transaction record. Only Paid rows participate
    in balance computation; Pending rows wait for confirmation.
  - DueBalance: A cached signed figure per tenant (positive = owes),
    materialized from the ledger and recomputed on every payment write.

DESIGN PRINCIPLES:
  1. Purity: Computations take all state as input, including the current
     billing month. Nothing here reads the wall clock.
  2. Precision: Amounts are ledger.Money (decimal), never floats.
  3. Type Safety: Strong ID types prevent mixing tenant/property/payment
     identifiers.

SEE ALSO:
  - schedule.go: Charge resolution and billing-start rules
  - engine.go: Statement generation (the heart of the package)
  - arrears.go: Resident and landlord aggregation
  - floor.go: Unit-name floor/block grouping
*/
package billing

import (
	"time"

	"github.com/warp/billing-engine/ledger"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type PropertyID string
type PaymentID string
type LandlordID string

// =============================================================================
// RESIDENTS
// =============================================================================

// ResidentType determines the charge basis: tenants are billed the unit's
// rent, homeowners the unit's service charge.
type ResidentType string

const (
	ResidentTenant    ResidentType = "Tenant"
	ResidentHomeowner ResidentType = "Homeowner"
)

// ChargeLabel is the statement wording for this resident's monthly charge.
func (r ResidentType) ChargeLabel() string {
	if r == ResidentHomeowner {
		return "Service charge"
	}
	return "Rent"
}

// Lease is the billing contract embedded in a tenant record.
type Lease struct {
	RentAmount      ledger.Money
	LastPaymentDate *time.Time
	// LastBilledPeriod anchors the charge schedule: billing resumes the
	// month after it. Empty or malformed values fall through to the
	// handover rule. The anchor is set on import or by an administrator,
	// never advanced by the engine itself; advancing it without writing a
	// carried-forward opening balance would silently drop history.
	LastBilledPeriod string
	SecurityDeposit  ledger.Money
}

// Tenant is one lease occupancy record.
type Tenant struct {
	ID           TenantID
	Name         string
	Phone        string
	ResidentType ResidentType
	PropertyID   PropertyID
	UnitName     string
	Lease        Lease

	// DueBalance caches the signed closing balance of the tenant's ledger
	// (positive = owes, negative = credit). It is a materialized view:
	// recomputed on every payment write and at month rollover, and audited
	// against a fresh ledger walk. Never edit it directly.
	DueBalance ledger.Money

	Archived   bool
	ArchivedAt *time.Time
	CreatedAt  time.Time
}

// Active reports whether the tenant still occupies their unit.
func (t *Tenant) Active() bool { return !t.Archived }

// =============================================================================
// UNITS AND PROPERTIES
// =============================================================================

// Ownership says who the managing entity remits this unit's income to.
type Ownership string

const (
	OwnershipSM       Ownership = "SM"
	OwnershipLandlord Ownership = "Landlord"
)

type HandoverStatus string

const (
	HandoverPending  HandoverStatus = "Pending"
	HandoverComplete HandoverStatus = "Handed Over"
)

type UnitStatus string

const (
	UnitVacant UnitStatus = "vacant"
	UnitRented UnitStatus = "rented"
	UnitAirbnb UnitStatus = "airbnb"
)

// Unit is a physical rentable/sellable space inside a Property.
type Unit struct {
	Name           string
	Ownership      Ownership
	UnitType       string
	Status         UnitStatus
	RentAmount     ledger.Money
	ServiceCharge  ledger.Money
	HandoverStatus HandoverStatus
	HandoverDate   *time.Time
}

// HandedOver reports whether billing may accrue on this unit. A status of
// Handed Over without a usable date still counts as not handed over; the
// engine prefers "no billing" over guessing a start month.
func (u *Unit) HandedOver() bool { return u.HandoverStatus == HandoverComplete && u.HandoverDate != nil }

// Property is an ordered container of units. Unit membership changes only
// through explicit add/remove; the slice order is the catalog order used
// by breakdown reports.
type Property struct {
	ID         PropertyID
	Name       string
	LandlordID LandlordID
	Units      []Unit
}

// FindUnit returns the named unit, or nil.
func (p *Property) FindUnit(name string) *Unit {
	for i := range p.Units {
		if p.Units[i].Name == name {
			return &p.Units[i]
		}
	}
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentType string

const (
	PaymentTypeRent          PaymentType = "Rent"
	PaymentTypeServiceCharge PaymentType = "ServiceCharge"
	PaymentTypeOther         PaymentType = "Other"
)

type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "Paid"
	StatusPending PaymentStatus = "Pending"
)

// Payment is an immutable transaction record. Corrections happen by
// voiding a Pending row before it is confirmed; Paid rows are history.
type Payment struct {
	ID            PaymentID
	TenantID      TenantID
	Amount        ledger.Money
	Date          time.Time
	Type          PaymentType
	Status        PaymentStatus
	PaymentMethod string
	Notes         string
	CreatedAt     time.Time
}

// IsPaid reports whether the row participates in balance computation.
func (p *Payment) IsPaid() bool { return p.Status == StatusPaid }

// Entry renders the payment as a statement row.
func (p *Payment) Entry() ledger.Entry {
	desc := "Payment"
	if p.PaymentMethod != "" {
		desc = "Payment (" + p.PaymentMethod + ")"
	}
	return ledger.Entry{Date: p.Date, Description: desc, Payment: p.Amount}
}

// DefaultPaymentType is the charge a resident of this type settles.
func DefaultPaymentType(r ResidentType) PaymentType {
	if r == ResidentHomeowner {
		return PaymentTypeServiceCharge
	}
	return PaymentTypeRent
}
