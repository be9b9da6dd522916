/*
bookkeeper.go - Recompute-on-write orchestration

PURPOSE:
  The dueBalance field on a tenant is a materialized view of their
  ledger. Materialized views rot unless exactly one code path maintains
  them; the Bookkeeper is that path. Every write that can move a balance
  (recording a payment, confirming a pending one, archiving a resident,
  the monthly rollover) flows through here and ends in a recompute from
  the ledger, the single source of truth.

  The Bookkeeper also owns the injectable clock. Computations take an
  explicit "as of" month; the clock only decides what "now" means for
  callers that don't supply one.

LIFECYCLE RULES:
  - Payments land Paid (counts immediately) or Pending (counts only once
    confirmed).
  - Confirm: Pending -> Paid, then recompute.
  - Void: Pending rows only; the row is removed, balances never knew it.
  - Archive: the resident's charges freeze at the archive month; the
    frozen debt remains collectable.

SEE ALSO:
  - engine.go: The ledger walk this orchestrates
  - store.go: The persistence surface it drives
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/billing-engine/ledger"
)

// Bookkeeper drives every balance-moving write and keeps the dueBalance
// cache in agreement with the ledger.
type Bookkeeper struct {
	store Store
	now   func() time.Time
}

func NewBookkeeper(store Store) *Bookkeeper {
	return &Bookkeeper{store: store, now: time.Now}
}

// WithClock replaces the wall clock. Tests pin it to a fixed instant so
// "current month" stops moving.
func (b *Bookkeeper) WithClock(now func() time.Time) *Bookkeeper {
	b.now = now
	return b
}

// CurrentMonth is the billing month "now" falls in.
func (b *Bookkeeper) CurrentMonth() ledger.Month { return ledger.MonthOf(b.now()) }

// =============================================================================
// READS
// =============================================================================

// Statement loads everything a resident's ledger needs and generates it
// as of the given month.
func (b *Bookkeeper) Statement(ctx context.Context, id TenantID, asOf ledger.Month) (*Tenant, LedgerResult, error) {
	t, err := b.store.Tenant(ctx, id)
	if err != nil {
		return nil, LedgerResult{}, err
	}
	payments, err := b.store.PaymentsByTenant(ctx, id)
	if err != nil {
		return nil, LedgerResult{}, fmt.Errorf("load payments: %w", err)
	}
	properties, err := b.store.Properties(ctx)
	if err != nil {
		return nil, LedgerResult{}, fmt.Errorf("load properties: %w", err)
	}
	return t, GenerateLedger(t, payments, properties, asOf), nil
}

// ArrearsFor returns the amount a resident owes, freshly generated.
func (b *Bookkeeper) ArrearsFor(ctx context.Context, id TenantID) (ledger.Money, error) {
	_, res, err := b.Statement(ctx, id, b.CurrentMonth())
	if err != nil {
		return ledger.Money{}, err
	}
	return res.FinalDueBalance, nil
}

// ArrearsList returns every resident owing money, most first. Archived
// residents with frozen debt stay on the list until they settle.
func (b *Bookkeeper) ArrearsList(ctx context.Context) ([]ArrearsRow, error) {
	tenants, err := b.store.Tenants(ctx, true)
	if err != nil {
		return nil, err
	}
	return TenantsInArrears(tenants), nil
}

// LandlordBreakdown computes the deduction summary for one landlord.
func (b *Bookkeeper) LandlordBreakdown(ctx context.Context, id LandlordID) (LandlordArrearsSummary, error) {
	properties, err := b.store.Properties(ctx)
	if err != nil {
		return LandlordArrearsSummary{}, err
	}
	tenants, err := b.store.Tenants(ctx, false)
	if err != nil {
		return LandlordArrearsSummary{}, err
	}
	return LandlordArrearsBreakdown(id, properties, tenants), nil
}

// Projection computes a resident's forward outlook.
func (b *Bookkeeper) Projection(ctx context.Context, id TenantID, horizon int) (*Tenant, []ProjectedMonth, error) {
	t, err := b.store.Tenant(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	payments, err := b.store.PaymentsByTenant(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load payments: %w", err)
	}
	properties, err := b.store.Properties(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load properties: %w", err)
	}
	return t, ProjectBalance(t, payments, properties, b.CurrentMonth(), horizon), nil
}

// =============================================================================
// PAYMENT LIFECYCLE
// =============================================================================

// RecordPayment validates and stores a payment. Paid rows move the
// resident's balance immediately; Pending rows wait for confirmation.
func (b *Bookkeeper) RecordPayment(ctx context.Context, p Payment) (*Payment, error) {
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	t, err := b.store.Tenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	if p.ID == "" {
		p.ID = PaymentID(uuid.NewString())
	}
	if p.Status == "" {
		p.Status = StatusPaid
	}
	if p.Type == "" {
		p.Type = DefaultPaymentType(t.ResidentType)
	}
	if p.Date.IsZero() {
		p.Date = b.now()
	}
	p.CreatedAt = b.now()

	if err := b.store.AddPayment(ctx, p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if p.IsPaid() {
		if err := b.settle(ctx, t, p.Date); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// ConfirmPayment flips a Pending row to Paid and applies it.
func (b *Bookkeeper) ConfirmPayment(ctx context.Context, id PaymentID) (*Payment, error) {
	p, err := b.store.Payment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending {
		return nil, &PaymentStateError{ID: p.ID, Status: p.Status}
	}
	if err := b.store.SetPaymentStatus(ctx, id, StatusPaid); err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	p.Status = StatusPaid

	t, err := b.store.Tenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	if err := b.settle(ctx, t, p.Date); err != nil {
		return nil, err
	}
	return p, nil
}

// VoidPayment cancels a Pending row before it counts. Paid rows are
// immutable and cannot be voided.
func (b *Bookkeeper) VoidPayment(ctx context.Context, id PaymentID) (*Payment, error) {
	p, err := b.store.Payment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending {
		return nil, &PaymentStateError{ID: p.ID, Status: p.Status}
	}
	if err := b.store.DeletePayment(ctx, id); err != nil {
		return nil, fmt.Errorf("void payment: %w", err)
	}
	return p, nil
}

// settle records the payment date on the lease and recomputes the cache.
func (b *Bookkeeper) settle(ctx context.Context, t *Tenant, paidOn time.Time) error {
	if t.Lease.LastPaymentDate == nil || paidOn.After(*t.Lease.LastPaymentDate) {
		stamped := *t
		stamped.Lease.LastPaymentDate = &paidOn
		if err := b.store.PutTenant(ctx, stamped); err != nil {
			return fmt.Errorf("stamp last payment date: %w", err)
		}
	}
	_, err := b.RecomputeTenant(ctx, t.ID)
	return err
}

// =============================================================================
// TENANT LIFECYCLE
// =============================================================================

// CreateTenant stores a new resident and materializes their opening
// balance; a lease anchor or handed-over unit may already carry charges.
func (b *Bookkeeper) CreateTenant(ctx context.Context, t Tenant) (*Tenant, error) {
	if t.ID == "" {
		t.ID = TenantID(uuid.NewString())
	}
	if t.ResidentType == "" {
		t.ResidentType = ResidentTenant
	}
	t.Archived = false
	t.ArchivedAt = nil
	t.CreatedAt = b.now()

	if err := b.store.PutTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	balance, err := b.RecomputeTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.DueBalance = balance
	return &t, nil
}

// UpdateTenant replaces a resident's record and recomputes; lease or unit
// reference changes move the schedule.
func (b *Bookkeeper) UpdateTenant(ctx context.Context, t Tenant) (*Tenant, error) {
	current, err := b.store.Tenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	// Lifecycle fields are not writable through update.
	t.Archived = current.Archived
	t.ArchivedAt = current.ArchivedAt
	t.CreatedAt = current.CreatedAt

	if err := b.store.PutTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	balance, err := b.RecomputeTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.DueBalance = balance
	return &t, nil
}

// ArchiveTenant marks a move-out and freezes the resident's charges at
// the current month. The record and any remaining debt stay.
func (b *Bookkeeper) ArchiveTenant(ctx context.Context, id TenantID) (*Tenant, error) {
	if err := b.store.ArchiveTenant(ctx, id, b.now()); err != nil {
		return nil, err
	}
	if _, err := b.RecomputeTenant(ctx, id); err != nil {
		return nil, err
	}
	return b.store.Tenant(ctx, id)
}

// RecomputeOccupant refreshes the cache of whoever occupies the given
// unit, after a catalog change (handover, rent revision) moved their
// schedule. No-op when the unit is unoccupied.
func (b *Bookkeeper) RecomputeOccupant(ctx context.Context, key UnitKey) error {
	tenants, err := b.store.Tenants(ctx, false)
	if err != nil {
		return err
	}
	for i := range tenants {
		if tenants[i].PropertyID == key.PropertyID && tenants[i].UnitName == key.UnitName {
			if _, err := b.RecomputeTenant(ctx, tenants[i].ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// MATERIALIZED VIEW MAINTENANCE
// =============================================================================

// RecomputeTenant regenerates one resident's ledger and writes the signed
// closing balance into the cache.
func (b *Bookkeeper) RecomputeTenant(ctx context.Context, id TenantID) (ledger.Money, error) {
	_, res, err := b.Statement(ctx, id, b.CurrentMonth())
	if err != nil {
		return ledger.Money{}, err
	}
	closing := res.Closing()
	if err := b.store.SetDueBalance(ctx, id, closing); err != nil {
		return ledger.Money{}, fmt.Errorf("write due balance: %w", err)
	}
	return closing, nil
}

// RebuildBalances recomputes every resident's cache in one pass over the
// catalog. The month rollover job runs this so arrears lists pick up the
// new month's charges. Returns how many caches moved.
func (b *Bookkeeper) RebuildBalances(ctx context.Context) (int, error) {
	tenants, err := b.store.Tenants(ctx, true)
	if err != nil {
		return 0, err
	}
	properties, err := b.store.Properties(ctx)
	if err != nil {
		return 0, err
	}
	payments, err := b.store.Payments(ctx)
	if err != nil {
		return 0, err
	}

	ix := NewOccupancyIndex(properties, tenants)
	byTenant := groupPayments(payments)
	asOf := b.CurrentMonth()

	changed := 0
	for i := range tenants {
		res := GenerateLedgerWithIndex(&tenants[i], byTenant[tenants[i].ID], ix, asOf)
		closing := res.Closing()
		if closing.Equal(tenants[i].DueBalance) {
			continue
		}
		if err := b.store.SetDueBalance(ctx, tenants[i].ID, closing); err != nil {
			return changed, fmt.Errorf("rebuild tenant %s: %w", tenants[i].ID, err)
		}
		changed++
	}
	return changed, nil
}

// DriftRow is one cache/ledger disagreement found by the audit.
type DriftRow struct {
	TenantID TenantID
	Cached   ledger.Money
	Computed ledger.Money
}

// AuditReport is the read-only health check of the materialized view and
// the occupancy data.
type AuditReport struct {
	AsOf      ledger.Month
	Checked   int
	Drift     []DriftRow
	Conflicts []OccupancyConflict
}

// Clean reports whether the audit found nothing to complain about.
func (r *AuditReport) Clean() bool { return len(r.Drift) == 0 && len(r.Conflicts) == 0 }

// AuditBalances regenerates every ledger and compares against the cache
// without writing anything. Drift here means some write path skipped the
// bookkeeper.
func (b *Bookkeeper) AuditBalances(ctx context.Context) (*AuditReport, error) {
	tenants, err := b.store.Tenants(ctx, true)
	if err != nil {
		return nil, err
	}
	properties, err := b.store.Properties(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := b.store.Payments(ctx)
	if err != nil {
		return nil, err
	}

	ix := NewOccupancyIndex(properties, tenants)
	byTenant := groupPayments(payments)
	report := &AuditReport{AsOf: b.CurrentMonth(), Conflicts: ix.Conflicts()}

	for i := range tenants {
		res := GenerateLedgerWithIndex(&tenants[i], byTenant[tenants[i].ID], ix, report.AsOf)
		report.Checked++
		if closing := res.Closing(); !closing.Equal(tenants[i].DueBalance) {
			report.Drift = append(report.Drift, DriftRow{
				TenantID: tenants[i].ID,
				Cached:   tenants[i].DueBalance,
				Computed: closing,
			})
		}
	}
	return report, nil
}

func groupPayments(payments []Payment) map[TenantID][]Payment {
	byTenant := make(map[TenantID][]Payment, len(payments))
	for _, p := range payments {
		byTenant[p.TenantID] = append(byTenant[p.TenantID], p)
	}
	return byTenant
}
