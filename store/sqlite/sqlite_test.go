package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/ledger"
	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "billing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func m(n int64) ledger.Money { return ledger.NewMoneyFromInt(n) }

func day(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func sampleTenant(id string) billing.Tenant {
	last := day(2025, time.February, 14)
	return billing.Tenant{
		ID:           billing.TenantID(id),
		Name:         "Grace Wanjiru",
		Phone:        "+254700000001",
		ResidentType: billing.ResidentTenant,
		PropertyID:   "prop-1",
		UnitName:     "A-101",
		Lease: billing.Lease{
			RentAmount:       ledger.MustMoney("21500.50"),
			LastPaymentDate:  &last,
			LastBilledPeriod: "2025-01",
			SecurityDeposit:  m(40000),
		},
		DueBalance: ledger.MustMoney("-150.25"),
		CreatedAt:  day(2024, time.June, 1),
	}
}

func sampleProperty(id string, units ...string) billing.Property {
	handover := day(2024, time.March, 5)
	p := billing.Property{
		ID:         billing.PropertyID(id),
		Name:       "Riverside Court",
		LandlordID: "landlord-1",
	}
	for _, name := range units {
		p.Units = append(p.Units, billing.Unit{
			Name:           name,
			Ownership:      billing.OwnershipLandlord,
			UnitType:       "apartment",
			Status:         billing.UnitRented,
			RentAmount:     m(21500),
			ServiceCharge:  m(3000),
			HandoverStatus: billing.HandoverComplete,
			HandoverDate:   &handover,
		})
	}
	return p
}

// =============================================================================
// TENANTS
// =============================================================================

func TestSQLite_TenantRoundTrip(t *testing.T) {
	// GIVEN: a tenant with every field set, including exact decimals
	// WHEN: storing and reloading
	// THEN: nothing is lost or rounded

	st := newStore(t)
	ctx := context.Background()

	want := sampleTenant("tenant-1")
	require.NoError(t, st.PutTenant(ctx, want))

	got, err := st.Tenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Phone, got.Phone)
	assert.Equal(t, want.ResidentType, got.ResidentType)
	assert.Equal(t, want.PropertyID, got.PropertyID)
	assert.Equal(t, want.UnitName, got.UnitName)
	assert.True(t, got.Lease.RentAmount.Equal(ledger.MustMoney("21500.50")))
	require.NotNil(t, got.Lease.LastPaymentDate)
	assert.True(t, got.Lease.LastPaymentDate.Equal(*want.Lease.LastPaymentDate))
	assert.Equal(t, "2025-01", got.Lease.LastBilledPeriod)
	assert.True(t, got.DueBalance.Equal(ledger.MustMoney("-150.25")), "signed cache survives")
	assert.False(t, got.Archived)
	assert.Nil(t, got.ArchivedAt)
}

func TestSQLite_TenantNilDatesStayNil(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	tenant := sampleTenant("tenant-1")
	tenant.Lease.LastPaymentDate = nil
	tenant.Lease.LastBilledPeriod = ""
	require.NoError(t, st.PutTenant(ctx, tenant))

	got, err := st.Tenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, got.Lease.LastPaymentDate)
	assert.Empty(t, got.Lease.LastBilledPeriod)
}

func TestSQLite_TenantUpsertKeepsInsertionOrder(t *testing.T) {
	// Replacing a record must not move it to the back of the list.

	st := newStore(t)
	ctx := context.Background()

	for _, id := range []string{"tenant-a", "tenant-b", "tenant-c"} {
		require.NoError(t, st.PutTenant(ctx, sampleTenant(id)))
	}
	updated := sampleTenant("tenant-a")
	updated.Name = "Renamed"
	require.NoError(t, st.PutTenant(ctx, updated))

	tenants, err := st.Tenants(ctx, true)
	require.NoError(t, err)
	require.Len(t, tenants, 3)
	assert.Equal(t, billing.TenantID("tenant-a"), tenants[0].ID)
	assert.Equal(t, "Renamed", tenants[0].Name)
	assert.Equal(t, billing.TenantID("tenant-c"), tenants[2].ID)
}

func TestSQLite_TenantsArchivedFilter(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutTenant(ctx, sampleTenant("tenant-1")))
	require.NoError(t, st.PutTenant(ctx, sampleTenant("tenant-2")))
	require.NoError(t, st.ArchiveTenant(ctx, "tenant-2", day(2025, time.March, 31)))

	active, err := st.Tenants(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, billing.TenantID("tenant-1"), active[0].ID)

	all, err := st.Tenants(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[1].Archived)
	require.NotNil(t, all[1].ArchivedAt)
	assert.True(t, all[1].ArchivedAt.Equal(day(2025, time.March, 31)))
}

func TestSQLite_SetDueBalance(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutTenant(ctx, sampleTenant("tenant-1")))
	require.NoError(t, st.SetDueBalance(ctx, "tenant-1", m(42000)))

	got, err := st.Tenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.True(t, got.DueBalance.Equal(m(42000)))

	err = st.SetDueBalance(ctx, "nobody", m(1))
	assert.ErrorIs(t, err, billing.ErrTenantNotFound)
}

func TestSQLite_TenantNotFound(t *testing.T) {
	st := newStore(t)

	_, err := st.Tenant(context.Background(), "nobody")
	assert.ErrorIs(t, err, billing.ErrTenantNotFound)

	err = st.ArchiveTenant(context.Background(), "nobody", day(2025, time.January, 1))
	assert.ErrorIs(t, err, billing.ErrTenantNotFound)
}

// =============================================================================
// PROPERTIES AND UNITS
// =============================================================================

func TestSQLite_PropertyRoundTrip_CatalogOrder(t *testing.T) {
	// Units must come back in the order they were cataloged, not sorted.

	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutProperty(ctx, sampleProperty("prop-1", "B-202", "A-101", "C-303")))

	got, err := st.Property(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, "Riverside Court", got.Name)
	assert.Equal(t, billing.LandlordID("landlord-1"), got.LandlordID)
	require.Len(t, got.Units, 3)
	assert.Equal(t, "B-202", got.Units[0].Name)
	assert.Equal(t, "A-101", got.Units[1].Name)
	assert.Equal(t, "C-303", got.Units[2].Name)
	assert.True(t, got.Units[0].HandedOver())
}

func TestSQLite_PutPropertyReplacesUnitList(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutProperty(ctx, sampleProperty("prop-1", "A-101", "B-202")))
	require.NoError(t, st.PutProperty(ctx, sampleProperty("prop-1", "C-303")))

	got, err := st.Property(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, got.Units, 1)
	assert.Equal(t, "C-303", got.Units[0].Name)
}

func TestSQLite_AddUnit(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutProperty(ctx, sampleProperty("prop-1", "A-101")))

	fresh := billing.Unit{
		Name:           "A-102",
		Ownership:      billing.OwnershipSM,
		Status:         billing.UnitVacant,
		ServiceCharge:  m(2500),
		HandoverStatus: billing.HandoverPending,
	}
	require.NoError(t, st.AddUnit(ctx, "prop-1", fresh))

	got, err := st.Property(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, got.Units, 2)
	assert.Equal(t, "A-102", got.Units[1].Name, "appended at the end")
	assert.Nil(t, got.Units[1].HandoverDate)

	err = st.AddUnit(ctx, "prop-1", fresh)
	assert.ErrorIs(t, err, billing.ErrDuplicateUnit)

	err = st.AddUnit(ctx, "prop-missing", fresh)
	assert.ErrorIs(t, err, billing.ErrPropertyNotFound)
}

func TestSQLite_UpdateUnit(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutProperty(ctx, sampleProperty("prop-1", "A-101", "B-202")))

	revised := billing.Unit{
		Name:           "A-101",
		Ownership:      billing.OwnershipLandlord,
		Status:         billing.UnitVacant,
		RentAmount:     m(25000),
		ServiceCharge:  m(3500),
		HandoverStatus: billing.HandoverComplete,
		HandoverDate:   func() *time.Time { d := day(2025, time.January, 8); return &d }(),
	}
	require.NoError(t, st.UpdateUnit(ctx, "prop-1", revised))

	got, err := st.Property(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, got.Units, 2)
	assert.Equal(t, "A-101", got.Units[0].Name, "order preserved")
	assert.True(t, got.Units[0].RentAmount.Equal(m(25000)))
	assert.Equal(t, billing.UnitVacant, got.Units[0].Status)

	revised.Name = "Z-999"
	err = st.UpdateUnit(ctx, "prop-1", revised)
	assert.ErrorIs(t, err, billing.ErrUnitNotFound)
}

func TestSQLite_PropertyNotFound(t *testing.T) {
	st := newStore(t)

	_, err := st.Property(context.Background(), "nowhere")
	assert.ErrorIs(t, err, billing.ErrPropertyNotFound)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestSQLite_PaymentRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	want := billing.Payment{
		ID:            "pay-1",
		TenantID:      "tenant-1",
		Amount:        ledger.MustMoney("21500.50"),
		Date:          day(2025, time.February, 14),
		Type:          billing.PaymentTypeRent,
		Status:        billing.StatusPaid,
		PaymentMethod: "M-Pesa",
		Notes:         "February rent",
		CreatedAt:     day(2025, time.February, 14),
	}
	require.NoError(t, st.AddPayment(ctx, want))

	got, err := st.Payment(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, want.TenantID, got.TenantID)
	assert.True(t, got.Amount.Equal(want.Amount))
	assert.True(t, got.Date.Equal(want.Date))
	assert.Equal(t, billing.PaymentTypeRent, got.Type)
	assert.Equal(t, "M-Pesa", got.PaymentMethod)
	assert.Equal(t, "February rent", got.Notes)

	err = st.AddPayment(ctx, want)
	assert.Error(t, err, "duplicate payment IDs are rejected")
}

func TestSQLite_PaymentsByTenant_InsertionOrder(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	for i, id := range []billing.PaymentID{"pay-1", "pay-2", "pay-3"} {
		tenant := billing.TenantID("tenant-1")
		if id == "pay-2" {
			tenant = "tenant-2"
		}
		require.NoError(t, st.AddPayment(ctx, billing.Payment{
			ID:       id,
			TenantID: tenant,
			Amount:   m(int64(1000 * (i + 1))),
			Date:     day(2025, time.March, i+1),
			Type:     billing.PaymentTypeRent,
			Status:   billing.StatusPaid,
		}))
	}

	mine, err := st.PaymentsByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, billing.PaymentID("pay-1"), mine[0].ID)
	assert.Equal(t, billing.PaymentID("pay-3"), mine[1].ID)

	all, err := st.Payments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_PaymentLifecycleWrites(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.AddPayment(ctx, billing.Payment{
		ID:       "pay-1",
		TenantID: "tenant-1",
		Amount:   m(500),
		Date:     day(2025, time.March, 1),
		Type:     billing.PaymentTypeRent,
		Status:   billing.StatusPending,
	}))

	require.NoError(t, st.SetPaymentStatus(ctx, "pay-1", billing.StatusPaid))
	got, err := st.Payment(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, got.Status)

	require.NoError(t, st.DeletePayment(ctx, "pay-1"))
	_, err = st.Payment(ctx, "pay-1")
	assert.ErrorIs(t, err, billing.ErrPaymentNotFound)

	assert.ErrorIs(t, st.SetPaymentStatus(ctx, "pay-1", billing.StatusPaid), billing.ErrPaymentNotFound)
	assert.ErrorIs(t, st.DeletePayment(ctx, "pay-1"), billing.ErrPaymentNotFound)
}

// =============================================================================
// BOOKKEEPER OVER SQLITE
// =============================================================================

func TestSQLite_BookkeeperEndToEnd(t *testing.T) {
	// The bookkeeper drives the same flows against SQLite that the
	// in-memory tests cover: record a payment, watch the cache move.

	st := newStore(t)
	ctx := context.Background()

	books := billing.NewBookkeeper(st).WithClock(func() time.Time {
		return day(2025, time.April, 15)
	})

	require.NoError(t, st.PutProperty(ctx, sampleProperty("prop-1", "A-101")))
	tenant := sampleTenant("tenant-1")
	tenant.DueBalance = ledger.Money{}
	tenant.Lease.LastPaymentDate = nil
	_, err := books.CreateTenant(ctx, tenant)
	require.NoError(t, err)

	// Anchor 2025-01, rent 21500: Feb+Mar+Apr accrue.
	got, err := st.Tenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.True(t, got.DueBalance.Equal(m(64500)))

	_, err = books.RecordPayment(ctx, billing.Payment{
		TenantID: "tenant-1",
		Amount:   m(21500),
		Date:     day(2025, time.February, 14),
	})
	require.NoError(t, err)

	got, err = st.Tenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.True(t, got.DueBalance.Equal(m(43000)))

	report, err := books.AuditBalances(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}
