package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func m(n int64) ledger.Money { return ledger.NewMoneyFromInt(n) }

func day(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

func month(y int, mo time.Month) ledger.Month { return ledger.NewMonth(y, mo) }

// riversideProperty is a one-unit property with the unit handed over long
// ago, so anchor-based scenarios aren't disturbed by handover rules.
func riversideProperty(rent int64) billing.Property {
	return billing.Property{
		ID:         "prop-riverside",
		Name:       "Riverside Court",
		LandlordID: "landlord-1",
		Units: []billing.Unit{{
			Name:           "A-101",
			Ownership:      billing.OwnershipLandlord,
			UnitType:       "apartment",
			Status:         billing.UnitRented,
			RentAmount:     m(rent),
			ServiceCharge:  m(3000),
			HandoverStatus: billing.HandoverComplete,
			HandoverDate:   datePtr(day(2024, time.June, 1)),
		}},
	}
}

func riversideTenant(anchor string) billing.Tenant {
	return billing.Tenant{
		ID:           "tenant-1",
		Name:         "Grace Wanjiru",
		ResidentType: billing.ResidentTenant,
		PropertyID:   "prop-riverside",
		UnitName:     "A-101",
		Lease:        billing.Lease{RentAmount: m(20000), LastBilledPeriod: anchor},
	}
}

func paidPayment(id string, tenant billing.TenantID, amount int64, date time.Time) billing.Payment {
	return billing.Payment{
		ID:       billing.PaymentID(id),
		TenantID: tenant,
		Amount:   m(amount),
		Date:     date,
		Type:     billing.PaymentTypeRent,
		Status:   billing.StatusPaid,
	}
}

// =============================================================================
// END-TO-END LEDGER GENERATION
// =============================================================================

func TestGenerateLedger_AnchoredSchedule_EndToEnd(t *testing.T) {
	// GIVEN: last billed period 2025-01, rent 20000, one paid 20000 on Feb 15
	// WHEN: generating as of 2025-04
	// THEN: charges for Feb, Mar, Apr (60000), one payment, 40000 still due

	tenant := riversideTenant("2025-01")
	properties := []billing.Property{riversideProperty(20000)}
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 20000, day(2025, time.February, 15)),
	}

	res := billing.GenerateLedger(&tenant, payments, properties, month(2025, time.April))

	require.Len(t, res.Ledger, 4)
	assert.Equal(t, "Rent for 2025-02", res.Ledger[0].Description)
	assert.True(t, res.Ledger[0].Balance.Equal(m(20000)))
	assert.True(t, res.Ledger[1].IsPayment())
	assert.True(t, res.Ledger[1].Balance.IsZero(), "February payment clears February rent")
	assert.Equal(t, "Rent for 2025-03", res.Ledger[2].Description)
	assert.Equal(t, "Rent for 2025-04", res.Ledger[3].Description)
	assert.True(t, res.FinalDueBalance.Equal(m(40000)))
	assert.True(t, res.FinalAccountBalance.IsZero())
}

func TestGenerateLedger_PrefixInvariant(t *testing.T) {
	// Every prefix of the generated ledger must satisfy
	// balance == sum(charges) - sum(payments).

	tenant := riversideTenant("2024-10")
	properties := []billing.Property{riversideProperty(17500)}
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 10000, day(2024, time.December, 5)),
		paidPayment("pay-2", tenant.ID, 25000, day(2025, time.January, 2)),
		paidPayment("pay-3", tenant.ID, 17500, day(2025, time.February, 1)),
	}

	res := billing.GenerateLedger(&tenant, payments, properties, month(2025, time.March))

	running := ledger.Money{}
	for i, e := range res.Ledger {
		running = running.Add(e.Charge).Sub(e.Payment)
		assert.True(t, e.Balance.Equal(running), "prefix %d: got %s want %s", i, e.Balance, running)
	}
}

func TestGenerateLedger_Idempotent(t *testing.T) {
	// Two runs with identical inputs and a pinned as-of month must agree
	// entry for entry. The only clock is the one the caller passes.

	tenant := riversideTenant("2025-01")
	properties := []billing.Property{riversideProperty(20000)}
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 20000, day(2025, time.February, 15)),
	}
	asOf := month(2025, time.April)

	first := billing.GenerateLedger(&tenant, payments, properties, asOf)
	second := billing.GenerateLedger(&tenant, payments, properties, asOf)

	require.Equal(t, len(first.Ledger), len(second.Ledger))
	for i := range first.Ledger {
		assert.Equal(t, first.Ledger[i].Description, second.Ledger[i].Description)
		assert.True(t, first.Ledger[i].Balance.Equal(second.Ledger[i].Balance))
	}
	assert.True(t, first.FinalDueBalance.Equal(second.FinalDueBalance))
}

func TestGenerateLedger_MutualExclusivity(t *testing.T) {
	// finalDueBalance and finalAccountBalance can never both be positive.

	tenant := riversideTenant("2025-02")
	properties := []billing.Property{riversideProperty(20000)}

	// Overpaid: two months billed (Mar, Apr), three months' worth paid.
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 60000, day(2025, time.March, 1)),
	}
	res := billing.GenerateLedger(&tenant, payments, properties, month(2025, time.April))
	assert.True(t, res.FinalDueBalance.IsZero())
	assert.True(t, res.FinalAccountBalance.Equal(m(20000)), "credit for the unbilled month")

	// Exactly settled: both zero.
	payments = []billing.Payment{
		paidPayment("pay-1", tenant.ID, 40000, day(2025, time.March, 1)),
	}
	res = billing.GenerateLedger(&tenant, payments, properties, month(2025, time.April))
	assert.True(t, res.FinalDueBalance.IsZero())
	assert.True(t, res.FinalAccountBalance.IsZero())
}

// =============================================================================
// BILLING START RULES
// =============================================================================

func TestGenerateLedger_HandoverOnOrBefore10th_BillsSameMonth(t *testing.T) {
	prop := riversideProperty(12000)
	prop.Units[0].HandoverDate = datePtr(day(2025, time.March, 10))
	tenant := riversideTenant("")

	res := billing.GenerateLedger(&tenant, nil, []billing.Property{prop}, month(2025, time.May))

	require.Len(t, res.Ledger, 3, "March through May")
	assert.Equal(t, "Rent for 2025-03", res.Ledger[0].Description)
}

func TestGenerateLedger_HandoverAfter10th_BillsTwoMonthsLater(t *testing.T) {
	prop := riversideProperty(12000)
	prop.Units[0].HandoverDate = datePtr(day(2025, time.March, 11))
	tenant := riversideTenant("")

	res := billing.GenerateLedger(&tenant, nil, []billing.Property{prop}, month(2025, time.June))

	require.Len(t, res.Ledger, 2, "May and June only")
	assert.Equal(t, "Rent for 2025-05", res.Ledger[0].Description)
}

func TestGenerateLedger_NotHandedOver_NoCharges(t *testing.T) {
	prop := riversideProperty(12000)
	prop.Units[0].HandoverStatus = billing.HandoverPending
	prop.Units[0].HandoverDate = nil
	tenant := riversideTenant("")
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 5000, day(2025, time.January, 3)),
	}

	res := billing.GenerateLedger(&tenant, payments, []billing.Property{prop}, month(2025, time.May))

	require.Len(t, res.Ledger, 1, "historical payment still shows")
	assert.True(t, res.Ledger[0].IsPayment())
	assert.True(t, res.FinalAccountBalance.Equal(m(5000)))
}

func TestGenerateLedger_MalformedAnchor_FallsBackToHandover(t *testing.T) {
	// GIVEN: a lease anchor that isn't "YYYY-MM"
	// WHEN: generating the ledger
	// THEN: the anchor is treated as absent and handover rules apply

	prop := riversideProperty(12000)
	prop.Units[0].HandoverDate = datePtr(day(2025, time.February, 3))
	for _, anchor := range []string{"garbage", "2025-13", "2025/01", "January 2025"} {
		tenant := riversideTenant(anchor)

		res := billing.GenerateLedger(&tenant, nil, []billing.Property{prop}, month(2025, time.March))

		require.Len(t, res.Ledger, 2, "anchor %q should fall back to handover month", anchor)
		assert.Equal(t, "Rent for 2025-02", res.Ledger[0].Description)
	}
}

func TestGenerateLedger_FutureAnchor_ClampsToEmpty(t *testing.T) {
	// An anchor ahead of the current month must not produce negative month
	// counts; the schedule is simply empty.

	tenant := riversideTenant("2025-06")
	properties := []billing.Property{riversideProperty(20000)}
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 20000, day(2025, time.March, 20)),
	}

	res := billing.GenerateLedger(&tenant, payments, properties, month(2025, time.April))

	require.Len(t, res.Ledger, 1, "payments only")
	assert.True(t, res.Ledger[0].IsPayment())
	assert.True(t, res.FinalAccountBalance.Equal(m(20000)))
}

// =============================================================================
// CHARGE RESOLUTION
// =============================================================================

func TestGenerateLedger_ZeroMonthlyCharge_PaymentsOnly(t *testing.T) {
	// Zero rent means no charge entries ever, whatever the start rules say.

	prop := riversideProperty(0)
	tenant := riversideTenant("2025-01")
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 8000, day(2025, time.February, 10)),
	}

	res := billing.GenerateLedger(&tenant, payments, []billing.Property{prop}, month(2025, time.December))

	require.Len(t, res.Ledger, 1)
	assert.True(t, res.Ledger[0].IsPayment())
	assert.True(t, res.FinalDueBalance.IsZero())
}

func TestGenerateLedger_UnresolvedUnit_ZeroChargeNotError(t *testing.T) {
	// A tenant pointing at a unit the catalog doesn't have degrades to a
	// zero monthly charge; their payment history still renders.

	tenant := riversideTenant("2025-01")
	tenant.UnitName = "Z-999"
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 8000, day(2025, time.February, 10)),
	}

	res := billing.GenerateLedger(&tenant, payments, []billing.Property{riversideProperty(20000)}, month(2025, time.April))

	require.Len(t, res.Ledger, 1)
	assert.True(t, res.Ledger[0].IsPayment())
	assert.True(t, res.FinalAccountBalance.Equal(m(8000)))
}

func TestGenerateLedger_Homeowner_BilledServiceCharge(t *testing.T) {
	prop := riversideProperty(20000)
	tenant := riversideTenant("2025-01")
	tenant.ResidentType = billing.ResidentHomeowner

	res := billing.GenerateLedger(&tenant, nil, []billing.Property{prop}, month(2025, time.March))

	require.Len(t, res.Ledger, 2)
	assert.Equal(t, "Service charge for 2025-02", res.Ledger[0].Description)
	assert.True(t, res.Ledger[0].Charge.Equal(m(3000)))
}

// =============================================================================
// FILTERING AND ORDERING
// =============================================================================

func TestGenerateLedger_FiltersOtherTenantsAndPending(t *testing.T) {
	// The payment history arrives unfiltered; the engine keeps only this
	// tenant's Paid rows.

	tenant := riversideTenant("2025-02")
	properties := []billing.Property{riversideProperty(20000)}
	pending := paidPayment("pay-2", tenant.ID, 9999, day(2025, time.March, 3))
	pending.Status = billing.StatusPending
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 20000, day(2025, time.March, 2)),
		pending,
		paidPayment("pay-3", "tenant-other", 5000, day(2025, time.March, 4)),
	}

	res := billing.GenerateLedger(&tenant, payments, properties, month(2025, time.March))

	require.Len(t, res.Ledger, 2, "one charge, one counted payment")
	assert.True(t, res.FinalDueBalance.IsZero())
}

func TestGenerateLedger_SameDayChargeAndPayment_ChargeFirst(t *testing.T) {
	// A payment dated the 1st lands after that day's charge, so it reads
	// as settling the month rather than preceding it.

	tenant := riversideTenant("2025-02")
	properties := []billing.Property{riversideProperty(20000)}
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 20000, day(2025, time.March, 1)),
	}

	res := billing.GenerateLedger(&tenant, payments, properties, month(2025, time.March))

	require.Len(t, res.Ledger, 2)
	assert.False(t, res.Ledger[0].IsPayment())
	assert.True(t, res.Ledger[0].Balance.Equal(m(20000)))
	assert.True(t, res.Ledger[1].Balance.IsZero())
}

// =============================================================================
// LIFECYCLE EDGES
// =============================================================================

func TestGenerateLedger_NilTenant_EmptyResult(t *testing.T) {
	res := billing.GenerateLedger(nil, nil, nil, month(2025, time.April))
	assert.Empty(t, res.Ledger)
	assert.True(t, res.FinalDueBalance.IsZero())
	assert.True(t, res.FinalAccountBalance.IsZero())
}

func TestGenerateLedger_ArchivedTenant_ChargesFreezeAtMoveOut(t *testing.T) {
	// GIVEN: a tenant who moved out in March
	// WHEN: generating as of June
	// THEN: charges stop at March; a later payment still reduces the debt

	tenant := riversideTenant("2025-01")
	tenant.Archived = true
	tenant.ArchivedAt = datePtr(day(2025, time.March, 20))
	properties := []billing.Property{riversideProperty(20000)}
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 30000, day(2025, time.May, 5)),
	}

	res := billing.GenerateLedger(&tenant, payments, properties, month(2025, time.June))

	require.Len(t, res.Ledger, 3, "Feb and Mar charges plus the late payment")
	assert.Equal(t, "Rent for 2025-03", res.Ledger[1].Description)
	assert.True(t, res.FinalDueBalance.Equal(m(10000)), "40000 charged, 30000 settled after move-out")
}

func TestProjectBalance_ExtendsScheduleWithoutPayments(t *testing.T) {
	// GIVEN: a tenant owing 40000 as of April
	// WHEN: projecting three months ahead
	// THEN: each month adds one scheduled charge

	tenant := riversideTenant("2025-01")
	properties := []billing.Property{riversideProperty(20000)}
	payments := []billing.Payment{
		paidPayment("pay-1", tenant.ID, 20000, day(2025, time.February, 15)),
	}

	outlook := billing.ProjectBalance(&tenant, payments, properties, month(2025, time.April), 3)

	require.Len(t, outlook, 3)
	assert.Equal(t, "2025-05", outlook[0].Month.String())
	assert.True(t, outlook[0].Balance.Equal(m(60000)))
	assert.True(t, outlook[1].Balance.Equal(m(80000)))
	assert.True(t, outlook[2].Balance.Equal(m(100000)))
}

func TestProjectBalance_ArchivedTenant_FlatOutlook(t *testing.T) {
	tenant := riversideTenant("2025-01")
	tenant.Archived = true
	tenant.ArchivedAt = datePtr(day(2025, time.March, 20))
	properties := []billing.Property{riversideProperty(20000)}

	outlook := billing.ProjectBalance(&tenant, nil, properties, month(2025, time.April), 2)

	require.Len(t, outlook, 2)
	assert.True(t, outlook[0].Charge.IsZero(), "no accrual after move-out")
	assert.True(t, outlook[0].Balance.Equal(outlook[1].Balance))
}
