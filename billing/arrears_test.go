package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func owing(id, name string, amount int64) billing.Tenant {
	return billing.Tenant{
		ID:           billing.TenantID(id),
		Name:         name,
		ResidentType: billing.ResidentTenant,
		DueBalance:   m(amount),
	}
}

func occupant(id string, prop billing.PropertyID, unit string, due int64) billing.Tenant {
	t := owing(id, "Resident "+id, due)
	t.PropertyID = prop
	t.UnitName = unit
	return t
}

func landlordUnit(name string, serviceCharge int64, handedOver bool) billing.Unit {
	u := billing.Unit{
		Name:          name,
		Ownership:     billing.OwnershipLandlord,
		Status:        billing.UnitVacant,
		RentAmount:    m(15000),
		ServiceCharge: m(serviceCharge),
	}
	if handedOver {
		u.HandoverStatus = billing.HandoverComplete
		u.HandoverDate = datePtr(day(2024, time.June, 1))
	}
	return u
}

// =============================================================================
// POPULATION ARREARS LIST
// =============================================================================

func TestTenantsInArrears_FiltersAndSortsDescending(t *testing.T) {
	// GIVEN: residents owing, settled, and in credit
	// WHEN: building the arrears list
	// THEN: only positive balances survive, largest first

	tenants := []billing.Tenant{
		owing("t-1", "Asha", 300),
		owing("t-2", "Brian", 0),
		owing("t-3", "Chao", 1200),
		owing("t-4", "Didier", -450),
		owing("t-5", "Esther", 700),
	}

	rows := billing.TenantsInArrears(tenants)

	require.Len(t, rows, 3)
	assert.Equal(t, billing.TenantID("t-3"), rows[0].Tenant.ID)
	assert.Equal(t, billing.TenantID("t-5"), rows[1].Tenant.ID)
	assert.Equal(t, billing.TenantID("t-1"), rows[2].Tenant.ID)
}

func TestTenantsInArrears_EqualBalancesKeepInputOrder(t *testing.T) {
	// The sort must be stable so repeated reads render the same list.

	tenants := []billing.Tenant{
		owing("t-1", "First", 500),
		owing("t-2", "Second", 500),
		owing("t-3", "Third", 500),
	}

	rows := billing.TenantsInArrears(tenants)

	require.Len(t, rows, 3)
	assert.Equal(t, billing.TenantID("t-1"), rows[0].Tenant.ID)
	assert.Equal(t, billing.TenantID("t-2"), rows[1].Tenant.ID)
	assert.Equal(t, billing.TenantID("t-3"), rows[2].Tenant.ID)
}

func TestTenantsInArrears_EmptyPopulation(t *testing.T) {
	assert.Empty(t, billing.TenantsInArrears(nil))
	assert.Empty(t, billing.TenantsInArrears([]billing.Tenant{owing("t-1", "Paid Up", 0)}))
}

// =============================================================================
// LANDLORD DEDUCTION BREAKDOWN
// =============================================================================

func TestLandlordArrearsBreakdown_MixedPortfolio(t *testing.T) {
	// GIVEN: two occupied units owing 500 and 300, one vacant handed-over
	//        unit with an 800 service charge
	// WHEN: computing the landlord's deductions
	// THEN: 800 in tenant arrears + 800 vacant service charge = 1600

	prop := billing.Property{
		ID:         "prop-1",
		Name:       "Sunset Villas",
		LandlordID: "landlord-1",
		Units: []billing.Unit{
			landlordUnit("A1", 600, true),
			landlordUnit("A2", 650, true),
			landlordUnit("A3", 800, true),
		},
	}
	tenants := []billing.Tenant{
		occupant("t-1", "prop-1", "A1", 500),
		occupant("t-2", "prop-1", "A2", 300),
	}

	sum := billing.LandlordArrearsBreakdown("landlord-1", []billing.Property{prop}, tenants)

	require.Len(t, sum.Units, 3)
	assert.True(t, sum.TotalTenantArrears.Equal(m(800)))
	assert.True(t, sum.VacantUnitServiceCharge.Equal(m(800)))
	assert.True(t, sum.TotalDeductions.Equal(m(1600)))

	assert.True(t, sum.Units[0].Occupied)
	assert.Equal(t, billing.TenantID("t-1"), sum.Units[0].TenantID)
	assert.True(t, sum.Units[0].Arrears.Equal(m(500)))
	assert.False(t, sum.Units[2].Occupied)
	assert.True(t, sum.Units[2].VacantServiceCharge.Equal(m(800)))
}

func TestLandlordArrearsBreakdown_OccupiedVacantPending(t *testing.T) {
	// GIVEN: one unit occupied by a resident owing 500, one vacant
	//        handed-over unit with a 300 service charge, one vacant unit
	//        still awaiting handover
	// WHEN: computing the landlord's deductions
	// THEN: totals are 500 tenant arrears, 300 vacant charge, 800 overall

	prop := billing.Property{
		ID:         "prop-1",
		Name:       "Sunset Villas",
		LandlordID: "landlord-1",
		Units: []billing.Unit{
			landlordUnit("U1", 250, true),
			landlordUnit("U2", 300, true),
			landlordUnit("U3", 999, false),
		},
	}
	tenants := []billing.Tenant{occupant("t-1", "prop-1", "U1", 500)}

	sum := billing.LandlordArrearsBreakdown("landlord-1", []billing.Property{prop}, tenants)

	require.Len(t, sum.Units, 3)
	assert.True(t, sum.TotalTenantArrears.Equal(m(500)))
	assert.True(t, sum.VacantUnitServiceCharge.Equal(m(300)))
	assert.True(t, sum.TotalDeductions.Equal(m(800)))
	assert.True(t, sum.Units[2].VacantServiceCharge.IsZero(), "pending handover owes nothing")
}

func TestLandlordArrearsBreakdown_VacantNotHandedOver_NoCharge(t *testing.T) {
	// A vacant unit still awaiting handover owes nothing yet.

	prop := billing.Property{
		ID:         "prop-1",
		Name:       "Sunset Villas",
		LandlordID: "landlord-1",
		Units:      []billing.Unit{landlordUnit("B1", 900, false)},
	}

	sum := billing.LandlordArrearsBreakdown("landlord-1", []billing.Property{prop}, nil)

	require.Len(t, sum.Units, 1)
	assert.True(t, sum.Units[0].VacantServiceCharge.IsZero())
	assert.True(t, sum.TotalDeductions.IsZero())
}

func TestLandlordArrearsBreakdown_OccupantInCredit_ContributesZero(t *testing.T) {
	// A prepaid resident's credit belongs to the resident, not the landlord.

	prop := billing.Property{
		ID:         "prop-1",
		Name:       "Sunset Villas",
		LandlordID: "landlord-1",
		Units:      []billing.Unit{landlordUnit("C1", 600, true)},
	}
	tenants := []billing.Tenant{occupant("t-1", "prop-1", "C1", -2500)}

	sum := billing.LandlordArrearsBreakdown("landlord-1", []billing.Property{prop}, tenants)

	require.Len(t, sum.Units, 1)
	assert.True(t, sum.Units[0].Occupied)
	assert.True(t, sum.Units[0].Arrears.IsZero())
	assert.True(t, sum.TotalDeductions.IsZero())
}

func TestLandlordArrearsBreakdown_SkipsManagedUnitsAndOtherLandlords(t *testing.T) {
	// Only landlord-owned units in this landlord's properties count.

	smUnit := landlordUnit("S1", 700, true)
	smUnit.Ownership = billing.OwnershipSM
	mine := billing.Property{
		ID:         "prop-1",
		Name:       "Sunset Villas",
		LandlordID: "landlord-1",
		Units:      []billing.Unit{smUnit, landlordUnit("L1", 400, true)},
	}
	theirs := billing.Property{
		ID:         "prop-2",
		Name:       "Moonrise Towers",
		LandlordID: "landlord-2",
		Units:      []billing.Unit{landlordUnit("M1", 999, true)},
	}

	sum := billing.LandlordArrearsBreakdown("landlord-1", []billing.Property{mine, theirs}, nil)

	require.Len(t, sum.Units, 1)
	assert.Equal(t, "L1", sum.Units[0].UnitName)
	assert.True(t, sum.TotalDeductions.Equal(m(400)))
}

func TestLandlordArrearsBreakdown_RowsFollowCatalogOrder(t *testing.T) {
	prop := billing.Property{
		ID:         "prop-1",
		Name:       "Sunset Villas",
		LandlordID: "landlord-1",
		Units: []billing.Unit{
			landlordUnit("D3", 100, true),
			landlordUnit("D1", 200, true),
			landlordUnit("D2", 300, true),
		},
	}

	sum := billing.LandlordArrearsBreakdown("landlord-1", []billing.Property{prop}, nil)

	require.Len(t, sum.Units, 3)
	assert.Equal(t, "D3", sum.Units[0].UnitName)
	assert.Equal(t, "D1", sum.Units[1].UnitName)
	assert.Equal(t, "D2", sum.Units[2].UnitName)
}
