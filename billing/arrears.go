/*
arrears.go - Arrears aggregation across residents and landlord portfolios

PURPOSE:
  Two read-side aggregations over the materialized dueBalance cache:
  the population-wide arrears list (who owes, most first) and the
  per-landlord deduction breakdown (what to withhold from a landlord's
  rent remittance).

  The arrears list deliberately reads the cached dueBalance instead of
  regenerating every ledger - it is an O(n) scan over a frequently-read
  summary field. The cache's agreement with the ledger is maintained by
  the bookkeeper and checked by its audit.
*/
package billing

import (
	"sort"

	"github.com/warp/billing-engine/ledger"
)

// ArrearsRow pairs a resident with the amount they owe.
type ArrearsRow struct {
	Tenant  Tenant
	Arrears ledger.Money
}

// TenantsInArrears filters to residents with a positive cached dueBalance
// and sorts them by arrears descending. The sort is stable: residents with
// equal arrears keep the caller-supplied order.
func TenantsInArrears(tenants []Tenant) []ArrearsRow {
	var rows []ArrearsRow
	for i := range tenants {
		if !tenants[i].DueBalance.IsPositive() {
			continue
		}
		rows = append(rows, ArrearsRow{Tenant: tenants[i], Arrears: tenants[i].DueBalance})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Arrears.GreaterThan(rows[j].Arrears)
	})
	return rows
}

// UnitArrears is one row of a landlord's deduction breakdown.
type UnitArrears struct {
	PropertyID   PropertyID
	PropertyName string
	UnitName     string
	Occupied     bool
	TenantID     TenantID
	TenantName   string
	// Arrears is the occupant's outstanding balance. A resident in credit
	// contributes zero; their prepayment belongs to them, not the landlord.
	Arrears             ledger.Money
	VacantServiceCharge ledger.Money
}

// LandlordArrearsSummary is the net deduction from a landlord's collected
// rent remittance: uncollected tenant arrears plus the service charge the
// landlord owes on vacant handed-over units.
type LandlordArrearsSummary struct {
	LandlordID              LandlordID
	Units                   []UnitArrears
	TotalTenantArrears      ledger.Money
	VacantUnitServiceCharge ledger.Money
	TotalDeductions         ledger.Money
}

// LandlordArrearsBreakdown walks every landlord-owned unit in the given
// landlord's properties, in catalog order. Occupied units attribute the
// occupant's arrears; vacant handed-over units attribute their service
// charge; vacant units still awaiting handover contribute nothing.
func LandlordArrearsBreakdown(landlordID LandlordID, properties []Property, tenants []Tenant) LandlordArrearsSummary {
	ix := NewOccupancyIndex(properties, tenants)
	summary := LandlordArrearsSummary{LandlordID: landlordID}

	for pi := range properties {
		p := &properties[pi]
		if p.LandlordID != landlordID {
			continue
		}
		for ui := range p.Units {
			u := &p.Units[ui]
			if u.Ownership != OwnershipLandlord {
				continue
			}
			row := UnitArrears{PropertyID: p.ID, PropertyName: p.Name, UnitName: u.Name}
			if occ, ok := ix.OccupantOf(UnitKey{PropertyID: p.ID, UnitName: u.Name}); ok {
				row.Occupied = true
				row.TenantID = occ.ID
				row.TenantName = occ.Name
				row.Arrears = occ.DueBalance.OrZero()
				summary.TotalTenantArrears = summary.TotalTenantArrears.Add(row.Arrears)
			} else if u.HandedOver() {
				row.VacantServiceCharge = u.ServiceCharge
				summary.VacantUnitServiceCharge = summary.VacantUnitServiceCharge.Add(u.ServiceCharge)
			}
			summary.Units = append(summary.Units, row)
		}
	}

	summary.TotalDeductions = summary.TotalTenantArrears.Add(summary.VacantUnitServiceCharge)
	return summary
}
