/*
engine.go - Ledger generation (the heart of the package)

PURPOSE:
  Produces a resident's chronological statement from first principles:
  expand the charge schedule month by month, merge the resident's Paid
  payments, order everything, and walk the running balance. The closing
  figure splits into finalDueBalance (owed) and finalAccountBalance
  (credit), never both.

CRITICAL INVARIANTS:
  1. PURE: No clock, no I/O. The "as of" month is an explicit argument,
     so a test can pin it and replay the identical computation.
  2. UNFILTERED INPUT: The payment slice may contain other residents'
     rows and Pending rows; the engine filters here, in one place.
  3. GRACEFUL DEGRADATION: An unresolvable unit reference means a zero
     monthly charge, not an error. Historical payments still show.
  4. FROZEN ON MOVE-OUT: An archived resident's charges stop at the
     archive month; later payments still reduce the frozen debt.

SEE ALSO:
  - ledger/statement.go: Ordering and running-balance rules
  - schedule.go: Charge amount and billing-start resolution
*/
package billing

import (
	"github.com/warp/billing-engine/ledger"
)

// LedgerResult is the outcome of generating one resident's ledger.
type LedgerResult struct {
	Ledger              []ledger.Entry
	FinalDueBalance     ledger.Money
	FinalAccountBalance ledger.Money
}

// Closing reconstructs the signed closing balance the due/credit split came
// from. This is the figure the dueBalance cache materializes.
func (r LedgerResult) Closing() ledger.Money {
	return r.FinalDueBalance.Sub(r.FinalAccountBalance)
}

// GenerateLedger computes a resident's statement against the property
// catalog, as of the given billing month. Inputs are never mutated;
// identical inputs produce the identical result.
func GenerateLedger(t *Tenant, payments []Payment, properties []Property, asOf ledger.Month) LedgerResult {
	return GenerateLedgerWithIndex(t, payments, NewOccupancyIndex(properties, nil), asOf)
}

// GenerateLedgerWithIndex is GenerateLedger against a prebuilt occupancy
// index, for batch callers that recompute many residents in one pass.
func GenerateLedgerWithIndex(t *Tenant, payments []Payment, ix *OccupancyIndex, asOf ledger.Month) LedgerResult {
	if t == nil {
		return LedgerResult{}
	}

	// Charges stop accruing once the resident moves out.
	if t.Archived && t.ArchivedAt != nil {
		if end := ledger.MonthOf(*t.ArchivedAt); end.Before(asOf) {
			asOf = end
		}
	}

	var unit *Unit
	if ref, ok := ix.UnitFor(t); ok {
		unit = ref.Unit
	}

	rows := ScheduleFor(t, unit).Charges(asOf)
	for i := range payments {
		p := &payments[i]
		if p.TenantID != t.ID || !p.IsPaid() {
			continue
		}
		rows = append(rows, p.Entry())
	}

	st := ledger.BuildStatement(rows, ledger.Money{})
	return LedgerResult{
		Ledger:              st.Entries,
		FinalDueBalance:     st.Due(),
		FinalAccountBalance: st.Credit(),
	}
}
