/*
projection.go - Forward balance outlook

PURPOSE:
  Answers "what will this resident owe in three months if nothing is
  paid?" - the arrears outlook a manager reads before deciding whether
  to escalate. The projection replays the current ledger, then extends
  the charge schedule month by month past the "as of" month, assuming
  no further payments.

  Like the ledger itself this is a pure computation: same inputs, same
  horizon, same outlook. It never writes anything.
*/
package billing

import (
	"github.com/warp/billing-engine/ledger"
)

// ProjectedMonth is one step of the outlook: the month's scheduled charge
// and the balance after it lands.
type ProjectedMonth struct {
	Month   ledger.Month
	Charge  ledger.Money
	Balance ledger.Money
}

// ProjectBalance computes the resident's balance as of the given month,
// then projects it forward `horizon` months of scheduled charges with no
// further payments. A non-positive horizon returns an empty outlook.
func ProjectBalance(t *Tenant, payments []Payment, properties []Property, asOf ledger.Month, horizon int) []ProjectedMonth {
	if t == nil || horizon <= 0 {
		return nil
	}

	ix := NewOccupancyIndex(properties, nil)
	var unit *Unit
	if ref, ok := ix.UnitFor(t); ok {
		unit = ref.Unit
	}
	sched := ScheduleFor(t, unit)

	// Moved-out residents accrue nothing further; their outlook is flat.
	frozen := t.Archived

	balance := GenerateLedgerWithIndex(t, payments, ix, asOf).Closing()

	out := make([]ProjectedMonth, 0, horizon)
	for i := 1; i <= horizon; i++ {
		m := asOf.AddMonths(i)
		charge := ledger.Money{}
		if !frozen && sched.Billable(m) {
			charge = sched.Amount
		}
		balance = balance.Add(charge)
		out = append(out, ProjectedMonth{Month: m, Charge: charge, Balance: balance})
	}
	return out
}
