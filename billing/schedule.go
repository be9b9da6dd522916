/*
schedule.go - Monthly charge resolution and billing-start rules

PURPOSE:
  Decides what a resident is charged each month and which month the
  charges begin. The schedule then expands into one charge row per
  elapsed month, up to and including an explicit "as of" month.

BILLING START:
  1. A valid lease anchor ("YYYY-MM" last billed period) wins: billing
     resumes the month after it. Malformed anchors are treated as absent.
  2. Otherwise a handed-over unit starts from its handover date: handover
     on or before the 10th bills that same month; later handovers bill
     starting two months later, a grace period covering partial-month
     occupancy and onboarding lag.
  3. Otherwise no billing accrues.

  A start after the "as of" month produces an empty schedule - never a
  negative month count. A zero monthly amount produces an empty schedule
  no matter what the start rules say.
*/
package billing

import (
	"fmt"

	"github.com/warp/billing-engine/ledger"
)

// Handovers through this day of month bill from the handover month itself.
const handoverGraceDay = 10

// ChargeSchedule is a resolved monthly charge: how much, labeled how, and
// from which month. A zero Start means billing never begins.
type ChargeSchedule struct {
	Amount ledger.Money
	Label  string
	Start  ledger.Month
}

// ScheduleFor resolves a tenant's charge schedule against their unit.
// A nil unit (unresolved reference) yields a zero-amount schedule.
func ScheduleFor(t *Tenant, u *Unit) ChargeSchedule {
	if t == nil {
		return ChargeSchedule{}
	}
	return ChargeSchedule{
		Amount: MonthlyCharge(t, u),
		Label:  t.ResidentType.ChargeLabel(),
		Start:  BillingStart(t, u),
	}
}

// MonthlyCharge resolves the amount a resident is billed each month: rent
// for tenants, service charge for homeowners. The unit is authoritative;
// the lease's rent figure is the recorded agreement, not the charge basis.
func MonthlyCharge(t *Tenant, u *Unit) ledger.Money {
	if u == nil {
		return ledger.Money{}
	}
	if t.ResidentType == ResidentHomeowner {
		return u.ServiceCharge
	}
	return u.RentAmount
}

// BillingStart resolves the first billable month. The zero Month means no
// billing accrues (no anchor and the unit is not handed over).
func BillingStart(t *Tenant, u *Unit) ledger.Month {
	if t.Lease.LastBilledPeriod != "" {
		if anchor, err := ledger.ParseMonth(t.Lease.LastBilledPeriod); err == nil {
			return anchor.Next()
		}
	}
	if u == nil || !u.HandedOver() {
		return ledger.Month{}
	}
	handover := ledger.MonthOf(*u.HandoverDate)
	if u.HandoverDate.Day() <= handoverGraceDay {
		return handover
	}
	return handover.AddMonths(2)
}

// Billable reports whether the schedule charges in the given month.
func (s ChargeSchedule) Billable(m ledger.Month) bool {
	return s.Amount.IsPositive() && !s.Start.IsZero() && !m.Before(s.Start)
}

// Charges expands the schedule into one charge row per month from Start
// through asOf inclusive, each dated the first of its month and described
// by the billing period.
func (s ChargeSchedule) Charges(asOf ledger.Month) []ledger.Entry {
	if !s.Billable(asOf) {
		return nil
	}
	rows := make([]ledger.Entry, 0, s.Start.MonthsUntil(asOf)+1)
	for m := s.Start; !m.After(asOf); m = m.Next() {
		rows = append(rows, ledger.Entry{
			Date:        m.Date(),
			Description: fmt.Sprintf("%s for %s", s.Label, m),
			Charge:      s.Amount,
		})
	}
	return rows
}
