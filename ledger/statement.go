/*
statement.go - Chronological statement construction

PURPOSE:
  Turns an unordered pile of charge and payment rows into the statement a
  resident reads: sorted chronologically, one running balance per row, and
  a closing figure split into "owed" and "credit".

CRITICAL INVARIANTS:
  1. PREFIX SUM: for every row i,
     balance[i] = opening + sum(charges[0..i]) - sum(payments[0..i]).
  2. TIE-BREAK: a charge and a payment on the same date order
     charge-first, so a same-day payment settles that day's charge
     instead of preceding it.
  3. EXCLUSIVITY: the closing balance is one signed number; Due() and
     Credit() split it, so a resident can never simultaneously owe and
     hold credit.
  4. PURITY: input rows are not mutated; callers can replay with the same
     rows and get the identical statement.

SEE ALSO:
  - billing/engine.go: assembles the rows this file orders
*/
package ledger

import (
	"sort"
	"time"
)

// =============================================================================
// ENTRY - One row of the chronological statement
// =============================================================================

// Entry is a single statement row. Exactly one of Charge/Payment is set on
// rows built by this system; Balance is stamped by BuildStatement.
type Entry struct {
	Date        time.Time
	Description string
	Charge      Money
	Payment     Money
	Balance     Money
}

// IsPayment reports which side of the statement the row sits on. Charge
// rows always carry a positive charge; zero-charge schedules emit no rows.
func (e Entry) IsPayment() bool { return e.Payment.IsPositive() }

// =============================================================================
// STATEMENT - Ordered rows plus running-balance results
// =============================================================================

type Statement struct {
	Entries []Entry
	Opening Money
	Closing Money
}

// Due returns the amount owed: the closing balance when positive, else zero.
func (s Statement) Due() Money { return s.Closing.OrZero() }

// Credit returns the account credit: the negated closing balance when the
// resident has overpaid, else zero.
func (s Statement) Credit() Money { return s.Closing.Neg().OrZero() }

// BuildStatement sorts rows chronologically (charge before payment on equal
// dates, otherwise stable) and walks them accumulating the running balance.
// The input slice is left untouched.
func BuildStatement(rows []Entry, opening Money) Statement {
	entries := make([]Entry, len(rows))
	copy(entries, rows)

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return !entries[i].IsPayment() && entries[j].IsPayment()
	})

	balance := opening
	for i := range entries {
		balance = balance.Add(entries[i].Charge).Sub(entries[i].Payment)
		entries[i].Balance = balance
	}

	return Statement{Entries: entries, Opening: opening, Closing: balance}
}
