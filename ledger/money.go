/*
Package ledger provides the pure statement-building core.

PURPOSE:
  This package contains the mechanism shared by every billing computation:
  exact monetary amounts, month-granular billing periods, and the algorithm
  that turns a pile of dated charge and payment rows into a chronological
  statement with a running balance.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: An exact monetary amount (no float drift across entries)

DESIGN PRINCIPLES:
  1. Purity: Nothing in this package reads the clock or does I/O. The
     "current month" is always an explicit argument upstream.
  2. Precision: Uses decimal.Decimal so a thousand accumulated entries
     still sum to the exact figure the source data implies.
  3. Value types: Small immutable values with one-line methods.

USAGE:
  rent := ledger.NewMoneyFromInt(20000)
  owed := rent.Add(rent).Sub(payment)

SEE ALSO:
  - month.go: Month, the "YYYY-MM" billing period
  - statement.go: Entry ordering and running-balance construction
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact monetary amount
// =============================================================================

// Money is an amount in whole currency units (the smallest unit the source
// data uses). Arithmetic is exact; the float boundary exists only for JSON.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money      { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money { return Money{Value: decimal.NewFromInt(value)} }

// MustMoney parses s, falling back to zero on malformed input. Used when
// loading amounts that were written by this system and cannot be malformed
// short of corruption.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}
	}
	return Money{Value: d}
}

func (m Money) Add(b Money) Money        { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money        { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Neg() Money               { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) Equal(b Money) bool       { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool    { return m.Value.LessThan(b.Value) }

// OrZero clamps negative amounts to zero. Due and credit figures are both
// non-negative by definition; the sign lives in the running balance.
func (m Money) OrZero() Money {
	if m.IsNegative() {
		return Money{}
	}
	return m
}

// Float64 is the JSON boundary. Whole-unit amounts at ledger magnitudes are
// exactly representable, so no precision is lost on the wire.
func (m Money) Float64() float64 { f, _ := m.Value.Float64(); return f }

func (m Money) String() string { return m.Value.String() }
