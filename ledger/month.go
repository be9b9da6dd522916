package ledger

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Billing period at month granularity ("YYYY-MM")
// =============================================================================

// ErrInvalidMonth is returned when a period string is not a "YYYY-MM" form.
// Callers that read periods from stored lease data treat this as "absent"
// and fall through to their backup rule rather than failing the computation.
var ErrInvalidMonth = errors.New("invalid billing period: want YYYY-MM")

// Month identifies one billing period. The zero value is "no month".
type Month struct {
	Year int
	Mon  time.Month
}

// NewMonth constructs a normalized Month; out-of-range month values roll
// over the year the same way time.Date does.
func NewMonth(year int, mon time.Month) Month {
	t := time.Date(year, mon, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Mon: t.Month()}
}

// MonthOf returns the billing period containing t.
func MonthOf(t time.Time) Month { return Month{Year: t.Year(), Mon: t.Month()} }

// ParseMonth parses a strict "YYYY-MM" string. Anything else, including
// empty strings and stray whitespace, returns ErrInvalidMonth.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// Comparison
func (m Month) Before(other Month) bool { return m.ordinal() < other.ordinal() }
func (m Month) After(other Month) bool  { return m.ordinal() > other.ordinal() }
func (m Month) Equal(other Month) bool  { return m.ordinal() == other.ordinal() }
func (m Month) IsZero() bool            { return m.Year == 0 && m.Mon == 0 }

func (m Month) ordinal() int { return m.Year*12 + int(m.Mon) - 1 }

// Arithmetic
func (m Month) Next() Month           { return m.AddMonths(1) }
func (m Month) AddMonths(n int) Month { return NewMonth(m.Year, m.Mon+time.Month(n)) }

// MonthsUntil returns how many periods separate m from other (negative when
// other is earlier).
func (m Month) MonthsUntil(other Month) int { return other.ordinal() - m.ordinal() }

// Date returns the first day of the period, UTC. Charge entries are dated
// with this so they sort ahead of any mid-month payment.
func (m Month) Date() time.Time { return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC) }

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon)) }
