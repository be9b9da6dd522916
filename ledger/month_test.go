package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/ledger"
)

func TestParseMonth_ValidForms(t *testing.T) {
	m, err := ledger.ParseMonth("2025-01")
	require.NoError(t, err)
	assert.Equal(t, 2025, m.Year)
	assert.Equal(t, time.January, m.Mon)
	assert.Equal(t, "2025-01", m.String())

	m, err = ledger.ParseMonth("1999-12")
	require.NoError(t, err)
	assert.Equal(t, "1999-12", m.String())
}

func TestParseMonth_MalformedForms(t *testing.T) {
	// Malformed periods must parse-fail cleanly; callers fall back to their
	// handover rule instead of guessing at a billing anchor.
	cases := []string{
		"",
		"2025",
		"2025-1",
		"2025-13",
		"2025-00",
		"2025/01",
		"2025-01-15",
		"jan 2025",
		" 2025-01",
		"2025-01 ",
	}
	for _, in := range cases {
		t.Run("in="+in, func(t *testing.T) {
			_, err := ledger.ParseMonth(in)
			assert.Error(t, err, "%q should not parse", in)
			assert.ErrorIs(t, err, ledger.ErrInvalidMonth)
		})
	}
}

func TestMonth_Arithmetic(t *testing.T) {
	jan := ledger.NewMonth(2025, time.January)

	assert.Equal(t, "2025-02", jan.Next().String())
	assert.Equal(t, "2025-12", jan.AddMonths(11).String())
	assert.Equal(t, "2026-01", jan.AddMonths(12).String(), "year rollover")
	assert.Equal(t, "2024-12", jan.AddMonths(-1).String(), "backwards across year")

	assert.Equal(t, 3, jan.MonthsUntil(ledger.NewMonth(2025, time.April)))
	assert.Equal(t, -1, jan.MonthsUntil(ledger.NewMonth(2024, time.December)))
}

func TestMonth_Comparisons(t *testing.T) {
	feb := ledger.NewMonth(2025, time.February)
	mar := ledger.NewMonth(2025, time.March)

	assert.True(t, feb.Before(mar))
	assert.True(t, mar.After(feb))
	assert.True(t, feb.Equal(ledger.MonthOf(time.Date(2025, time.February, 27, 13, 0, 0, 0, time.UTC))))
	assert.False(t, feb.IsZero())
	assert.True(t, ledger.Month{}.IsZero())
}

func TestMonth_Date_IsFirstOfMonth(t *testing.T) {
	d := ledger.NewMonth(2025, time.April).Date()
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), d)
}
