package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-amm/internal/pricing"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 16, 0, 0, 0, time.UTC)
}

func TestMonthlyExpiries(t *testing.T) {
	got := pricing.MonthlyExpiries(day(2026, 1, 20), 3)
	assert.Equal(t, []time.Time{day(2026, 2, 20), day(2026, 3, 20), day(2026, 4, 17)}, got)

	// the expiry itself counts
	got = pricing.MonthlyExpiries(day(2026, 1, 16), 1)
	assert.Equal(t, []time.Time{day(2026, 1, 16)}, got)

	got = pricing.MonthlyExpiries(day(2026, 12, 30), 1)
	assert.Equal(t, day(2027, 1, 15), got[0])
}

func TestResolveExpiration(t *testing.T) {
	from := day(2026, 2, 2)
	expiries := []time.Time{day(2026, 4, 17), day(2026, 2, 20), day(2026, 3, 20)}

	tests := []struct {
		name   string
		offset int
		mode   pricing.MatchMode
		want   time.Time
	}{
		{"nearest below", 30, pricing.MatchNearest, day(2026, 2, 20)},
		{"higher", 30, pricing.MatchHigher, day(2026, 3, 20)},
		{"lower", 30, pricing.MatchLower, day(2026, 2, 20)},
		{"exact miss", 30, pricing.MatchExact, time.Time{}},
		{"exact hit", 46, pricing.MatchExact, day(2026, 3, 20)},
		{"lower skips exact", 46, pricing.MatchLower, day(2026, 2, 20)},
		{"higher skips exact", 46, pricing.MatchHigher, day(2026, 4, 17)},
		{"nearest past last", 200, pricing.MatchNearest, day(2026, 4, 17)},
		{"higher past last", 200, pricing.MatchHigher, time.Time{}},
		{"unknown mode is nearest", 40, "", day(2026, 3, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pricing.ResolveExpiration(from, tt.offset, expiries, tt.mode))
		})
	}
}

func TestParseMatchMode(t *testing.T) {
	m, err := pricing.ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, pricing.MatchNearest, m)

	m, err = pricing.ParseMatchMode("higher")
	require.NoError(t, err)
	assert.Equal(t, pricing.MatchHigher, m)

	_, err = pricing.ParseMatchMode("closest")
	assert.Error(t, err)
}
