package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-amm/internal/pricing"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func position(id string, t pricing.OptionType, strike, premium string, contracts int, exp time.Time) Position {
	return Position{ID: id, Symbol: "sBTC", OptionType: t, Strike: d(strike), PremiumPaid: d(premium), Contracts: contracts, Expiration: exp}
}

func TestDaysToExpiration(t *testing.T) {
	assert.Equal(t, 30, DaysToExpiration(now.AddDate(0, 0, 30), now))
	assert.Equal(t, 2, DaysToExpiration(now.Add(71*time.Hour), now))
	assert.Equal(t, 1, DaysToExpiration(now.Add(2*time.Hour), now))
	assert.Equal(t, 1, DaysToExpiration(now.Add(-48*time.Hour), now))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		until time.Duration
		want  Urgency
	}{
		{-time.Minute, UrgencyExpired},
		{12 * time.Hour, UrgencyExpired},
		{36 * time.Hour, UrgencyCritical},
		{72 * time.Hour, UrgencyWarning},
		{4 * 24 * time.Hour, UrgencyNormal},
	}
	for _, tt := range tests {
		p := Position{Expiration: now.Add(tt.until)}
		assert.Equal(t, tt.want, Classify(p, now), "until %s", tt.until)
	}
}

func TestExpiringWithinAndExpired(t *testing.T) {
	positions := []Position{
		{ID: "late", Expiration: now.Add(6 * 24 * time.Hour)},
		{ID: "soon", Expiration: now.Add(2 * time.Hour)},
		{ID: "far", Expiration: now.Add(30 * 24 * time.Hour)},
		{ID: "past", Expiration: now.Add(-time.Hour)},
		{ID: "settled", Expiration: now.Add(-time.Hour), Status: StatusExpired},
	}

	soon := ExpiringWithin(positions, now, 7*24*time.Hour)
	require.Len(t, soon, 2)
	assert.Equal(t, "soon", soon[0].ID)
	assert.Equal(t, "late", soon[1].ID)

	past := Expired(positions, now)
	require.Len(t, past, 1)
	assert.Equal(t, "past", past[0].ID)
}

func TestSettle(t *testing.T) {
	exp := now.Add(-time.Hour)

	tests := []struct {
		name      string
		pos       Position
		price     string
		value     string
		pnl       string
		exercised bool
	}{
		{"call in the money", position("c1", pricing.Call, "65000", "1200.50", 2, exp), "68420", "6840", "4439", true},
		{"call worthless", position("c2", pricing.Call, "70000", "800", 1, exp), "68420", "0", "-800", false},
		{"put in the money", position("p1", pricing.Put, "2.50", "0.12", 100, exp), "2.15", "35", "23", true},
		{"put at the strike", position("p2", pricing.Put, "2.15", "0.10", 0, exp), "2.15", "0", "-0.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Settle(tt.pos, d(tt.price), now)
			require.NoError(t, err)

			assert.True(t, d(tt.value).Equal(rec.SettlementValue), "value %s", rec.SettlementValue)
			assert.True(t, d(tt.pnl).Equal(rec.FinalPnL), "pnl %s", rec.FinalPnL)
			assert.Equal(t, tt.exercised, rec.IsExercised)
			assert.Equal(t, tt.pos.ID, rec.PositionID)
			assert.Equal(t, now, rec.ProcessedAt)
			_, err = uuid.Parse(rec.ID)
			assert.NoError(t, err)
		})
	}
}

func TestSettle_Errors(t *testing.T) {
	live := position("x", pricing.Call, "100", "1", 1, now.Add(time.Hour))
	_, err := Settle(live, d("120"), now)
	assert.ErrorIs(t, err, ErrNotExpired)

	done := position("x", pricing.Call, "100", "1", 1, now.Add(-time.Hour))
	done.Status = StatusExpired
	_, err = Settle(done, d("120"), now)
	assert.ErrorIs(t, err, ErrAlreadySettled)

	bad := position("x", "straddle", "100", "1", 1, now.Add(-time.Hour))
	_, err = Settle(bad, d("120"), now)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = Settle(position("x", pricing.Put, "100", "1", 1, now.Add(-time.Hour)), d("-1"), now)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestSettle_UniqueIDs(t *testing.T) {
	p := position("x", pricing.Call, "100", "1", 1, now.Add(-time.Hour))
	a, err := Settle(p, d("110"), now)
	require.NoError(t, err)
	b, err := Settle(p, d("110"), now)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSummarize(t *testing.T) {
	exp := now.Add(-time.Hour)
	var records []Record
	for _, p := range []Position{
		position("a", pricing.Call, "65000", "1200.50", 2, exp),
		position("b", pricing.Call, "70000", "800", 1, exp),
		position("c", pricing.Put, "2.50", "0.12", 100, exp),
	} {
		price := d("68420")
		if p.OptionType == pricing.Put {
			price = d("2.15")
		}
		rec, err := Settle(p, price, now)
		require.NoError(t, err)
		records = append(records, rec)
	}

	s := Summarize(records)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Exercised)
	assert.Equal(t, 1, s.ExpiredWorthless)
	assert.True(t, d("6875").Equal(s.TotalValue), s.TotalValue.String())
	assert.True(t, d("3213").Equal(s.TotalPremium), s.TotalPremium.String())
	assert.True(t, d("3662").Equal(s.TotalPnL), s.TotalPnL.String())

	empty := Summarize(nil)
	assert.True(t, empty.TotalPnL.IsZero())
}
