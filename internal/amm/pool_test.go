package amm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/pricing"
)

func TestPoolHealth(t *testing.T) {
	e := newEngine()

	tests := []struct {
		oi   float64
		want amm.Health
	}{
		{0, amm.Healthy},
		{500_000, amm.Healthy},
		{600_000, amm.Caution},
		{750_000, amm.Risky},
	}
	for _, tt := range tests {
		p := amm.PoolState{Liquidity: 1_000_000, OpenInterest: tt.oi}
		assert.Equal(t, tt.want, e.Health(p), "oi=%v", tt.oi)
	}

	assert.InDelta(t, 56.0, amm.PoolState{Liquidity: 1_000_000, OpenInterest: 560_000}.Utilization(), 1e-12)
	assert.Equal(t, 0.0, amm.PoolState{}.Utilization())

	// A pool with its own cap is graded against it.
	tight := amm.PoolState{Liquidity: 1_000_000, OpenInterest: 460_000, MaxOpenInterestRatio: 0.5}
	assert.Equal(t, amm.Risky, e.Health(tight))
}

func TestCheckUtilization(t *testing.T) {
	e := newEngine()
	p := amm.PoolState{Liquidity: 1_000_000, OpenInterest: 790_000}

	ok := e.CheckUtilization(p, 10_000)
	assert.True(t, ok.Allowed)
	assert.Equal(t, 800_000.0, ok.NewOpenInterest)
	assert.Empty(t, ok.Message)

	over := e.CheckUtilization(p, 10_001)
	assert.False(t, over.Allowed)
	assert.Equal(t, 800_000.0, over.MaxOpenInterest)
	assert.Contains(t, over.Message, "(80%)")
}

func TestCollateralRequired(t *testing.T) {
	assert.Equal(t, 1000.0, amm.CollateralRequired(pricing.Call, 100, 95, 10))
	assert.Equal(t, 950.0, amm.CollateralRequired(pricing.Put, 100, 95, 10))
}

func TestLPRewards(t *testing.T) {
	e := newEngine()

	r := e.LPRewards(10_000, 1_000_000, 50_000, 0)
	assert.Equal(t, "1.5", r.FeesEarned.String())
	assert.InDelta(t, 1.0, r.PoolShare, 1e-12)
	assert.InDelta(t, 5.475, r.EstimatedAPY, 1e-9)

	capped := e.LPRewards(1, 1, 1_000_000, 0.01)
	assert.Equal(t, 1000.0, capped.EstimatedAPY)

	empty := e.LPRewards(0, 1_000_000, 50_000, 0)
	assert.True(t, empty.FeesEarned.IsZero())
	assert.Equal(t, 0.0, empty.EstimatedAPY)
}

func TestTicket_SellPut(t *testing.T) {
	e := newEngine()

	req := amm.TicketRequest{
		QuoteRequest: amm.QuoteRequest{
			ContractParams: pricing.ContractParams{
				UnderlyingPrice:   100,
				StrikePrice:       95,
				DaysToExpiration:  30,
				ImpliedVolatility: 30,
				Type:              pricing.Put,
				RiskFreeRate:      0.05,
			},
			PoolLiquidity: 1_000_000,
			TotalVolume:   50_000,
			TradeSize:     10,
			Side:          amm.Sell,
		},
		OpenInterest: 100_000,
	}

	tk, err := e.Ticket(req)
	require.NoError(t, err)

	assert.InDelta(t, 1.285618, tk.Quote.Price, 1e-5)
	assert.InDelta(t, tk.Quote.Price*10, tk.TotalCost, 1e-12)
	assert.Equal(t, 950.0, tk.CollateralRequired)
	assert.True(t, tk.Utilization.Allowed)
	assert.Equal(t, amm.Healthy, tk.Health)
	assert.Less(t, tk.Greeks.Delta, 0.0)
	assert.True(t, tk.Slippage.IsAcceptable)
	assert.Less(t, tk.Impact.NewLiquidity, 1_000_000.0)

	req.OpenInterest = 799_990
	tk, err = e.Ticket(req)
	require.NoError(t, err)
	assert.False(t, tk.Utilization.Allowed)
	assert.Equal(t, amm.Risky, tk.Health)
}

func TestTicket_BuyNeedsNoCollateral(t *testing.T) {
	tk, err := newEngine().Ticket(amm.TicketRequest{QuoteRequest: btcCall(2, amm.Buy), OpenInterest: 1e9})
	require.NoError(t, err)
	assert.Equal(t, 0.0, tk.CollateralRequired)
	assert.True(t, tk.Utilization.Allowed)
	assert.InDelta(t, tk.Quote.Price*2, tk.TotalCost, 1e-9)
}

func TestTicket_Unavailable(t *testing.T) {
	req := amm.TicketRequest{QuoteRequest: btcCall(1, amm.Buy)}
	req.UnderlyingPrice = 0
	_, err := newEngine().Ticket(req)
	assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)
}

func TestChain(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	exp := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)

	c, err := newEngine().Chain(amm.ChainRequest{
		Underlying:        "spy",
		UnderlyingPrice:   503.2,
		Expiration:        exp,
		Now:               now,
		ImpliedVolatility: 20,
		PoolLiquidity:     1_000_000,
		TotalVolume:       50_000,
		Width:             2,
	})
	require.NoError(t, err)

	assert.Equal(t, 30, c.DaysToExpiration)
	require.Len(t, c.Rows, 5)

	strikes := make([]float64, 0, len(c.Rows))
	for _, r := range c.Rows {
		strikes = append(strikes, r.Strike)
		assert.LessOrEqual(t, r.Call.Bid, r.Call.Mid)
		assert.GreaterOrEqual(t, r.Call.Ask, r.Call.Mid)
		assert.LessOrEqual(t, r.Put.Bid, r.Put.Ask)
		assert.Greater(t, r.Call.Delta, 0.0)
		assert.Less(t, r.Put.Delta, 0.0)
	}
	// 503.2 rounds to the 505 strike; ladder of two each side.
	assert.Equal(t, []float64{495, 500, 505, 510, 515}, strikes)
	assert.Equal(t, "O:SPY260401C00505000", c.Rows[2].Call.Symbol)
	assert.Equal(t, "O:SPY260401P00505000", c.Rows[2].Put.Symbol)

	// Call prices fall and put prices rise with strike.
	assert.Greater(t, c.Rows[0].Call.Mid, c.Rows[4].Call.Mid)
	assert.Less(t, c.Rows[0].Put.Mid, c.Rows[4].Put.Mid)
}

func TestChain_ExplicitStrikesAreSorted(t *testing.T) {
	c, err := newEngine().Chain(amm.ChainRequest{
		Underlying:        "AAPL",
		UnderlyingPrice:   180,
		Expiration:        time.Now().Add(72 * time.Hour),
		ImpliedVolatility: 25,
		PoolLiquidity:     1_000_000,
		Strikes:           []float64{190, 170, 180},
	})
	require.NoError(t, err)
	require.Len(t, c.Rows, 3)
	assert.Equal(t, 170.0, c.Rows[0].Strike)
	assert.Equal(t, 190.0, c.Rows[2].Strike)
}

func TestChain_ListedStrikesWindowedAroundSpot(t *testing.T) {
	listed := []float64{120, 90, 95, 100, 105, 110, 115}

	tests := []struct {
		name  string
		spot  float64
		width int
		want  []float64
	}{
		{"nearest listed strike", 103, 1, []float64{100, 105, 110}},
		{"ties go to the higher strike", 102.5, 1, []float64{100, 105, 110}},
		{"window clipped at the low end", 80, 2, []float64{90, 95, 100}},
		{"window clipped at the high end", 500, 1, []float64{115, 120}},
		{"no width prices every strike", 103, 0, []float64{90, 95, 100, 105, 110, 115, 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newEngine().Chain(amm.ChainRequest{
				Underlying:        "AAPL",
				UnderlyingPrice:   tt.spot,
				Expiration:        time.Now().Add(72 * time.Hour),
				ImpliedVolatility: 25,
				PoolLiquidity:     1_000_000,
				Strikes:           listed,
				Width:             tt.width,
			})
			require.NoError(t, err)
			got := make([]float64, 0, len(c.Rows))
			for _, r := range c.Rows {
				got = append(got, r.Strike)
			}
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, 120.0, listed[0], "request strikes are not reordered")
}

func TestChain_Unavailable(t *testing.T) {
	_, err := newEngine().Chain(amm.ChainRequest{Underlying: "X", PoolLiquidity: 1e6})
	assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)

	_, err = newEngine().Chain(amm.ChainRequest{Underlying: "X", UnderlyingPrice: 10})
	assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)
}

func TestDefaultStrikeInterval(t *testing.T) {
	assert.Equal(t, 0.5, amm.DefaultStrikeInterval(12))
	assert.Equal(t, 1.0, amm.DefaultStrikeInterval(100))
	assert.Equal(t, 5.0, amm.DefaultStrikeInterval(503))
	assert.Equal(t, 50.0, amm.DefaultStrikeInterval(3000))
	assert.Equal(t, 1000.0, amm.DefaultStrikeInterval(50000))
}
