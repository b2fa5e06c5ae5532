package amm_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/pricing"
	"github.com/contactkeval/option-amm/internal/testutil"
)

func newEngine() *amm.Engine {
	return amm.NewEngine(amm.DefaultConfig())
}

func btcCall(size float64, side amm.Side) amm.QuoteRequest {
	return amm.QuoteRequest{
		ContractParams: pricing.ContractParams{
			UnderlyingPrice:   50000,
			StrikePrice:       55000,
			DaysToExpiration:  30,
			ImpliedVolatility: 45,
			Type:              pricing.Call,
			RiskFreeRate:      0.05,
		},
		PoolLiquidity: 1_000_000,
		TotalVolume:   50_000,
		TradeSize:     size,
		Side:          side,
	}
}

func TestDynamicSpread(t *testing.T) {
	e := newEngine()

	tests := []struct {
		name      string
		liquidity float64
		volume    float64
		iv        float64
		days      int
		want      float64
	}{
		// Volume 50k sits below the 100k reference, so the volume factor clamps at 1.5.
		{"reference pool", 1_000_000, 50_000, 45, 30, 0.03405},
		{"deep calm pool hits floor", 2_000_000, 200_000, 0, 60, 0.01},
		{"thin pool near expiry hits cap", 1, 0, 1000, 0, 0.15},
		{"huge everything hits floor", 1e12, 1e12, 0, 10000, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.DynamicSpread(tt.liquidity, tt.volume, tt.iv, tt.days), 1e-12)
		})
	}
}

func TestDynamicSpread_AlwaysInBand(t *testing.T) {
	e := newEngine()
	for _, liq := range []float64{-5, 0, 1e-9, 1, 1e3, 1e6, 1e15} {
		for _, vol := range []float64{0, 1, 1e5, 1e12} {
			for _, iv := range []float64{0, 45, 300, 1000} {
				for _, days := range []int{-3, 0, 1, 30, 10000} {
					s := e.DynamicSpread(liq, vol, iv, days)
					assert.GreaterOrEqual(t, s, 0.01)
					assert.LessOrEqual(t, s, 0.15)
				}
			}
		}
	}
}

func TestPriceImpactMultiplier(t *testing.T) {
	e := newEngine()

	t.Run("neutral on missing inputs", func(t *testing.T) {
		assert.Equal(t, 1.0, e.PriceImpactMultiplier(0, 1e6, 10, amm.Buy))
		assert.Equal(t, 1.0, e.PriceImpactMultiplier(1, 0, 10, amm.Buy))
		assert.Equal(t, 1.0, e.PriceImpactMultiplier(1, 1e6, 0, amm.Sell))
		assert.Equal(t, 1.0, e.PriceImpactMultiplier(-1, 1e6, 10, amm.Sell))
	})

	t.Run("fee floor plus power law", func(t *testing.T) {
		// ratio 0.01 -> 0.003 + 0.01^1.5 * 0.1 = 0.0031
		assert.InDelta(t, 1.0031, e.PriceImpactMultiplier(1000, 1e6, 10, amm.Buy), 1e-12)
		assert.InDelta(t, 0.9969, e.PriceImpactMultiplier(1000, 1e6, 10, amm.Sell), 1e-12)
	})

	t.Run("super-linear in size", func(t *testing.T) {
		small := e.PriceImpactMultiplier(100, 1e6, 10, amm.Buy) - 1 - 0.003
		big := e.PriceImpactMultiplier(1000, 1e6, 10, amm.Buy) - 1 - 0.003
		assert.Greater(t, big, 10*small)
	})
}

func TestQuote_ReferenceScenario(t *testing.T) {
	e := newEngine()

	q, err := e.Quote(btcCall(1, amm.Buy))
	require.NoError(t, err)

	assert.InDelta(t, 951.521332, q.TheoreticalPrice, 1e-3)
	assert.Equal(t, q.TheoreticalPrice, q.MidPrice)
	assert.InDelta(t, 3.405, q.Spread, 1e-9)
	assert.InDelta(t, 0.300294, q.PriceImpact, 1e-5)
	assert.InDelta(t, 970.626986, q.Price, 1e-3)
	assert.Equal(t, q.Price, q.AskPrice)
	assert.InDelta(t, 935.321681, q.BidPrice, 1e-3)

	sell, err := e.Quote(btcCall(1, amm.Sell))
	require.NoError(t, err)
	assert.InDelta(t, 932.512971, sell.Price, 1e-3)
	assert.Equal(t, sell.Price, sell.BidPrice)
	assert.InDelta(t, 967.720983, sell.AskPrice, 1e-3)
	assert.InDelta(t, q.PriceImpact, sell.PriceImpact, 1e-12)
}

func TestQuote_SidesNeverImproveOnMid(t *testing.T) {
	e := newEngine()
	for _, size := range []float64{0, 1, 10, 1000, 1e6} {
		for _, typ := range []pricing.OptionType{pricing.Call, pricing.Put} {
			for _, K := range []float64{40000, 50000, 60000} {
				req := btcCall(size, amm.Buy)
				req.Type = typ
				req.StrikePrice = K

				buy, err := e.Quote(req)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, buy.Price, buy.MidPrice)
				assert.GreaterOrEqual(t, buy.PriceImpact, 0.0)

				req.Side = amm.Sell
				sell, err := e.Quote(req)
				require.NoError(t, err)
				assert.LessOrEqual(t, sell.Price, sell.MidPrice)
				assert.GreaterOrEqual(t, sell.Price, 0.0)
				assert.GreaterOrEqual(t, sell.PriceImpact, 0.0)

				assert.LessOrEqual(t, sell.BidPrice, sell.AskPrice)
			}
		}
	}
}

func TestQuote_ZeroSizeIsPlainSpread(t *testing.T) {
	e := newEngine()
	req := amm.QuoteRequest{
		ContractParams: testutil.ATMCall(),
		PoolLiquidity:  1_000_000,
		TotalVolume:    50_000,
	}

	q, err := e.Quote(req)
	require.NoError(t, err)
	assert.Equal(t, amm.Buy, q.Side)
	assert.Equal(t, 0.0, q.PriceImpact)
	assert.InDelta(t, 3.630762, q.MidPrice, 1e-5)
	assert.InDelta(t, q.MidPrice*(1+q.Spread/200), q.AskPrice, 1e-12)
	assert.InDelta(t, q.MidPrice*(1-q.Spread/200), q.BidPrice, 1e-12)
}

func TestQuote_Unavailable(t *testing.T) {
	e := newEngine()

	tests := []struct {
		name   string
		mutate func(*amm.QuoteRequest)
		field  string
	}{
		{"zero underlying", func(r *amm.QuoteRequest) { r.UnderlyingPrice = 0 }, "underlying_price"},
		{"negative strike", func(r *amm.QuoteRequest) { r.StrikePrice = -1 }, "strike_price"},
		{"empty pool", func(r *amm.QuoteRequest) { r.PoolLiquidity = 0 }, "pool_liquidity"},
		{"negative size", func(r *amm.QuoteRequest) { r.TradeSize = -2 }, "trade_size"},
		{"bad side", func(r *amm.QuoteRequest) { r.Side = "hold" }, "side"},
		{"bad type", func(r *amm.QuoteRequest) { r.Type = "future" }, "option_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := btcCall(1, amm.Buy)
			tt.mutate(&req)

			q, err := e.Quote(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)

			var ie *amm.InputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.field, ie.Field)
			assert.Equal(t, amm.Quote{}, q)
		})
	}
}

func TestQuote_ZeroRateIsPricedAtZero(t *testing.T) {
	req := amm.QuoteRequest{ContractParams: testutil.ATMCall(), PoolLiquidity: 1e6, TotalVolume: 5e4}
	req.RiskFreeRate = 0

	q, err := newEngine().Quote(req)
	require.NoError(t, err)

	p := testutil.ATMCall()
	p.RiskFreeRate = 0
	assert.InDelta(t, pricing.Price(p), q.TheoreticalPrice, 1e-12)
	assert.Less(t, q.TheoreticalPrice, pricing.Price(testutil.ATMCall()))
}

func TestParseSide(t *testing.T) {
	s, err := amm.ParseSide(" SELL ")
	require.NoError(t, err)
	assert.Equal(t, amm.Sell, s)

	_, err = amm.ParseSide("short")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, amm.DefaultConfig().Validate())

	cfg := amm.DefaultConfig()
	cfg.MinSpread, cfg.MaxSpread = 0.2, 0.1
	assert.ErrorIs(t, cfg.Validate(), amm.ErrInvalidConfig)

	cfg = amm.DefaultConfig()
	cfg.ImpactExponent = 0
	assert.ErrorIs(t, cfg.Validate(), amm.ErrInvalidConfig)

	cfg = amm.DefaultConfig()
	cfg.MaxOpenInterestRatio = 1.5
	assert.ErrorIs(t, cfg.Validate(), amm.ErrInvalidConfig)

	cfg = amm.DefaultConfig()
	cfg.CollateralizationRatio = 0.5
	assert.ErrorIs(t, cfg.Validate(), amm.ErrInvalidConfig)
}

func TestDynamicSpread_NaNVolatilityIsWidest(t *testing.T) {
	assert.Equal(t, 0.15, newEngine().DynamicSpread(1e6, 5e4, math.NaN(), 30))
}

func TestCheckContract(t *testing.T) {
	require.NoError(t, amm.CheckContract(testutil.ATMCall()))

	tests := []struct {
		field string
		mut   func(*pricing.ContractParams)
	}{
		{"underlying_price", func(p *pricing.ContractParams) { p.UnderlyingPrice = 0 }},
		{"strike_price", func(p *pricing.ContractParams) { p.StrikePrice = -1 }},
		{"option_type", func(p *pricing.ContractParams) { p.Type = "stock" }},
		{"implied_volatility", func(p *pricing.ContractParams) { p.ImpliedVolatility = math.NaN() }},
	}
	for _, tt := range tests {
		p := testutil.ATMCall()
		tt.mut(&p)
		err := amm.CheckContract(p)
		var in *amm.InputError
		require.ErrorAs(t, err, &in)
		assert.Equal(t, tt.field, in.Field)
		assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)
	}
}
