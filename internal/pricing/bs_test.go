package pricing_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/contactkeval/option-amm/internal/pricing"
	"github.com/contactkeval/option-amm/internal/testutil"
)

func TestPrice_ATMReference(t *testing.T) {
	call := pricing.Price(testutil.ATMCall())
	put := pricing.Price(testutil.ATMPut())

	assert.InDelta(t, 3.630762, call, 1e-5)
	assert.InDelta(t, 3.220926, put, 1e-5)
}

func TestPrice_PutCallParity(t *testing.T) {
	cases := []struct {
		S, K  float64
		days  int
		iv, r float64
	}{
		{100, 100, 30, 30, 0.05},
		{100, 90, 45, 25, 0.03},
		{100, 120, 180, 60, 0.05},
		{50000, 55000, 30, 45, 0.05},
		{12, 10, 365, 80, 0.01},
		{100, 100, 365, 20, 0},
		{100, 90, 60, 35, 0},
	}

	for _, c := range cases {
		params := pricing.ContractParams{
			UnderlyingPrice:   c.S,
			StrikePrice:       c.K,
			DaysToExpiration:  c.days,
			ImpliedVolatility: c.iv,
			RiskFreeRate:      c.r,
		}
		params.Type = pricing.Call
		call := pricing.Price(params)
		params.Type = pricing.Put
		put := pricing.Price(params)

		T := pricing.DaysToYears(c.days)
		rhs := c.S - c.K*math.Exp(-c.r*T)

		// A&S 7.1.26 errs by up to 1.5e-7 per CDF evaluation.
		tol := 1e-6 * math.Max(1, c.S)
		assert.InDelta(t, rhs, call-put, tol, "S=%v K=%v days=%d", c.S, c.K, c.days)
	}
}

func TestPrice_ZeroRateIsNotDefaulted(t *testing.T) {
	p := pricing.ContractParams{
		UnderlyingPrice: 100, StrikePrice: 100, DaysToExpiration: 365,
		ImpliedVolatility: 20, Type: pricing.Call,
	}
	call := pricing.Price(p)
	// S*(2N(sigma*sqrt(T)/2)-1) with T = 365/365.25.
	assert.InDelta(t, 7.96285, call, 1e-4)

	p.Type = pricing.Put
	assert.InDelta(t, call, pricing.Price(p), 1e-6)

	p.RiskFreeRate = pricing.DefaultRiskFreeRate
	p.Type = pricing.Call
	assert.Greater(t, pricing.Price(p), call+1)
}

func TestPrice_IntrinsicFallback(t *testing.T) {
	t.Run("zero volatility", func(t *testing.T) {
		p := testutil.ATMCall()
		p.UnderlyingPrice = 110
		p.ImpliedVolatility = 0
		assert.Equal(t, 10.0, pricing.Price(p))

		p.Type = pricing.Put
		assert.Equal(t, 0.0, pricing.Price(p))
	})

	t.Run("zero time", func(t *testing.T) {
		assert.Equal(t, 5.0, pricing.BlackScholesPrice(false, 95, 100, 0, 0.05, 0.3))
		assert.Equal(t, 0.0, pricing.BlackScholesPrice(true, 95, 100, 0, 0.05, 0.3))
	})

	t.Run("converges as time shrinks", func(t *testing.T) {
		prev := math.Inf(1)
		for _, T := range []float64{0.1, 0.01, 1e-4, 1e-6} {
			gap := pricing.BlackScholesPrice(true, 120, 100, T, 0.05, 0.3) - 20
			assert.Less(t, math.Abs(gap), prev)
			prev = math.Abs(gap)
		}
		assert.Less(t, prev, 1e-3)
	})

	t.Run("non-positive days are one day", func(t *testing.T) {
		p := testutil.ATMCall()
		p.DaysToExpiration = 1
		oneDay := pricing.Price(p)
		p.DaysToExpiration = 0
		assert.Equal(t, oneDay, pricing.Price(p))
		p.DaysToExpiration = -7
		assert.Equal(t, oneDay, pricing.Price(p))
	})
}

func TestComputeGreeks_Reference(t *testing.T) {
	call := pricing.ComputeGreeks(testutil.ATMCall())
	assert.InDelta(t, 0.536156, call.Delta, 1e-6)
	assert.InDelta(t, 0.046210, call.Gamma, 1e-6)
	assert.InDelta(t, -0.063818, call.Theta, 1e-6)
	assert.InDelta(t, 0.113864, call.Vega, 1e-6)
	assert.InDelta(t, 0.041055, call.Rho, 1e-6)

	put := pricing.ComputeGreeks(testutil.ATMPut())
	assert.InDelta(t, -0.463844, put.Delta, 1e-6)
	assert.InDelta(t, call.Gamma, put.Gamma, 1e-12)
	assert.InDelta(t, -0.050176, put.Theta, 1e-6)
	assert.InDelta(t, call.Vega, put.Vega, 1e-12)
	assert.InDelta(t, -0.040744, put.Rho, 1e-6)
}

func TestComputeGreeks_Bounds(t *testing.T) {
	for _, S := range []float64{50, 90, 100, 110, 200} {
		for _, days := range []int{1, 7, 30, 365} {
			for _, iv := range []float64{5, 30, 120} {
				p := pricing.ContractParams{UnderlyingPrice: S, StrikePrice: 100, DaysToExpiration: days, ImpliedVolatility: iv}

				p.Type = pricing.Call
				c := pricing.ComputeGreeks(p)
				assert.GreaterOrEqual(t, c.Delta, 0.0)
				assert.LessOrEqual(t, c.Delta, 1.0)
				assert.GreaterOrEqual(t, c.Gamma, 0.0)
				assert.GreaterOrEqual(t, c.Vega, 0.0)

				p.Type = pricing.Put
				g := pricing.ComputeGreeks(p)
				assert.GreaterOrEqual(t, g.Delta, -1.0)
				assert.LessOrEqual(t, g.Delta, 0.0)
				assert.GreaterOrEqual(t, g.Gamma, 0.0)
				assert.GreaterOrEqual(t, g.Vega, 0.0)
			}
		}
	}
}

func TestComputeGreeks_DegenerateAreZero(t *testing.T) {
	p := testutil.ATMCall()
	p.ImpliedVolatility = 0
	assert.Equal(t, pricing.Greeks{}, pricing.ComputeGreeks(p))
	assert.Equal(t, pricing.Greeks{}, pricing.BlackScholesGreeks(false, 100, 100, 0, 0.05, 0.3))
}

func TestImpliedVolatility_RoundTrip(t *testing.T) {
	for _, typ := range []pricing.OptionType{pricing.Call, pricing.Put} {
		for _, K := range []float64{95, 100, 105} {
			for _, sigma := range []float64{0.1, 0.2, 0.5, 1.0, 2.0} {
				for _, days := range []int{19, 90, 365, 730} {
					p := pricing.ContractParams{
						UnderlyingPrice:   100,
						StrikePrice:       K,
						DaysToExpiration:  days,
						ImpliedVolatility: sigma * 100,
						Type:              typ,
						RiskFreeRate:      0.05,
					}
					market := pricing.Price(p)

					p.ImpliedVolatility = 0
					res := pricing.SolveImpliedVolatility(market, p)

					assert.True(t, res.Converged, "%s K=%v sigma=%v days=%d", typ, K, sigma, days)
					assert.InDelta(t, sigma, res.Sigma, 1e-3, "%s K=%v sigma=%v days=%d", typ, K, sigma, days)
					assert.Equal(t, res.Sigma, pricing.ImpliedVolatility(market, p))
				}
			}
		}
	}
}

func TestImpliedVolatility_ClampedAndBestEffort(t *testing.T) {
	p := testutil.ATMCall()

	// A price above the underlying cannot be matched; the search pins at the cap.
	res := pricing.SolveImpliedVolatility(150, p)
	assert.False(t, res.Converged)
	assert.LessOrEqual(t, res.Sigma, pricing.IVMaxVolatility)
	assert.GreaterOrEqual(t, res.Sigma, pricing.IVMinVolatility)
	assert.LessOrEqual(t, res.Iterations, pricing.IVMaxIterations)

	// A price below intrinsic drives sigma to the floor.
	p.UnderlyingPrice = 120
	res = pricing.SolveImpliedVolatility(1, p)
	assert.False(t, res.Converged)
	assert.GreaterOrEqual(t, res.Sigma, pricing.IVMinVolatility)
}

func TestNormCDF_MatchesReference(t *testing.T) {
	ref := distuv.UnitNormal
	for x := -6.0; x <= 6.0; x += 0.05 {
		assert.InDelta(t, ref.CDF(x), pricing.NormCDF(x), 1.5e-7, "x=%v", x)
		assert.InDelta(t, ref.Prob(x), pricing.NormPDF(x), 1e-12, "x=%v", x)
	}
	assert.InDelta(t, 0.5, pricing.NormCDF(0), 1e-8)
	assert.InDelta(t, 1.0, pricing.NormCDF(3)+pricing.NormCDF(-3), 1e-12)
}

func TestNormInv(t *testing.T) {
	assert.InDelta(t, 1.959964, pricing.NormInv(0.975), 1e-6)
	assert.InDelta(t, -1.959964, pricing.NormInv(0.025), 1e-6)
	assert.InDelta(t, 0.0, pricing.NormInv(0.5), 1e-12)

	for _, p := range []float64{0.001, 0.01, 0.2, 0.7, 0.99, 0.999} {
		assert.InDelta(t, distuv.UnitNormal.Quantile(p), pricing.NormInv(p), 1e-8, "p=%v", p)
	}

	assert.Panics(t, func() { pricing.NormInv(0) })
	assert.Panics(t, func() { pricing.NormInv(1) })
}

func TestStrikeFromDelta_InvertsDelta(t *testing.T) {
	const S, r, sigma, T = 100.0, 0.02, 0.25, 0.25

	K, err := pricing.StrikeFromDelta(S, 0.3, r, 0, sigma, T, true)
	require.NoError(t, err)
	assert.Greater(t, K, S)

	// The exact CDF is inverted, so compare against the reference distribution.
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	assert.InDelta(t, 0.3, distuv.UnitNormal.CDF(d1), 1e-8)

	Kp, err := pricing.StrikeFromDelta(S, 0.3, r, 0, sigma, T, false)
	require.NoError(t, err)
	assert.Less(t, Kp, S)

	_, err = pricing.StrikeFromDelta(S, 1.2, r, 0, sigma, T, true)
	assert.ErrorIs(t, err, pricing.ErrDeltaOutOfRange)
	_, err = pricing.StrikeFromDelta(S, 0.3, r, 0, 0, T, true)
	assert.ErrorIs(t, err, pricing.ErrDeltaOutOfRange)
}

func TestContractParams_Validate(t *testing.T) {
	p := testutil.ATMCall()
	require.NoError(t, p.Validate())

	p.StrikePrice = 0
	assert.ErrorIs(t, p.Validate(), pricing.ErrNonPositiveStrike)

	p = testutil.ATMCall()
	p.UnderlyingPrice = -1
	assert.ErrorIs(t, p.Validate(), pricing.ErrNonPositivePrice)

	p = testutil.ATMCall()
	p.Type = "straddle"
	assert.ErrorIs(t, p.Validate(), pricing.ErrInvalidOptionType)
}

func TestParseOptionType(t *testing.T) {
	for in, want := range map[string]pricing.OptionType{"call": pricing.Call, "C": pricing.Call, " Put ": pricing.Put, "p": pricing.Put} {
		got, err := pricing.ParseOptionType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := pricing.ParseOptionType("x")
	assert.ErrorIs(t, err, pricing.ErrInvalidOptionType)
}
