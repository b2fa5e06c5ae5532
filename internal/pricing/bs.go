package pricing

import (
	"math"

	"github.com/contactkeval/option-amm/internal/logger"
)

// IntrinsicValue returns the immediate-exercise payoff of one contract.
func IntrinsicValue(t OptionType, S, K float64) float64 {
	if t.IsCall() {
		return math.Max(0, S-K)
	}
	return math.Max(0, K-S)
}

// BlackScholesPrice calculates the price of a European option using the Black-Scholes model.
//
// Parameters:
//   - isCall: true for call option, false for put option
//   - S: spot price of the underlying asset
//   - K: strike price of the option
//   - T: time to expiry in years
//   - r: risk-free interest rate (annual)
//   - sigma: volatility of the underlying asset (annual, as a decimal)
//
// Returns:
//
//	The theoretical price of the option. If time to expiry or volatility is zero or negative,
//	returns the intrinsic value of the option for its type; no time value is owed.
func BlackScholesPrice(
	isCall bool,
	S float64, // spot
	K float64, // strike
	T float64, // time to expiry in years
	r float64, // risk-free rate
	sigma float64, // volatility
) float64 {

	if T <= 0 || sigma <= 0 {
		if isCall {
			return IntrinsicValue(Call, S, K)
		}
		return IntrinsicValue(Put, S, K)
	}

	d1, d2 := d1d2(S, K, T, r, sigma)

	if isCall {
		return S*normCDF(d1) - K*math.Exp(-r*T)*normCDF(d2)
	}
	return K*math.Exp(-r*T)*normCDF(-d2) - S*normCDF(-d1)
}

// BlackScholesGreeks returns delta, gamma, theta (per day), vega (per vol
// point) and rho (per rate point). All five are zero when T or sigma is
// non-positive.
func BlackScholesGreeks(isCall bool, S, K, T, r, sigma float64) Greeks {
	if T <= 0 || sigma <= 0 {
		return Greeks{}
	}

	d1, d2 := d1d2(S, K, T, r, sigma)
	sqrtT := math.Sqrt(T)
	nd1 := normPDF(d1)
	discount := math.Exp(-r * T)

	gamma := nd1 / (S * sigma * sqrtT)
	vega := S * nd1 * sqrtT
	decay := -(S * nd1 * sigma) / (2 * sqrtT)

	var delta, theta, rho float64
	if isCall {
		delta = normCDF(d1)
		theta = decay - r*K*discount*normCDF(d2)
		rho = K * T * discount * normCDF(d2)
	} else {
		delta = normCDF(d1) - 1
		theta = decay + r*K*discount*normCDF(-d2)
		rho = -K * T * discount * normCDF(-d2)
	}

	return Greeks{
		Delta: delta,
		Gamma: gamma,
		Theta: theta / 365,
		Vega:  vega / 100,
		Rho:   rho / 100,
	}
}

// Price returns the theoretical price for p. Days are converted with
// DaysPerYear and implied volatility from percent to decimal.
func Price(p ContractParams) float64 {
	p = p.WithDefaults()
	return BlackScholesPrice(p.Type.IsCall(), p.UnderlyingPrice, p.StrikePrice, p.Years(), p.RiskFreeRate, p.Sigma())
}

// ComputeGreeks returns the Greeks for p in trader units.
func ComputeGreeks(p ContractParams) Greeks {
	p = p.WithDefaults()
	return BlackScholesGreeks(p.Type.IsCall(), p.UnderlyingPrice, p.StrikePrice, p.Years(), p.RiskFreeRate, p.Sigma())
}

// Newton-Raphson settings for the implied volatility solve.
const (
	IVInitialGuess  = 0.3
	IVTolerance     = 1e-4
	IVMaxIterations = 100
	IVMinVolatility = 0.001
	IVMaxVolatility = 5.0
)

// IVResult carries the solved volatility (decimal) and whether the price
// difference fell under IVTolerance before the iteration cap.
type IVResult struct {
	Sigma      float64 `json:"sigma"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
}

// SolveImpliedVolatility finds sigma such that the model price matches
// marketPrice. The ImpliedVolatility field of p is ignored.
//
// Each step is sigma -= (price - market) / vega, where vega is the raw
// (unscaled) sensitivity, and sigma is clamped to [IVMinVolatility,
// IVMaxVolatility]. A vega of exactly zero ends the search early. Sigma is
// returned as the best estimate whether or not the search converged.
func SolveImpliedVolatility(marketPrice float64, p ContractParams) IVResult {
	p = p.WithDefaults()
	isCall := p.Type.IsCall()
	S, K, T, r := p.UnderlyingPrice, p.StrikePrice, p.Years(), p.RiskFreeRate

	sigma := IVInitialGuess
	res := IVResult{Sigma: sigma}

	for i := 0; i < IVMaxIterations; i++ {
		res.Iterations = i + 1

		price := BlackScholesPrice(isCall, S, K, T, r, sigma)
		vega := BlackScholesGreeks(isCall, S, K, T, r, sigma).Vega * 100

		diff := price - marketPrice
		if math.Abs(diff) < IVTolerance {
			res.Sigma = sigma
			res.Converged = true
			return res
		}

		if vega == 0 {
			logger.Tracef("event=iv_zero_vega iter=%d sigma=%.6f", i, sigma)
			break
		}

		sigma -= diff / vega
		sigma = math.Max(IVMinVolatility, math.Min(IVMaxVolatility, sigma))
		res.Sigma = sigma
	}

	logger.Tracef("event=iv_not_converged iterations=%d sigma=%.6f", res.Iterations, res.Sigma)
	return res
}

// ImpliedVolatility returns the decimal volatility implied by marketPrice.
// Callers must not assume the solve converged; use SolveImpliedVolatility
// when the flag matters.
func ImpliedVolatility(marketPrice float64, p ContractParams) float64 {
	return SolveImpliedVolatility(marketPrice, p).Sigma
}

func d1d2(S, K, T, r, sigma float64) (float64, float64) {
	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	return d1, d1 - sigma*sqrtT
}
