package pricing

import (
	"errors"
	"fmt"
	"math"
)

const sqrt2Pi = 2.5066282746310002

// Abramowitz & Stegun 7.1.26 coefficients.
const (
	asP  = 0.3275911
	asA1 = 0.254829592
	asA2 = -0.284496736
	asA3 = 1.421413741
	asA4 = -1.453152027
	asA5 = 1.061405429
)

var ErrDeltaOutOfRange = errors.New("delta out of range")

// normPDF calculates the probability density function (PDF) of the standard normal distribution.
// The formula used is: exp(-0.5 * x^2) / sqrt(2π)
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / sqrt2Pi
}

// normCDF computes the standard normal CDF with the five-term rational
// approximation of Abramowitz & Stegun formula 7.1.26 applied to erf(x/√2).
// Absolute error is below 1.5e-7 for all x.
func normCDF(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	z := math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + asP*z)
	y := 1.0 - (((((asA5*t+asA4)*t)+asA3)*t+asA2)*t+asA1)*t*math.Exp(-z*z)

	return 0.5 * (1.0 + sign*y)
}

// NormCDF exposes the approximation used by the engine.
func NormCDF(x float64) float64 { return normCDF(x) }

// NormPDF exposes the standard normal density.
func NormPDF(x float64) float64 { return normPDF(x) }

// NormInv computes the inverse of the standard normal cumulative distribution function (quantile function).
// It returns the value x such that the cumulative probability at x equals p.
//
// The function uses Acklam's rational approximation, with a relative error
// around 1.15e-9 across the whole open interval.
//
// Parameters:
//   - p: A probability value in the range (0, 1) (exclusive). Values outside this range will cause a panic.
//
// Returns:
//
//	The quantile value corresponding to the input probability p.
//
// Example:
//
//	NormInv(0.975) // Returns approximately 1.96 (95% confidence level)
//	NormInv(0.025) // Returns approximately -1.96
func NormInv(p float64) float64 {
	if p <= 0 || p >= 1 {
		panic("NormInv: p must be in (0,1)")
	}

	a := []float64{
		-3.969683028665376e+01,
		2.209460984245205e+02,
		-2.759285104469687e+02,
		1.383577518672690e+02,
		-3.066479806614716e+01,
		2.506628277459239e+00,
	}

	b := []float64{
		-5.447609879822406e+01,
		1.615858368580409e+02,
		-1.556989798598866e+02,
		6.680131188771972e+01,
		-1.328068155288572e+01,
	}

	c := []float64{
		-7.784894002430293e-03,
		-3.223964580411365e-01,
		-2.400758277161838e+00,
		-2.549732539343734e+00,
		4.374664141464968e+00,
		2.938163982698783e+00,
	}

	d := []float64{
		7.784695709041462e-03,
		3.224671290700398e-01,
		2.445134137142996e+00,
		3.754408661907416e+00,
	}

	const plow = 0.02425
	const phigh = 1 - plow

	if p < plow {
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}

	if p > phigh {
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}

	q := p - 0.5
	r := q * q
	return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
		(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
}

// StrikeFromDelta inverts the Black-Scholes delta for the strike that carries
// the requested delta. Put deltas may be given signed (-0.25) or as a
// magnitude (0.25).
//
// Parameters:
//   - S: spot price
//   - delta: target delta
//   - r: risk-free rate
//   - q: continuous dividend yield
//   - sigma: volatility as a decimal
//   - T: time to expiry in years
//   - isCall: option side
func StrikeFromDelta(S, delta, r, q, sigma, T float64, isCall bool) (float64, error) {
	if T <= 0 || sigma <= 0 {
		return 0, fmt.Errorf("%w: needs positive time and volatility", ErrDeltaOutOfRange)
	}

	if !isCall && delta > 0 {
		delta = -delta
	}

	growth := math.Exp(q * T)
	p := delta * growth
	if !isCall {
		p = 1 + delta*growth
	}

	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("%w: %v", ErrDeltaOutOfRange, delta)
	}

	d1 := NormInv(p)
	sqrtT := math.Sqrt(T)
	return S * math.Exp(-d1*sigma*sqrtT+(r-q+0.5*sigma*sigma)*T), nil
}
