// Package pricing implements closed-form European option pricing.
//
// The engine is stateless: every function is a deterministic function of its
// arguments and is safe to call from any number of goroutines.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DaysPerYear converts calendar days to year fractions for time-to-expiry.
const DaysPerYear = 365.25

// DefaultRiskFreeRate is the configured rate when none is given.
const DefaultRiskFreeRate = 0.05

var (
	ErrInvalidOptionType = errors.New("invalid option type")
	ErrNonPositivePrice  = errors.New("underlying price must be positive")
	ErrNonPositiveStrike = errors.New("strike price must be positive")
)

// OptionType is either a call or a put.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" and the short forms "c"/"p".
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOptionType, s)
}

// IsCall reports whether t is a call.
func (t OptionType) IsCall() bool { return t == Call }

// ContractParams describes a single option contract at a point in time.
type ContractParams struct {
	UnderlyingPrice   float64    `json:"underlying_price" yaml:"underlying_price"`
	StrikePrice       float64    `json:"strike_price" yaml:"strike_price"`
	DaysToExpiration  int        `json:"days_to_expiration" yaml:"days_to_expiration"`
	ImpliedVolatility float64    `json:"implied_volatility" yaml:"implied_volatility"` // percent, 45 = 45%
	Type              OptionType `json:"option_type" yaml:"option_type"`
	RiskFreeRate      float64    `json:"risk_free_rate" yaml:"risk_free_rate"` // decimal, 0.05 = 5%
}

// WithDefaults returns a copy with DaysToExpiration clamped to at least one
// day and an empty Type read as a call. Rate and volatility are taken as
// given; a zero rate prices at zero.
func (p ContractParams) WithDefaults() ContractParams {
	if p.DaysToExpiration < 1 {
		p.DaysToExpiration = 1
	}
	if p.Type == "" {
		p.Type = Call
	}
	return p
}

// Validate checks the caller-side precondition S > 0 and K > 0. The pricing
// functions do not enforce it: ln(S/K) is undefined outside that domain.
func (p ContractParams) Validate() error {
	if !(p.UnderlyingPrice > 0) {
		return fmt.Errorf("%w: %v", ErrNonPositivePrice, p.UnderlyingPrice)
	}
	if !(p.StrikePrice > 0) {
		return fmt.Errorf("%w: %v", ErrNonPositiveStrike, p.StrikePrice)
	}
	if p.Type != Call && p.Type != Put {
		return fmt.Errorf("%w: %q", ErrInvalidOptionType, p.Type)
	}
	return nil
}

// Years returns time to expiry in years.
func (p ContractParams) Years() float64 {
	return DaysToYears(p.WithDefaults().DaysToExpiration)
}

// Sigma returns the implied volatility as a decimal.
func (p ContractParams) Sigma() float64 {
	return p.ImpliedVolatility / 100
}

// DaysToYears converts calendar days to a year fraction.
func DaysToYears(days int) float64 {
	return float64(days) / DaysPerYear
}

// DaysUntil returns whole calendar days from now to expiration, floored and
// never less than one.
func DaysUntil(expiration, now time.Time) int {
	days := int(math.Floor(expiration.Sub(now).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// Greeks are reported in trader units: theta per calendar day, vega per one
// volatility point and rho per one rate point.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Scale multiplies every Greek by k, e.g. contracts held or -1 for a short.
func (g Greeks) Scale(k float64) Greeks {
	return Greeks{
		Delta: g.Delta * k,
		Gamma: g.Gamma * k,
		Theta: g.Theta * k,
		Vega:  g.Vega * k,
		Rho:   g.Rho * k,
	}
}

// Add returns the element-wise sum of g and o.
func (g Greeks) Add(o Greeks) Greeks {
	return Greeks{
		Delta: g.Delta + o.Delta,
		Gamma: g.Gamma + o.Gamma,
		Theta: g.Theta + o.Theta,
		Vega:  g.Vega + o.Vega,
		Rho:   g.Rho + o.Rho,
	}
}
