// Package amm turns theoretical option prices into executable pool quotes.
//
// The engine models a constant-product style market maker: spreads widen
// for thin pools, high volatility, short expiries and quiet volume, and
// trades pay a super-linear impact on top of a fixed fee. Every operation is
// a pure function of its inputs and the Config; pool state is supplied by
// the caller and never mutated here.
package amm

import (
	"fmt"
	"math"
	"strings"

	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// Side is the trader's direction.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide accepts "buy" and "sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("invalid side %q", s)
}

// Spread factor bounds.
const (
	minLiquidityFactor = 0.5
	maxLiquidityFactor = 2.0
	volatilityWeight   = 0.3
	referenceDays      = 30.0
	minTimeFactor      = 1.0
	maxTimeFactor      = 3.0
	minVolumeFactor    = 0.8
	maxVolumeFactor    = 1.5
)

type Engine struct {
	cfg Config
}

// NewEngine returns an engine over cfg. cfg is not validated here; load it
// through config.Load or call Validate first.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's calibration.
func (e *Engine) Config() Config { return e.cfg }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// DynamicSpread returns the full bid/ask spread as a decimal fraction of mid,
// always inside [MinSpread, MaxSpread].
//
// Parameters:
//   - poolLiquidity: pool notional; non-positive pools get the widest liquidity factor
//   - totalVolume: trailing volume
//   - impliedVolatility: percent, 45 = 45%
//   - daysToExpiration: calendar days, values below one count as one
func (e *Engine) DynamicSpread(poolLiquidity, totalVolume, impliedVolatility float64, daysToExpiration int) float64 {
	c := e.cfg

	liquidityFactor := maxLiquidityFactor
	if poolLiquidity > 0 {
		liquidityFactor = clamp(c.ReferenceLiquidity/poolLiquidity, minLiquidityFactor, maxLiquidityFactor)
	}
	volatilityFactor := 1 + (impliedVolatility/100)*volatilityWeight
	timeFactor := clamp(referenceDays/math.Max(1, float64(daysToExpiration)), minTimeFactor, maxTimeFactor)
	volumeFactor := clamp(c.ReferenceVolume/math.Max(c.MinVolume, totalVolume), minVolumeFactor, maxVolumeFactor)

	spread := c.BaseSpread * liquidityFactor * volatilityFactor * timeFactor * volumeFactor
	if math.IsNaN(spread) {
		return c.MaxSpread
	}
	return clamp(spread, c.MinSpread, c.MaxSpread)
}

// PriceImpactMultiplier scales the executed side of a quote. Buys pay
// 1+impact and sells receive 1-impact, where impact is the base fee plus
// ImpactCoefficient * (size*price/liquidity)^ImpactExponent. A missing
// (zero or negative) size, liquidity or price is neutral and returns 1.
func (e *Engine) PriceImpactMultiplier(tradeSize, poolLiquidity, basePrice float64, side Side) float64 {
	if !(tradeSize > 0) || !(poolLiquidity > 0) || !(basePrice > 0) {
		return 1
	}

	ratio := tradeSize * basePrice / poolLiquidity
	impact := e.cfg.BaseFee + math.Pow(ratio, e.cfg.ImpactExponent)*e.cfg.ImpactCoefficient

	if side == Sell {
		return 1 - impact
	}
	return 1 + impact
}

// QuoteRequest is a contract plus the pool and trade it would execute against.
type QuoteRequest struct {
	pricing.ContractParams
	PoolLiquidity float64 `json:"pool_liquidity" yaml:"pool_liquidity"`
	TotalVolume   float64 `json:"total_volume" yaml:"total_volume"`
	TradeSize     float64 `json:"trade_size" yaml:"trade_size"`
	Side          Side    `json:"side" yaml:"side"`
}

// Quote is an executable price. Spread and PriceImpact are percentages.
// Only the executed side carries size impact; the opposite side is the
// plain spread quote.
type Quote struct {
	Side             Side    `json:"side"`
	Price            float64 `json:"price"`
	MidPrice         float64 `json:"mid_price"`
	BidPrice         float64 `json:"bid_price"`
	AskPrice         float64 `json:"ask_price"`
	Spread           float64 `json:"spread"`
	PriceImpact      float64 `json:"price_impact"`
	TheoreticalPrice float64 `json:"theoretical_price"`
}

// CheckContract reports the first contract input the pricing engine cannot
// evaluate as an *InputError.
func CheckContract(p pricing.ContractParams) error {
	switch {
	case !(p.UnderlyingPrice > 0):
		return unavailable("underlying_price", p.UnderlyingPrice)
	case !(p.StrikePrice > 0):
		return unavailable("strike_price", p.StrikePrice)
	case p.Type != "" && p.Type != pricing.Call && p.Type != pricing.Put:
		return unavailable("option_type", p.Type)
	case p.ImpliedVolatility < 0 || math.IsNaN(p.ImpliedVolatility):
		return unavailable("implied_volatility", p.ImpliedVolatility)
	}
	return nil
}

func (e *Engine) validate(r QuoteRequest) error {
	switch {
	case !(r.UnderlyingPrice > 0):
		return unavailable("underlying_price", r.UnderlyingPrice)
	case !(r.StrikePrice > 0):
		return unavailable("strike_price", r.StrikePrice)
	case !(r.PoolLiquidity > 0):
		return unavailable("pool_liquidity", r.PoolLiquidity)
	case r.TradeSize < 0 || math.IsNaN(r.TradeSize):
		return unavailable("trade_size", r.TradeSize)
	case r.Side != Buy && r.Side != Sell:
		return unavailable("side", r.Side)
	}
	if r.Type != "" && r.Type != pricing.Call && r.Type != pricing.Put {
		return unavailable("option_type", r.Type)
	}
	return nil
}

// Quote prices r against the pool. Inputs that cannot be priced return an
// *InputError wrapping ErrQuoteUnavailable and a zero Quote.
// An empty Side quotes a buy.
func (e *Engine) Quote(r QuoteRequest) (Quote, error) {
	if r.Side == "" {
		r.Side = Buy
	}
	if err := e.validate(r); err != nil {
		return Quote{}, err
	}

	params := r.ContractParams.WithDefaults()

	theo := pricing.Price(params)
	spread := e.DynamicSpread(r.PoolLiquidity, r.TotalVolume, params.ImpliedVolatility, params.DaysToExpiration)
	mid := theo

	bid := mid * (1 - spread/2)
	ask := mid * (1 + spread/2)

	mult := e.PriceImpactMultiplier(r.TradeSize, r.PoolLiquidity, mid, r.Side)

	q := Quote{
		Side:             r.Side,
		MidPrice:         math.Max(0, mid),
		Spread:           spread * 100,
		TheoreticalPrice: math.Max(0, theo),
	}

	if r.Side == Buy {
		ask *= mult
		q.Price = math.Max(0, ask)
		q.PriceImpact = (mult - 1) * 100
	} else {
		bid *= mult
		q.Price = math.Max(0, bid)
		q.PriceImpact = (1 - mult) * 100
	}
	q.BidPrice = math.Max(0, bid)
	q.AskPrice = math.Max(0, ask)

	logger.Tracef("event=amm_quote side=%s theo=%.6f spread=%.6f mult=%.6f price=%.6f",
		r.Side, theo, spread, mult, q.Price)
	return q, nil
}
