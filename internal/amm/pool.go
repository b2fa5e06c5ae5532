package amm

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-amm/internal/pricing"
)

// PoolState is the caller-owned snapshot of one option pool.
type PoolState struct {
	Liquidity            float64 `json:"total_liquidity" yaml:"total_liquidity"`
	Volume               float64 `json:"total_volume" yaml:"total_volume"`
	OpenInterest         float64 `json:"total_open_interest" yaml:"total_open_interest"`
	MaxOpenInterestRatio float64 `json:"max_open_interest_ratio,omitempty" yaml:"max_open_interest_ratio"` // zero uses Config
}

// Utilization is open interest as a percentage of liquidity; zero for an
// empty pool.
func (p PoolState) Utilization() float64 {
	if !(p.Liquidity > 0) {
		return 0
	}
	return p.OpenInterest / p.Liquidity * 100
}

type Health string

const (
	Healthy Health = "healthy"
	Caution Health = "caution"
	Risky   Health = "risky"
)

func (e *Engine) maxRatio(p PoolState) float64 {
	if p.MaxOpenInterestRatio > 0 {
		return p.MaxOpenInterestRatio
	}
	return e.cfg.MaxOpenInterestRatio
}

// Health grades utilization against the pool's cap: above 90% of the cap is
// Risky, above 70% is Caution.
func (e *Engine) Health(p PoolState) Health {
	usage := p.Utilization() / (e.maxRatio(p) * 100)
	switch {
	case usage > 0.9:
		return Risky
	case usage > 0.7:
		return Caution
	}
	return Healthy
}

// UtilizationCheck is the outcome of CheckUtilization.
type UtilizationCheck struct {
	Allowed         bool    `json:"allowed"`
	NewOpenInterest float64 `json:"new_open_interest"`
	MaxOpenInterest float64 `json:"max_open_interest"`
	Message         string  `json:"message,omitempty"`
}

// CheckUtilization decides whether writing tradeNotional of new options keeps
// the pool under its open-interest cap.
func (e *Engine) CheckUtilization(p PoolState, tradeNotional float64) UtilizationCheck {
	ratio := e.maxRatio(p)
	out := UtilizationCheck{
		Allowed:         true,
		NewOpenInterest: p.OpenInterest + tradeNotional,
		MaxOpenInterest: p.Liquidity * ratio,
	}
	if out.NewOpenInterest > out.MaxOpenInterest {
		out.Allowed = false
		out.Message = fmt.Sprintf("This trade exceeds the pool's max utilization (%.0f%%). Reduce trade size.", ratio*100)
	}
	return out
}

// CollateralRequired is what a writer must post: the underlying for a
// covered call, the strike in cash for a cash-secured put.
func CollateralRequired(t pricing.OptionType, underlyingPrice, strike, contracts float64) float64 {
	if t.IsCall() {
		return underlyingPrice * contracts
	}
	return strike * contracts
}

// LPReward reports a liquidity provider's share of pool fees. PoolShare and
// EstimatedAPY are percentages; APY is capped to [0, 1000].
type LPReward struct {
	FeesEarned   decimal.Decimal `json:"fees_earned"`
	PoolShare    float64         `json:"pool_share"`
	EstimatedAPY float64         `json:"estimated_apy"`
}

const maxAPY = 1000

// LPRewards splits volume*feeRate pro rata to liquidityProvided and
// annualises it as if volume were daily. A feeRate of zero uses
// Config.LPFeeRate. Empty pools and zero deposits earn nothing.
func (e *Engine) LPRewards(liquidityProvided, totalPoolLiquidity, totalVolume, feeRate float64) LPReward {
	if !(liquidityProvided > 0) || !(totalPoolLiquidity > 0) {
		return LPReward{FeesEarned: decimal.Zero}
	}
	if feeRate <= 0 {
		feeRate = e.cfg.LPFeeRate
	}

	provided := decimal.NewFromFloat(liquidityProvided)
	share := provided.Div(decimal.NewFromFloat(totalPoolLiquidity))
	fees := decimal.NewFromFloat(totalVolume).Mul(decimal.NewFromFloat(feeRate)).Mul(share)

	apy, _ := fees.Div(provided).Mul(decimal.NewFromInt(365 * 100)).Float64()
	shareF, _ := share.Mul(decimal.NewFromInt(100)).Float64()

	return LPReward{
		FeesEarned:   fees.Round(8),
		PoolShare:    shareF,
		EstimatedAPY: clamp(apy, 0, maxAPY),
	}
}
