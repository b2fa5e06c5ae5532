package amm

import (
	"math"
)

// SlippageEstimate is reported in percent. IsAcceptable compares against the
// tolerance; Warning is set separately, whenever the estimate exceeds the
// warning threshold.
type SlippageEstimate struct {
	EstimatedSlippage  float64 `json:"estimated_slippage"`
	IsAcceptable       bool    `json:"is_acceptable"`
	MaxRecommendedSize float64 `json:"max_recommended_size"`
	Warning            string  `json:"warning,omitempty"`
}

const HighSlippageWarning = "High slippage detected"

// Slippage estimates execution slippage for requestedSize contracts. A
// tolerance of zero uses Config.SlippageTolerance.
//
// The estimate is SlippageCoefficient * (size*price/liquidity)^SlippageExponent.
// When it exceeds tolerance, MaxRecommendedSize is the size at which the
// estimate equals tolerance, rounded down; otherwise it is requestedSize.
func (e *Engine) Slippage(requestedSize, poolLiquidity, currentPrice, tolerance float64) (SlippageEstimate, error) {
	c := e.cfg
	if !(poolLiquidity > 0) {
		return SlippageEstimate{}, unavailable("pool_liquidity", poolLiquidity)
	}
	if requestedSize < 0 || math.IsNaN(requestedSize) {
		return SlippageEstimate{}, unavailable("requested_size", requestedSize)
	}
	if tolerance <= 0 {
		tolerance = c.SlippageTolerance
	}

	estimate := 0.0
	if requestedSize > 0 && currentPrice > 0 {
		ratio := requestedSize * currentPrice / poolLiquidity
		estimate = math.Pow(ratio, c.SlippageExponent) * c.SlippageCoefficient
	}

	out := SlippageEstimate{
		EstimatedSlippage:  estimate * 100,
		IsAcceptable:       estimate <= tolerance,
		MaxRecommendedSize: requestedSize,
	}
	if !out.IsAcceptable {
		ratio := math.Pow(tolerance/c.SlippageCoefficient, 1/c.SlippageExponent)
		out.MaxRecommendedSize = math.Floor(ratio * poolLiquidity / math.Max(0.01, currentPrice))
	}
	if estimate > c.SlippageWarning {
		out.Warning = HighSlippageWarning
	}
	return out, nil
}

// TradeImpactProjection is a one-step preview of the pool after a trade.
// PriceChange is a percentage. It is never authoritative for execution.
type TradeImpactProjection struct {
	NewLiquidity float64 `json:"new_liquidity"`
	NewVolume    float64 `json:"new_volume"`
	NewMidPrice  float64 `json:"new_mid_price"`
	PriceChange  float64 `json:"price_change"`
}

// SimulateImpact projects liquidity, volume and mid price after a trade of
// tradeSize contracts at currentPrice. Buys add half the trade value to the
// pool and sells remove it.
func (e *Engine) SimulateImpact(currentPrice, tradeSize float64, side Side, poolLiquidity, totalVolume float64) (TradeImpactProjection, error) {
	c := e.cfg
	if !(poolLiquidity > 0) {
		return TradeImpactProjection{}, unavailable("pool_liquidity", poolLiquidity)
	}
	if side != Buy && side != Sell {
		return TradeImpactProjection{}, unavailable("side", side)
	}

	value := tradeSize * currentPrice
	direction := 1.0
	if side == Sell {
		direction = -1
	}

	newLiquidity := poolLiquidity + direction*0.5*value
	priceChange := value / poolLiquidity * c.SimulatedPriceDrift * direction

	return TradeImpactProjection{
		NewLiquidity: math.Max(c.MinSimulatedLiquidity, newLiquidity),
		NewVolume:    totalVolume + value,
		NewMidPrice:  math.Max(c.MinSimulatedPrice, currentPrice*(1+priceChange)),
		PriceChange:  priceChange * 100,
	}, nil
}
