// Package portfolio values open option positions with the pricing engine and
// aggregates their P&L and Greeks.
package portfolio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
	"github.com/contactkeval/option-amm/internal/settlement"
)

var ErrMissingPrice = errors.New("no underlying price for position")

// PositionValue is the mark of one position.
type PositionValue struct {
	Position         settlement.Position `json:"position"`
	UnderlyingPrice  float64             `json:"underlying_price"`
	DaysToExpiration int                 `json:"days_to_expiration"`
	Expired          bool                `json:"expired"`
	UnitValue        float64             `json:"unit_value"` // theoretical value per contract
	MarketValue      float64             `json:"market_value"`
	Cost             float64             `json:"cost"`
	UnrealizedPnL    float64             `json:"unrealized_pnl"`
	Greeks           pricing.Greeks      `json:"greeks"` // contract-weighted
}

// Valuation is the portfolio mark.
type Valuation struct {
	Positions     []PositionValue `json:"positions"`
	TotalValue    float64         `json:"total_value"`
	TotalCost     float64         `json:"total_cost"`
	UnrealizedPnL float64         `json:"unrealized_pnl"`
	ReturnPercent float64         `json:"return_percent"`
	NetGreeks     pricing.Greeks  `json:"net_greeks"`
}

// Options are the pricing inputs shared by every position.
type Options struct {
	ImpliedVolatility float64 // percent
	RiskFreeRate      float64
}

// Value marks the open positions at the given underlying prices, keyed by
// symbol (case-insensitive). Expired positions are carried at intrinsic
// value; settled positions are skipped.
func Value(positions []settlement.Position, prices map[string]float64, now time.Time, o Options) (Valuation, error) {
	lookup := make(map[string]float64, len(prices))
	for k, v := range prices {
		lookup[strings.ToUpper(k)] = v
	}

	var v Valuation
	for _, p := range positions {
		if p.Status != "" && p.Status != settlement.StatusOpen {
			continue
		}
		s, ok := lookup[strings.ToUpper(p.Symbol)]
		if !ok || !(s > 0) {
			return Valuation{}, fmt.Errorf("%w: %s (%s)", ErrMissingPrice, p.ID, p.Symbol)
		}

		pv := mark(p, s, now, o)
		v.Positions = append(v.Positions, pv)
		v.TotalValue += pv.MarketValue
		v.TotalCost += pv.Cost
		v.NetGreeks = v.NetGreeks.Add(pv.Greeks)
	}

	v.UnrealizedPnL = v.TotalValue - v.TotalCost
	if v.TotalCost > 0 {
		v.ReturnPercent = v.UnrealizedPnL / v.TotalCost * 100
	}
	logger.Debugf("event=portfolio_valued positions=%d value=%.2f pnl=%.2f", len(v.Positions), v.TotalValue, v.UnrealizedPnL)
	return v, nil
}

func mark(p settlement.Position, s float64, now time.Time, o Options) PositionValue {
	contracts := float64(max(p.Contracts, 1))
	strike := p.Strike.InexactFloat64()

	pv := PositionValue{
		Position:         p,
		UnderlyingPrice:  s,
		DaysToExpiration: settlement.DaysToExpiration(p.Expiration, now),
		Expired:          settlement.IsExpired(p, now),
		Cost:             p.PremiumPaid.InexactFloat64() * contracts,
	}

	if pv.Expired {
		pv.UnitValue = pricing.IntrinsicValue(p.OptionType, s, strike)
	} else {
		params := pricing.ContractParams{
			UnderlyingPrice:   s,
			StrikePrice:       strike,
			DaysToExpiration:  pv.DaysToExpiration,
			ImpliedVolatility: o.ImpliedVolatility,
			Type:              p.OptionType,
			RiskFreeRate:      o.RiskFreeRate,
		}
		pv.UnitValue = pricing.Price(params)
		pv.Greeks = pricing.ComputeGreeks(params).Scale(contracts)
	}

	pv.MarketValue = pv.UnitValue * contracts
	pv.UnrealizedPnL = pv.MarketValue - pv.Cost
	return pv
}
