package strategy

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// Range is the sampled price grid as fractions of the underlying price.
type Range struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Steps int     `json:"steps"`
}

// DefaultRange samples 0.8x to 1.2x of spot in 50 steps.
func DefaultRange() Range { return Range{Low: 0.8, High: 1.2, Steps: 50} }

// PayoffPoint is the strategy P&L at one expiration price.
type PayoffPoint struct {
	Price float64 `json:"price"`
	PnL   float64 `json:"pnl"`
}

// Analysis summarizes the payoff of a set of legs held to expiration.
type Analysis struct {
	Name            string         `json:"name,omitempty"`
	UnderlyingPrice float64        `json:"underlying_price"`
	Legs            []TradeLeg     `json:"legs"`
	NetPremium      float64        `json:"net_premium"` // positive is a net credit
	MaxProfit       float64        `json:"max_profit"`
	MaxLoss         float64        `json:"max_loss"`
	ProfitUnbounded bool           `json:"profit_unbounded"`
	LossUnbounded   bool           `json:"loss_unbounded"`
	Breakevens      []float64      `json:"breakevens"`
	NetGreeks       pricing.Greeks `json:"net_greeks"`
	Curve           []PayoffPoint  `json:"curve"`
}

// PnLAt is the combined expiration P&L of legs at underlying price s.
func PnLAt(legs []TradeLeg, s float64) float64 {
	var total float64
	for _, l := range legs {
		var value float64
		switch {
		case l.isStock():
			value = s
		case l.OptionType == string(pricing.Put):
			value = math.Max(0, l.Strike-s)
		default:
			value = math.Max(0, s-l.Strike)
		}
		total += l.sign() * float64(l.Qty) * (value - l.Premium)
	}
	return total
}

// Analyze samples the expiration payoff of legs over r around spot.
// Max profit and loss are taken over the sampled grid; the unbounded flags
// report the slope beyond the highest strike.
func Analyze(name string, legs []TradeLeg, spot float64, r Range) (Analysis, error) {
	if !(spot > 0) {
		return Analysis{}, fmt.Errorf("%w: underlying price must be positive, got %v", ErrInvalidLeg, spot)
	}
	if r.Steps < 1 || !(r.Low > 0) || r.High <= r.Low {
		return Analysis{}, fmt.Errorf("invalid payoff range [%v, %v] x %d", r.Low, r.High, r.Steps)
	}

	a := Analysis{Name: name, UnderlyingPrice: spot, Legs: legs, Breakevens: []float64{}}

	var upSlope float64
	for _, l := range legs {
		q := l.sign() * float64(l.Qty)
		a.NetGreeks = a.NetGreeks.Add(l.Greeks.Scale(q))
		if l.isStock() {
			upSlope += q
			continue
		}
		a.NetPremium -= q * l.Premium
		if l.OptionType != string(pricing.Put) {
			upSlope += q
		}
	}
	a.ProfitUnbounded = upSlope > 0
	a.LossUnbounded = upSlope < 0

	lo, hi := spot*r.Low, spot*r.High
	a.Curve = make([]PayoffPoint, 0, r.Steps+1)
	for i := 0; i <= r.Steps; i++ {
		s := lo + (hi-lo)*float64(i)/float64(r.Steps)
		a.Curve = append(a.Curve, PayoffPoint{Price: s, PnL: PnLAt(legs, s)})
	}

	a.MaxProfit, a.MaxLoss = math.Inf(-1), math.Inf(1)
	for i, p := range a.Curve {
		a.MaxProfit = math.Max(a.MaxProfit, p.PnL)
		a.MaxLoss = math.Min(a.MaxLoss, p.PnL)

		if p.PnL == 0 {
			if i == 0 || a.Curve[i-1].PnL != 0 {
				a.Breakevens = append(a.Breakevens, p.Price)
			}
			continue
		}
		if i > 0 {
			prev := a.Curve[i-1]
			if prev.PnL != 0 && (prev.PnL < 0) != (p.PnL < 0) {
				// linear between samples
				x := prev.Price + (p.Price-prev.Price)*(-prev.PnL)/(p.PnL-prev.PnL)
				a.Breakevens = append(a.Breakevens, x)
			}
		}
	}

	logger.Debugf("event=strategy_analyzed name=%s max_profit=%.4f max_loss=%.4f breakevens=%v",
		name, a.MaxProfit, a.MaxLoss, a.Breakevens)
	return a, nil
}
