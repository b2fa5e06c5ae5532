package amm

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/contactkeval/option-amm/internal/data"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// TicketRequest is a quote request plus the pool's open-interest state,
// which only sells consult.
type TicketRequest struct {
	QuoteRequest
	OpenInterest         float64 `json:"total_open_interest" yaml:"total_open_interest"`
	MaxOpenInterestRatio float64 `json:"max_open_interest_ratio,omitempty" yaml:"max_open_interest_ratio"`
}

// Ticket is everything a trader sees before confirming an order.
type Ticket struct {
	Quote              Quote                 `json:"quote"`
	Greeks             pricing.Greeks        `json:"greeks"`
	Slippage           SlippageEstimate      `json:"slippage"`
	Impact             TradeImpactProjection `json:"impact"`
	TotalCost          float64               `json:"total_cost"`
	CollateralRequired float64               `json:"collateral_required"`
	Utilization        UtilizationCheck      `json:"utilization"`
	Health             Health                `json:"health"`
}

// Ticket quotes r and attaches Greeks, slippage and a pool preview. Slippage
// and the preview are evaluated at the mid price. Sells additionally get
// their collateral and the open-interest cap check.
func (e *Engine) Ticket(r TicketRequest) (Ticket, error) {
	q, err := e.Quote(r.QuoteRequest)
	if err != nil {
		return Ticket{}, err
	}

	params := r.ContractParams

	slip, err := e.Slippage(r.TradeSize, r.PoolLiquidity, q.MidPrice, 0)
	if err != nil {
		return Ticket{}, err
	}
	impact, err := e.SimulateImpact(q.MidPrice, r.TradeSize, q.Side, r.PoolLiquidity, r.TotalVolume)
	if err != nil {
		return Ticket{}, err
	}

	pool := PoolState{
		Liquidity:            r.PoolLiquidity,
		Volume:               r.TotalVolume,
		OpenInterest:         r.OpenInterest,
		MaxOpenInterestRatio: r.MaxOpenInterestRatio,
	}

	t := Ticket{
		Quote:       q,
		Greeks:      pricing.ComputeGreeks(params),
		Slippage:    slip,
		Impact:      impact,
		TotalCost:   q.Price * r.TradeSize,
		Utilization: UtilizationCheck{Allowed: true},
		Health:      e.Health(pool),
	}
	if q.Side == Sell {
		t.CollateralRequired = CollateralRequired(params.WithDefaults().Type, r.UnderlyingPrice, r.StrikePrice, r.TradeSize)
		t.Utilization = e.CheckUtilization(pool, t.TotalCost)
	}
	return t, nil
}

// ChainRequest describes one expiry of an option chain. When Strikes is
// empty a ladder of 2*Width+1 strikes spaced by StrikeInterval is centred on
// the at-the-money strike. Listed Strikes are all priced unless Width is set,
// which keeps Width of them on each side of the listed strike nearest spot.
type ChainRequest struct {
	Underlying        string    `json:"underlying"`
	UnderlyingPrice   float64   `json:"underlying_price"`
	Expiration        time.Time `json:"expiration"`
	Now               time.Time `json:"now,omitempty"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	RiskFreeRate      float64   `json:"risk_free_rate"`
	PoolLiquidity     float64   `json:"pool_liquidity"`
	TotalVolume       float64   `json:"total_volume"`
	TradeSize         float64   `json:"trade_size"`
	Strikes           []float64 `json:"strikes,omitempty"`
	StrikeInterval    float64   `json:"strike_interval,omitempty"`
	Width             int       `json:"width,omitempty"`
}

// ChainQuote is one side of a chain row.
type ChainQuote struct {
	Symbol      string  `json:"symbol"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Mid         float64 `json:"mid"`
	Spread      float64 `json:"spread"`
	Theoretical float64 `json:"theoretical"`
	Delta       float64 `json:"delta"`
}

type ChainRow struct {
	Strike float64    `json:"strike"`
	Call   ChainQuote `json:"call"`
	Put    ChainQuote `json:"put"`
}

// Chain is a priced strike ladder for a single expiry.
type Chain struct {
	Underlying       string     `json:"underlying"`
	UnderlyingPrice  float64    `json:"underlying_price"`
	Expiration       time.Time  `json:"expiration"`
	DaysToExpiration int        `json:"days_to_expiration"`
	Rows             []ChainRow `json:"rows"`
}

const (
	defaultChainWidth     = 5
	defaultChainTradeSize = 1
)

func (r ChainRequest) strikes() []float64 {
	if len(r.Strikes) > 0 {
		out := append([]float64(nil), r.Strikes...)
		sort.Float64s(out)
		if r.Width <= 0 {
			return out
		}
		i := sort.SearchFloat64s(out, data.Closest(out, r.UnderlyingPrice))
		return out[max(0, i-r.Width):min(len(out), i+r.Width+1)]
	}

	interval := r.StrikeInterval
	if interval <= 0 {
		interval = DefaultStrikeInterval(r.UnderlyingPrice)
	}
	width := r.Width
	if width <= 0 {
		width = defaultChainWidth
	}

	atm := math.Round(r.UnderlyingPrice/interval) * interval
	out := make([]float64, 0, 2*width+1)
	for i := -width; i <= width; i++ {
		if k := atm + float64(i)*interval; k > 0 {
			out = append(out, k)
		}
	}
	return out
}

// DefaultStrikeInterval picks a listing increment proportional to price.
func DefaultStrikeInterval(price float64) float64 {
	switch {
	case price < 25:
		return 0.5
	case price < 200:
		return 1
	case price < 1000:
		return 5
	case price < 10000:
		return 50
	}
	return 1000
}

// Chain prices a call and a put at every strike. Bid is the sell quote and
// Ask the buy quote for TradeSize contracts.
func (e *Engine) Chain(r ChainRequest) (Chain, error) {
	if !(r.UnderlyingPrice > 0) {
		return Chain{}, unavailable("underlying_price", r.UnderlyingPrice)
	}
	if r.Now.IsZero() {
		r.Now = time.Now()
	}
	if r.TradeSize == 0 {
		r.TradeSize = defaultChainTradeSize
	}

	days := pricing.DaysUntil(r.Expiration, r.Now)
	out := Chain{
		Underlying:       r.Underlying,
		UnderlyingPrice:  r.UnderlyingPrice,
		Expiration:       r.Expiration,
		DaysToExpiration: days,
	}

	for _, k := range r.strikes() {
		row := ChainRow{Strike: k}
		for _, t := range []pricing.OptionType{pricing.Call, pricing.Put} {
			cq, err := e.chainQuote(r, k, days, t)
			if err != nil {
				return Chain{}, fmt.Errorf("strike %v %s: %w", k, t, err)
			}
			if t == pricing.Call {
				row.Call = cq
			} else {
				row.Put = cq
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func (e *Engine) chainQuote(r ChainRequest, strike float64, days int, t pricing.OptionType) (ChainQuote, error) {
	req := QuoteRequest{
		ContractParams: pricing.ContractParams{
			UnderlyingPrice:   r.UnderlyingPrice,
			StrikePrice:       strike,
			DaysToExpiration:  days,
			ImpliedVolatility: r.ImpliedVolatility,
			Type:              t,
			RiskFreeRate:      r.RiskFreeRate,
		},
		PoolLiquidity: r.PoolLiquidity,
		TotalVolume:   r.TotalVolume,
		TradeSize:     r.TradeSize,
	}

	req.Side = Buy
	buy, err := e.Quote(req)
	if err != nil {
		return ChainQuote{}, err
	}
	req.Side = Sell
	sell, err := e.Quote(req)
	if err != nil {
		return ChainQuote{}, err
	}

	params := req.ContractParams

	return ChainQuote{
		Symbol:      data.OptionSymbolFromParts(r.Underlying, r.Expiration, string(t), strike),
		Bid:         sell.Price,
		Ask:         buy.Price,
		Mid:         buy.MidPrice,
		Spread:      buy.Spread,
		Theoretical: buy.TheoreticalPrice,
		Delta:       pricing.ComputeGreeks(params).Delta,
	}, nil
}
