// Package strategy turns a multi-leg option strategy definition into priced
// trade legs and analyzes the combined payoff at expiration.
//
// Strikes are resolved from rules (ATM, ATM offsets, absolute, delta targets
// and expressions over earlier legs) against a single pricing context, and
// premiums left unset are priced with the Black-Scholes engine.
package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// Typed errors allow callers and tests to detect failure categories
// without string matching.
var (
	ErrInvalidStrikeExpression = errors.New("invalid strike expression")
	ErrLegIndexOutOfRange      = errors.New("leg index out of range")
	ErrUnknownPreset           = errors.New("unknown strategy preset")
	ErrInvalidLeg              = errors.New("invalid leg")
)

// Stock is the instrument type of an underlying-share leg.
const Stock = "stock"

// LegSpec defines a single leg as provided by the user or strategy JSON.
//
// This struct represents *intent*, not resolved market values.
type LegSpec struct {
	Side       string  `json:"side,omitempty"`        // buy or sell (default: buy)
	OptionType string  `json:"option_type,omitempty"` // call, put or stock (default: call)
	StrikeRule string  `json:"strike_rule,omitempty"` // ATM, ATM:+10, ABS:600, DELTA:0.3, {LEG1.STRIKE}, etc.
	Qty        int     `json:"qty,omitempty"`         // quantity for ratio spreads (default: 1)
	Premium    float64 `json:"premium,omitempty"`     // per-unit premium; priced when zero
}

// StrategySpec defines a multi-leg strategy. Non-zero fields, and a present
// ImpliedVolatility, override the Market it is planned against.
type StrategySpec struct {
	Name              string    `json:"name,omitempty"`
	DaysToExpiry      int       `json:"dte,omitempty"`
	ImpliedVolatility *float64  `json:"implied_volatility,omitempty"` // percent
	StrikeInterval    float64   `json:"strike_interval,omitempty"`
	Legs              []LegSpec `json:"strategy"`
}

// Market is the pricing context strikes and premiums are resolved against.
// Volatility and rate are used as given.
type Market struct {
	UnderlyingPrice   float64 `json:"underlying_price"`
	DaysToExpiry      int     `json:"dte"`
	ImpliedVolatility float64 `json:"implied_volatility"` // percent
	RiskFreeRate      float64 `json:"risk_free_rate"`
	StrikeInterval    float64 `json:"strike_interval"` // zero picks amm.DefaultStrikeInterval
}

func (m Market) withSpec(s StrategySpec) Market {
	if s.DaysToExpiry != 0 {
		m.DaysToExpiry = s.DaysToExpiry
	}
	if s.ImpliedVolatility != nil {
		m.ImpliedVolatility = *s.ImpliedVolatility
	}
	if s.StrikeInterval != 0 {
		m.StrikeInterval = s.StrikeInterval
	}
	if m.StrikeInterval <= 0 {
		m.StrikeInterval = amm.DefaultStrikeInterval(m.UnderlyingPrice)
	}
	return m
}

// TradeLeg represents a fully resolved leg.
type TradeLeg struct {
	Spec       LegSpec        `json:"spec"`
	Side       amm.Side       `json:"side"`
	OptionType string         `json:"option_type"`
	Qty        int            `json:"qty"`
	Strike     float64        `json:"strike"`  // entry price for stock legs
	Premium    float64        `json:"premium"` // per unit; entry price for stock legs
	Greeks     pricing.Greeks `json:"greeks"`  // per unit, before side and quantity
}

// sign is +1 for long legs and -1 for short legs.
func (l TradeLeg) sign() float64 {
	if l.Side == amm.Sell {
		return -1
	}
	return 1
}

func (l TradeLeg) isStock() bool { return l.OptionType == Stock }

var presets = map[string][]LegSpec{
	"long_call": {
		{Side: "buy", OptionType: "call", StrikeRule: "ATM"},
	},
	"long_put": {
		{Side: "buy", OptionType: "put", StrikeRule: "ATM"},
	},
	"covered_call": {
		{Side: "buy", OptionType: Stock},
		{Side: "sell", OptionType: "call", StrikeRule: "ATM:+5%"},
	},
	"cash_secured_put": {
		{Side: "sell", OptionType: "put", StrikeRule: "ATM:-5%"},
	},
	"iron_condor": {
		{Side: "buy", OptionType: "put", StrikeRule: "ATM:-10%"},
		{Side: "sell", OptionType: "put", StrikeRule: "ATM:-5%"},
		{Side: "sell", OptionType: "call", StrikeRule: "ATM:+5%"},
		{Side: "buy", OptionType: "call", StrikeRule: "ATM:+10%"},
	},
	"butterfly": {
		{Side: "buy", OptionType: "call", StrikeRule: "ATM:-5%"},
		{Side: "sell", OptionType: "call", StrikeRule: "ATM", Qty: 2},
		{Side: "buy", OptionType: "call", StrikeRule: "2*{LEG2.STRIKE}-{LEG1.STRIKE}"},
	},
	"straddle": {
		{Side: "buy", OptionType: "call", StrikeRule: "ATM"},
		{Side: "buy", OptionType: "put", StrikeRule: "{LEG1.STRIKE}"},
	},
	"strangle": {
		{Side: "buy", OptionType: "put", StrikeRule: "ATM:-5%"},
		{Side: "buy", OptionType: "call", StrikeRule: "ATM:+5%"},
	},
}

// Preset returns the named strategy with fresh, caller-owned legs.
func Preset(name string) (StrategySpec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	legs, ok := presets[key]
	if !ok {
		return StrategySpec{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return StrategySpec{Name: key, Legs: append([]LegSpec(nil), legs...)}, nil
}

// Presets lists the preset names in alphabetical order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
