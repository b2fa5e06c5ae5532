package strategy

import (
	"fmt"
	"strings"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// Plan resolves a strategy specification into concrete trade legs.
//
// Each leg's strike is resolved in order, so expressions may refer to any
// earlier leg. Premiums left at zero are priced with the Black-Scholes
// engine; stock legs enter at the underlying price.
//
// Parameters:
//   - spec: Strategy definition; non-zero fields override m
//   - m: Pricing context (underlying price, days, IV, rate, strike interval)
//
// Returns:
//   - []TradeLeg: Fully resolved trade legs in order
//   - error: Non-nil if any leg cannot be resolved
func Plan(spec StrategySpec, m Market) ([]TradeLeg, error) {
	if !(m.UnderlyingPrice > 0) {
		return nil, fmt.Errorf("%w: underlying price must be positive, got %v", ErrInvalidLeg, m.UnderlyingPrice)
	}
	if len(spec.Legs) == 0 {
		return nil, fmt.Errorf("%w: strategy has no legs", ErrInvalidLeg)
	}
	m = m.withSpec(spec)

	logger.Infof("event=plan_strategy name=%s price=%.2f dte=%d iv=%.2f legs=%d",
		spec.Name, m.UnderlyingPrice, m.DaysToExpiry, m.ImpliedVolatility, len(spec.Legs))

	legs := make([]TradeLeg, 0, len(spec.Legs))
	for i, legSpec := range spec.Legs {
		logger.Debugf("event=resolve_leg index=%d spec=%+v", i+1, legSpec)

		leg, err := resolveLeg(legSpec, m, legs)
		if err != nil {
			logger.Errorf("event=leg_resolution_failed leg=%d err=%v", i+1, err)
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}

		logger.Debugf("event=leg_resolved leg=%d side=%s type=%s qty=%d strike=%.2f premium=%.4f",
			i+1, leg.Side, leg.OptionType, leg.Qty, leg.Strike, leg.Premium)
		legs = append(legs, leg)
	}
	return legs, nil
}

func resolveLeg(spec LegSpec, m Market, prior []TradeLeg) (TradeLeg, error) {
	leg := TradeLeg{Spec: spec, Qty: spec.Qty}
	if leg.Qty == 0 {
		leg.Qty = 1
	}
	if leg.Qty < 0 {
		return TradeLeg{}, fmt.Errorf("%w: negative quantity %d", ErrInvalidLeg, spec.Qty)
	}

	leg.Side = amm.Buy
	if spec.Side != "" {
		side, err := amm.ParseSide(spec.Side)
		if err != nil {
			return TradeLeg{}, fmt.Errorf("%w: %v", ErrInvalidLeg, err)
		}
		leg.Side = side
	}

	if strings.EqualFold(strings.TrimSpace(spec.OptionType), Stock) {
		leg.OptionType = Stock
		leg.Strike = m.UnderlyingPrice
		leg.Premium = m.UnderlyingPrice
		if spec.Premium > 0 {
			leg.Premium = spec.Premium
		}
		leg.Greeks = pricing.Greeks{Delta: 1}
		return leg, nil
	}

	optionType := pricing.Call
	if spec.OptionType != "" {
		t, err := pricing.ParseOptionType(spec.OptionType)
		if err != nil {
			return TradeLeg{}, fmt.Errorf("%w: %v", ErrInvalidLeg, err)
		}
		optionType = t
	}
	leg.OptionType = string(optionType)

	strike, err := ResolveStrike(spec.StrikeRule, optionType, m, prior)
	if err != nil {
		return TradeLeg{}, err
	}
	if !(strike > 0) {
		return TradeLeg{}, fmt.Errorf("%w: rule %q resolved to strike %v", ErrInvalidLeg, spec.StrikeRule, strike)
	}
	leg.Strike = strike

	params := pricing.ContractParams{
		UnderlyingPrice:   m.UnderlyingPrice,
		StrikePrice:       strike,
		DaysToExpiration:  m.DaysToExpiry,
		ImpliedVolatility: m.ImpliedVolatility,
		Type:              optionType,
		RiskFreeRate:      m.RiskFreeRate,
	}
	leg.Premium = spec.Premium
	if leg.Premium == 0 {
		leg.Premium = pricing.Price(params)
	}
	leg.Greeks = pricing.ComputeGreeks(params)
	return leg, nil
}
