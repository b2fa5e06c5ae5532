package strategy

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
)

var legRef = regexp.MustCompile(`\{LEG(\d+)\.(STRIKE|PREMIUM)\}`)

// ResolveStrike converts a strike expression into a concrete strike price.
//
// Supported formats:
//   - ATM
//   - ATM:+10, ATM:-5%
//   - ABS:600 (used as given, not rounded)
//   - DELTA:0.3 or DELTA:30
//   - {LEG1.STRIKE}+{LEG1.PREMIUM}, 2*{LEG2.STRIKE}-{LEG1.STRIKE}
//
// Parameters:
//   - strikeExpr: Strike expression
//   - optionType: Type of the leg being resolved, used by DELTA
//   - m: Pricing context; m.StrikeInterval must be positive
//   - legs: Previously resolved legs
//
// Returns:
//   - float64: Resolved strike price
//   - error: If expression cannot be evaluated
func ResolveStrike(strikeExpr string, optionType pricing.OptionType, m Market, legs []TradeLeg) (float64, error) {
	strikeExpr = strings.TrimSpace(strings.ToUpper(strikeExpr))
	logger.Debugf("event=resolve_strike expr=%s", strikeExpr)

	switch {
	case strikeExpr == "" || strikeExpr == "ATM":
		return roundToNearestStrike(m.UnderlyingPrice, m.StrikeInterval), nil

	case strings.HasPrefix(strikeExpr, "ATM:"):
		target, err := resolveATMOffset(strikeExpr[len("ATM:"):], m.UnderlyingPrice)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeExpression, strikeExpr, err)
		}
		return roundToNearestStrike(target, m.StrikeInterval), nil

	case strings.HasPrefix(strikeExpr, "ABS:"):
		abs, err := strconv.ParseFloat(strings.TrimPrefix(strikeExpr, "ABS:"), 64)
		if err != nil || !(abs > 0) {
			return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeExpression, strikeExpr)
		}
		return abs, nil

	case strings.HasPrefix(strikeExpr, "DELTA:"):
		deltaStr := strings.TrimPrefix(strikeExpr, "DELTA:")
		targetDelta, err := strconv.ParseFloat(deltaStr, 64)
		if err != nil {
			logger.Errorf("parse float failed for DELTA expression:%s, %v", deltaStr, err)
			return 0, fmt.Errorf("%w: invalid DELTA value: %v", ErrInvalidStrikeExpression, err)
		}
		if math.Abs(targetDelta) > 1 {
			targetDelta /= 100
		}
		sigma := m.ImpliedVolatility / 100
		years := pricing.DaysToYears(max(m.DaysToExpiry, 1))
		target, err := pricing.StrikeFromDelta(m.UnderlyingPrice, targetDelta, m.RiskFreeRate, 0, sigma, years, optionType.IsCall())
		if err != nil {
			logger.Errorf("resolve strike failed for DELTA expression:%s, %v", deltaStr, err)
			return 0, err
		}
		logger.Tracef("event=delta_strike delta=%.4f iv=%.4f years=%.4f strike=%.4f", targetDelta, sigma, years, target)
		return roundToNearestStrike(target, m.StrikeInterval), nil

	case strings.Contains(strikeExpr, "{LEG"):
		target, err := evaluateLegExpression(strikeExpr, legs)
		if err != nil {
			return 0, err
		}
		return roundToNearestStrike(target, m.StrikeInterval), nil
	}

	return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeExpression, strikeExpr)
}

func roundToNearestStrike(v, interval float64) float64 {
	return math.Round(v/interval) * interval
}

// resolveATMOffset applies an absolute or percentage offset to a price,
// rounded to cents.
func resolveATMOffset(offset string, asOfPrice float64) (float64, error) {
	if strings.HasSuffix(offset, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(offset, "%"), 64)
		if err != nil {
			return 0, err
		}
		return math.Round((asOfPrice+asOfPrice*pct/100)*100) / 100, nil
	}

	abs, err := strconv.ParseFloat(offset, 64)
	if err != nil {
		return 0, err
	}
	return math.Round((asOfPrice+abs)*100) / 100, nil
}

// evaluateLegExpression evaluates an arithmetic expression over the strikes
// and premiums of earlier legs. LEG1 is the first leg.
func evaluateLegExpression(expr string, legs []TradeLeg) (float64, error) {
	matches := legRef.FindAllStringSubmatch(expr, -1)
	if matches == nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeExpression, expr)
	}

	evalStr := expr
	for _, match := range matches {
		idx, _ := strconv.Atoi(match[1])
		idx-- // LEG1 -> index 0

		if idx < 0 || idx >= len(legs) {
			return 0, fmt.Errorf("%w: %s", ErrLegIndexOutOfRange, match[0])
		}

		value := legs[idx].Strike
		if match[2] == "PREMIUM" {
			value = legs[idx].Premium
		}
		evalStr = strings.Replace(evalStr, match[0], strconv.FormatFloat(value, 'f', -1, 64), 1)
	}

	evalExpr, err := govaluate.NewEvaluableExpression(evalStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeExpression, expr, err)
	}
	result, err := evalExpr.Evaluate(nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeExpression, expr, err)
	}

	f, ok := result.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeExpression, expr)
	}
	return f, nil
}
