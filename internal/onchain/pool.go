// Package onchain mirrors the options pool contract's integer arithmetic so
// off-chain quotes can be compared against what a transaction would settle
// at. All amounts are unsigned fixed-point integers in the token's base unit;
// the package never converts them to floats except in Compare.
package onchain

import (
	"math/big"

	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
)

const (
	One8    uint64 = 100_000_000 // precision of sqrt(T) and the impact ratio
	FeeRate uint64 = 300         // added to the impact on the One8 scale

	// TimeValueDenominator calibrates vol * strike * sqrt(T * One8).
	TimeValueDenominator uint64 = 3_000_000

	BasisPoints                   uint64 = 10_000
	DefaultMaxOpenInterestRatio   uint64 = 8000
	DefaultCollateralizationRatio uint64 = 12500
)

// Pool is the contract's per-pool record.
type Pool struct {
	ID                     string             `json:"pool_id"`
	Underlying             string             `json:"underlying"`
	StrikePrice            uint64             `json:"strike_price"`
	ExpirationBlock        uint64             `json:"expiration_block"`
	Type                   pricing.OptionType `json:"option_type"`
	TotalLiquidity         uint64             `json:"total_liquidity"`
	TotalLPTokens          uint64             `json:"total_lp_tokens"`
	TotalOpenInterest      uint64             `json:"total_open_interest"`
	MaxOpenInterestRatio   uint64             `json:"max_open_interest_ratio"` // bps
	CollateralizationRatio uint64             `json:"collateralization_ratio"` // bps
	ImpliedVolatility      uint64             `json:"implied_volatility"`      // bps, 4500 = 45%
}

// PriceBreakdown exposes the intermediate values of OptionPrice.
type PriceBreakdown struct {
	Intrinsic   uint64 `json:"intrinsic_value"`
	TimeValue   uint64 `json:"time_value"`
	Theoretical uint64 `json:"theoretical_price"`
	ImpactRatio uint64 `json:"impact_ratio"`
	PriceImpact uint64 `json:"price_impact"`
	Final       uint64 `json:"final_price"`
}

// OptionPrice is the contract's read-only price for quantity contracts at
// the given oracle price and block height.
func OptionPrice(pool Pool, quantity, oraclePrice, blockHeight uint64) (uint64, error) {
	b, err := PriceDetail(pool, quantity, oraclePrice, blockHeight)
	return b.Final, err
}

// PriceDetail is OptionPrice with its intermediate terms. Products are
// carried as 128-bit contract uints; a term that does not fit, or a result
// above uint64, is ErrArithmetic with an empty breakdown.
func PriceDetail(pool Pool, quantity, oraclePrice, blockHeight uint64) (b PriceBreakdown, err error) {
	if oraclePrice == 0 {
		return PriceBreakdown{}, ErrPriceOracleRequired
	}
	if blockHeight > pool.ExpirationBlock {
		return PriceBreakdown{}, ErrExpired
	}
	defer func() {
		if err != nil {
			b = PriceBreakdown{}
		}
	}()
	defer guard(&err)

	one8 := u(One8)
	strike := u(pool.StrikePrice)
	tte := sub(u(pool.ExpirationBlock), u(blockHeight))

	var intrinsic uint64
	if pool.Type.IsCall() {
		if oraclePrice > pool.StrikePrice {
			intrinsic = oraclePrice - pool.StrikePrice
		}
	} else if pool.StrikePrice > oraclePrice {
		intrinsic = pool.StrikePrice - oraclePrice
	}

	sqrtTime := isqrt(mul(tte, one8))
	timeValue := div(mul(mul(u(pool.ImpliedVolatility), strike), sqrtTime), u(TimeValueDenominator))
	theoretical := add(u(intrinsic), timeValue)

	ratio := new(big.Int)
	if pool.TotalLiquidity > 0 {
		ratio = div(mul(mul(theoretical, u(quantity)), one8), u(pool.TotalLiquidity))
	}
	impact := add(u(FeeRate), div(mul(ratio, ratio), one8))
	final := div(mul(theoretical, add(one8, impact)), one8)

	b = PriceBreakdown{
		Intrinsic:   intrinsic,
		TimeValue:   narrow(timeValue),
		Theoretical: narrow(theoretical),
		ImpactRatio: narrow(ratio),
		PriceImpact: narrow(impact),
		Final:       narrow(final),
	}
	return b, nil
}

// Buy returns the cost charged for buying quantity contracts. The contract
// charges the single final price, not price times quantity.
func Buy(pool Pool, quantity, maxCost, oraclePrice, blockHeight uint64) (uint64, error) {
	if blockHeight > pool.ExpirationBlock {
		return 0, ErrExpired
	}
	cost, err := OptionPrice(pool, quantity, oraclePrice, blockHeight)
	if err != nil {
		return 0, err
	}
	if cost > maxCost {
		return 0, ErrSlippageExceeded
	}
	logger.Tracef("event=onchain_buy pool=%s qty=%d cost=%d", pool.ID, quantity, cost)
	return cost, nil
}

// SellResult is the outcome of writing options into a pool.
type SellResult struct {
	Premium    uint64 `json:"premium"`
	Collateral uint64 `json:"collateral"`
	Pool       Pool   `json:"pool"`
}

// Sell writes quantity contracts for a writer holding balance. The input
// pool is never modified; the returned Pool carries the new open interest.
func Sell(pool Pool, quantity, minPremium, oraclePrice, blockHeight, balance uint64) (res SellResult, err error) {
	if blockHeight > pool.ExpirationBlock {
		return SellResult{}, ErrExpired
	}
	premium, err := OptionPrice(pool, quantity, oraclePrice, blockHeight)
	if err != nil {
		return SellResult{}, err
	}

	defer guard(&err)
	bps := u(BasisPoints)
	notional := mul(u(premium), u(quantity))
	newOI := add(u(pool.TotalOpenInterest), notional)
	maxOI := div(mul(u(pool.TotalLiquidity), u(pool.MaxOpenInterestRatio)), bps)
	collateral := div(mul(notional, u(pool.CollateralizationRatio)), bps)

	if premium < minPremium {
		return SellResult{}, ErrSlippageExceeded
	}
	if u(balance).Cmp(collateral) < 0 {
		return SellResult{}, ErrInsufficientCollateral
	}
	if newOI.Cmp(maxOI) > 0 {
		return SellResult{}, ErrMaxUtilization
	}

	next := pool
	next.TotalOpenInterest = narrow(newOI)
	res = SellResult{Premium: premium, Collateral: narrow(collateral), Pool: next}
	logger.Tracef("event=onchain_sell pool=%s qty=%d premium=%d collateral=%d oi=%d", pool.ID, quantity, premium, res.Collateral, next.TotalOpenInterest)
	return res, nil
}
