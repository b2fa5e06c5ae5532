package onchain

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrNotFinite is returned for NaN and infinite amounts.
var ErrNotFinite = errors.New("amount is not finite")

func finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrNotFinite, v)
	}
	return nil
}

// ToFixed converts a display amount to base units with the given number of
// decimals, truncating toward zero.
func ToFixed(v float64, decimals int32) (uint64, error) {
	if err := finite(v); err != nil {
		return 0, err
	}
	d := decimal.NewFromFloat(v)
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %v", v)
	}
	fixed := d.Shift(decimals).Truncate(0)
	if fixed.BigInt().BitLen() > 64 {
		return 0, fmt.Errorf("amount %v overflows %d decimals", v, decimals)
	}
	return fixed.BigInt().Uint64(), nil
}

// FromFixed converts base units back to a display amount.
func FromFixed(v uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -decimals)
}

// Divergence compares an off-chain quote with the contract's price.
type Divergence struct {
	OffChain decimal.Decimal `json:"off_chain"`
	OnChain  decimal.Decimal `json:"on_chain"`
	Absolute decimal.Decimal `json:"absolute"`
	Relative decimal.Decimal `json:"relative"` // |on - off| / off, zero when off is zero
}

// Compare reports how far the contract's price, in base units with the given
// decimals, sits from an off-chain price.
func Compare(offChain float64, onChain uint64, decimals int32) (Divergence, error) {
	if err := finite(offChain); err != nil {
		return Divergence{}, err
	}
	off := decimal.NewFromFloat(offChain)
	on := FromFixed(onChain, decimals)
	abs := on.Sub(off).Abs()
	rel := decimal.Zero
	if !off.IsZero() {
		rel = abs.Div(off.Abs()).Round(8)
	}
	return Divergence{OffChain: off, OnChain: on, Absolute: abs, Relative: rel}, nil
}
