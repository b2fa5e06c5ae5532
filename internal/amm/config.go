package amm

import (
	"errors"
	"fmt"
)

// Config holds the tunable constants of the quote engine. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	BaseSpread float64 `yaml:"base_spread" json:"base_spread"`
	MinSpread  float64 `yaml:"min_spread" json:"min_spread"`
	MaxSpread  float64 `yaml:"max_spread" json:"max_spread"`

	ReferenceLiquidity float64 `yaml:"reference_liquidity" json:"reference_liquidity"` // liquidity factor is ReferenceLiquidity / pool
	ReferenceVolume    float64 `yaml:"reference_volume" json:"reference_volume"`
	MinVolume          float64 `yaml:"min_volume" json:"min_volume"`

	BaseFee           float64 `yaml:"base_fee" json:"base_fee"`
	ImpactCoefficient float64 `yaml:"impact_coefficient" json:"impact_coefficient"`
	ImpactExponent    float64 `yaml:"impact_exponent" json:"impact_exponent"`

	SlippageCoefficient float64 `yaml:"slippage_coefficient" json:"slippage_coefficient"`
	SlippageExponent    float64 `yaml:"slippage_exponent" json:"slippage_exponent"`
	SlippageTolerance   float64 `yaml:"slippage_tolerance" json:"slippage_tolerance"`
	SlippageWarning     float64 `yaml:"slippage_warning" json:"slippage_warning"`

	MinSimulatedLiquidity float64 `yaml:"min_simulated_liquidity" json:"min_simulated_liquidity"`
	SimulatedPriceDrift   float64 `yaml:"simulated_price_drift" json:"simulated_price_drift"` // mid moves by ratio * drift
	MinSimulatedPrice     float64 `yaml:"min_simulated_price" json:"min_simulated_price"`

	MaxOpenInterestRatio   float64 `yaml:"max_open_interest_ratio" json:"max_open_interest_ratio"`
	CollateralizationRatio float64 `yaml:"collateralization_ratio" json:"collateralization_ratio"`
	LPFeeRate              float64 `yaml:"lp_fee_rate" json:"lp_fee_rate"`
}

// DefaultConfig returns the calibration used by the trading dashboard.
func DefaultConfig() Config {
	return Config{
		BaseSpread: 0.02,
		MinSpread:  0.01,
		MaxSpread:  0.15,

		ReferenceLiquidity: 1_000_000,
		ReferenceVolume:    100_000,
		MinVolume:          1000,

		BaseFee:           0.003,
		ImpactCoefficient: 0.1,
		ImpactExponent:    1.5,

		SlippageCoefficient: 0.1,
		SlippageExponent:    1.2,
		SlippageTolerance:   0.05,
		SlippageWarning:     0.02,

		MinSimulatedLiquidity: 1000,
		SimulatedPriceDrift:   0.01,
		MinSimulatedPrice:     0.01,

		MaxOpenInterestRatio:   0.8,
		CollateralizationRatio: 1.25,
		LPFeeRate:              0.003,
	}
}

var ErrInvalidConfig = errors.New("invalid amm config")

// Validate rejects configurations the formulas cannot evaluate.
func (c Config) Validate() error {
	positive := map[string]float64{
		"base_spread":          c.BaseSpread,
		"min_spread":           c.MinSpread,
		"reference_liquidity":  c.ReferenceLiquidity,
		"reference_volume":     c.ReferenceVolume,
		"min_volume":           c.MinVolume,
		"impact_coefficient":   c.ImpactCoefficient,
		"impact_exponent":      c.ImpactExponent,
		"slippage_coefficient": c.SlippageCoefficient,
		"slippage_exponent":    c.SlippageExponent,
		"slippage_tolerance":   c.SlippageTolerance,
	}
	for name, v := range positive {
		if !(v > 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.MinSpread > c.MaxSpread {
		return fmt.Errorf("%w: spread band [%v, %v] is inverted", ErrInvalidConfig, c.MinSpread, c.MaxSpread)
	}
	if c.BaseFee < 0 || c.LPFeeRate < 0 {
		return fmt.Errorf("%w: fees must not be negative", ErrInvalidConfig)
	}
	if !(c.MaxOpenInterestRatio > 0 && c.MaxOpenInterestRatio <= 1) {
		return fmt.Errorf("%w: max_open_interest_ratio must be in (0, 1], got %v", ErrInvalidConfig, c.MaxOpenInterestRatio)
	}
	if c.CollateralizationRatio < 1 {
		return fmt.Errorf("%w: collateralization_ratio below 1", ErrInvalidConfig)
	}
	return nil
}
