package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// contractFlags are shared by every command that prices a single contract.
type contractFlags struct {
	symbol     string
	underlying float64
	strike     float64
	days       int
	iv         float64
	optionType string
	rate       float64
}

func (f *contractFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Underlying symbol, resolved through the data providers when --underlying is not set")
	cmd.Flags().Float64Var(&f.underlying, "underlying", 0, "Underlying price")
	cmd.Flags().Float64Var(&f.strike, "strike", 0, "Strike price")
	cmd.Flags().IntVar(&f.days, "days", 30, "Calendar days to expiration")
	cmd.Flags().Float64Var(&f.iv, "iv", 0, "Implied volatility in percent (config default when unset)")
	cmd.Flags().StringVar(&f.optionType, "type", "call", "Option type: call or put")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "Risk-free rate as a decimal (config default when unset)")
}

func (f *contractFlags) params(cmd *cobra.Command) (pricing.ContractParams, error) {
	t, err := pricing.ParseOptionType(f.optionType)
	if err != nil {
		return pricing.ContractParams{}, err
	}
	s, err := resolveUnderlying(cmd.Context(), f.symbol, f.underlying)
	if err != nil {
		return pricing.ContractParams{}, err
	}
	p := pricing.ContractParams{
		UnderlyingPrice:   s,
		StrikePrice:       f.strike,
		DaysToExpiration:  f.days,
		ImpliedVolatility: flagOr(cmd, "iv", f.iv, cfg.Pricing.ImpliedVolatility),
		Type:              t,
		RiskFreeRate:      flagOr(cmd, "rate", f.rate, cfg.Pricing.RiskFreeRate),
	}
	return p, amm.CheckContract(p)
}

var (
	priceFlags  contractFlags
	greeksFlags contractFlags
	ivFlags     contractFlags
	ivMarket    float64
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Black-Scholes price of a European option",
	Example: `  option-amm price --underlying 100 --strike 105 --days 30 --iv 30
  option-amm price --symbol SPY --strike 500 --type put`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := priceFlags.params(cmd)
		if err != nil {
			return err
		}
		price := pricing.Price(p)
		intrinsic := pricing.IntrinsicValue(p.Type, p.UnderlyingPrice, p.StrikePrice)
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"contract":        p,
			"price":           price,
			"intrinsic_value": intrinsic,
			"time_value":      price - intrinsic,
		})
	},
}

var greeksCmd = &cobra.Command{
	Use:   "greeks",
	Short: "Delta, gamma, theta, vega and rho in trader units",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := greeksFlags.params(cmd)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), pricing.ComputeGreeks(p))
	},
}

var ivCmd = &cobra.Command{
	Use:     "iv",
	Short:   "Solve implied volatility from a market price",
	Example: `  option-amm iv --underlying 100 --strike 100 --days 30 --market-price 3.63`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !(ivMarket > 0) {
			return fmt.Errorf("--market-price must be positive")
		}
		p, err := ivFlags.params(cmd)
		if err != nil {
			return err
		}
		res := pricing.SolveImpliedVolatility(ivMarket, p)
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"implied_volatility": res.Sigma * 100,
			"sigma":              res.Sigma,
			"iterations":         res.Iterations,
			"converged":          res.Converged,
		})
	},
}

func init() {
	priceFlags.register(priceCmd)
	greeksFlags.register(greeksCmd)
	ivFlags.register(ivCmd)
	ivCmd.Flags().Float64Var(&ivMarket, "market-price", 0, "Observed option price")

	rootCmd.AddCommand(priceCmd, greeksCmd, ivCmd)
}
