package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/contactkeval/option-amm/internal/report"
	"github.com/contactkeval/option-amm/internal/strategy"
)

var (
	strategyPreset     string
	strategyFile       string
	strategySymbol     string
	strategyUnderlying float64
	strategyDTE        int
	strategyIV         float64
	strategyOut        string
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Resolve a multi-leg strategy and analyze its expiry payoff",
	Long: `Resolve the legs of a preset or a JSON strategy file against the current
underlying price, then sample the expiry P&L to report max profit, max loss,
breakevens and net Greeks.

Presets: ` + strings.Join(strategy.Presets(), ", "),
	Example: `  option-amm strategy --preset iron_condor --symbol SPY --dte 45
  option-amm strategy --file covered_call.json --underlying 187.5 --out reports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadStrategy()
		if err != nil {
			return err
		}
		price, err := resolveUnderlying(cmd.Context(), strategySymbol, strategyUnderlying)
		if err != nil {
			return err
		}

		m := strategy.Market{
			UnderlyingPrice:   price,
			DaysToExpiry:      strategyDTE,
			ImpliedVolatility: flagOr(cmd, "iv", strategyIV, cfg.Pricing.ImpliedVolatility),
			RiskFreeRate:      cfg.Pricing.RiskFreeRate,
			StrikeInterval:    cfg.Strategy.StrikeInterval,
		}

		legs, err := strategy.Plan(spec, m)
		if err != nil {
			return err
		}
		rng := strategy.Range{Low: cfg.Strategy.RangeLow, High: cfg.Strategy.RangeHigh, Steps: cfg.Strategy.Steps}
		a, err := strategy.Analyze(spec.Name, legs, price, rng)
		if err != nil {
			return err
		}

		if strategyOut != "" {
			if err := ensureDir(strategyOut); err != nil {
				return err
			}
			if err := report.WriteJSON(a, strategyOut, "analysis"); err != nil {
				return err
			}
			if err := report.WritePayoffCSV(a, strategyOut); err != nil {
				return err
			}
		}
		return printJSON(cmd.OutOrStdout(), a)
	},
}

func loadStrategy() (strategy.StrategySpec, error) {
	switch {
	case strategyFile != "":
		b, err := os.ReadFile(strategyFile)
		if err != nil {
			return strategy.StrategySpec{}, fmt.Errorf("reading strategy: %w", err)
		}
		var spec strategy.StrategySpec
		if err := json.Unmarshal(b, &spec); err != nil {
			return strategy.StrategySpec{}, fmt.Errorf("invalid strategy %s: %w", strategyFile, err)
		}
		return spec, nil
	case strategyPreset != "":
		return strategy.Preset(strategyPreset)
	}
	return strategy.StrategySpec{}, fmt.Errorf("one of --preset or --file is required")
}

func init() {
	strategyCmd.Flags().StringVar(&strategyPreset, "preset", "", "Built-in strategy name")
	strategyCmd.Flags().StringVar(&strategyFile, "file", "", "Path to a JSON strategy definition")
	strategyCmd.Flags().StringVar(&strategySymbol, "symbol", "", "Underlying symbol")
	strategyCmd.Flags().Float64Var(&strategyUnderlying, "underlying", 0, "Underlying price (resolved from --symbol when zero)")
	strategyCmd.Flags().IntVar(&strategyDTE, "dte", 30, "Days to expiry; the strategy file's dte wins when set")
	strategyCmd.Flags().Float64Var(&strategyIV, "iv", 0, "Implied volatility in percent (config default when unset)")
	strategyCmd.Flags().StringVar(&strategyOut, "out", "", "Directory for analysis.json and payoff.csv")

	rootCmd.AddCommand(strategyCmd)
}
