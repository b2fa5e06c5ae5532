package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/portfolio"
	"github.com/contactkeval/option-amm/internal/report"
	"github.com/contactkeval/option-amm/internal/settlement"
)

var (
	positionsFile string
	priceOverride map[string]string
	asOf          string
	settleOut     string
	portfolioIV   float64
)

func loadPositions(path string) ([]settlement.Position, error) {
	if path == "" {
		return nil, fmt.Errorf("--positions is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}
	var out []settlement.Position
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("invalid positions %s: %w", path, err)
	}
	return out, nil
}

func asOfTime() (time.Time, error) {
	if asOf == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, asOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("--as-of: %w", err)
	}
	return t, nil
}

// underlyingPrices takes --price overrides first and resolves the remaining
// symbols through the provider chain.
func underlyingPrices(ctx context.Context, positions []settlement.Position) (map[string]float64, error) {
	prices := make(map[string]float64, len(positions))
	for sym, v := range priceOverride {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("--price %s: %w", sym, err)
		}
		prices[strings.ToUpper(sym)] = f
	}
	for _, p := range positions {
		sym := strings.ToUpper(p.Symbol)
		if _, ok := prices[sym]; ok {
			continue
		}
		f, err := resolveUnderlying(ctx, sym, 0)
		if err != nil {
			return nil, err
		}
		prices[sym] = f
	}
	return prices, nil
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle expired positions at the underlying price",
	Example: `  option-amm settle --positions positions.json --price AAPL=160 --price TSLA=190.25
  option-amm settle --positions positions.json --as-of 2026-03-21T00:00:00Z --out reports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		positions, err := loadPositions(positionsFile)
		if err != nil {
			return err
		}
		now, err := asOfTime()
		if err != nil {
			return err
		}
		expired := settlement.Expired(positions, now)
		prices, err := underlyingPrices(cmd.Context(), expired)
		if err != nil {
			return err
		}

		records := make([]settlement.Record, 0, len(expired))
		for _, p := range expired {
			rec, err := settlement.Settle(p, decimal.NewFromFloat(prices[strings.ToUpper(p.Symbol)]), now)
			if err != nil {
				return fmt.Errorf("position %s: %w", p.ID, err)
			}
			records = append(records, rec)
		}
		logger.Infof("event=settlement_run positions=%d expired=%d", len(positions), len(records))

		if settleOut != "" {
			if err := ensureDir(settleOut); err != nil {
				return err
			}
			if err := report.WriteSettlementCSV(records, settleOut); err != nil {
				return err
			}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"records":  records,
			"summary":  settlement.Summarize(records),
			"expiring": settlement.ExpiringWithin(positions, now, 7*24*time.Hour),
		})
	},
}

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Mark open positions to theoretical value",
	RunE: func(cmd *cobra.Command, args []string) error {
		positions, err := loadPositions(positionsFile)
		if err != nil {
			return err
		}
		now, err := asOfTime()
		if err != nil {
			return err
		}
		prices, err := underlyingPrices(cmd.Context(), positions)
		if err != nil {
			return err
		}
		opts := portfolio.Options{
			ImpliedVolatility: flagOr(cmd, "iv", portfolioIV, cfg.Pricing.ImpliedVolatility),
			RiskFreeRate:      cfg.Pricing.RiskFreeRate,
		}
		v, err := portfolio.Value(positions, prices, now, opts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v)
	},
}

func init() {
	for _, c := range []*cobra.Command{settleCmd, portfolioCmd} {
		c.Flags().StringVar(&positionsFile, "positions", "", "Path to a JSON array of positions")
		c.Flags().StringToStringVar(&priceOverride, "price", nil, "Underlying price override, SYMBOL=PRICE")
		c.Flags().StringVar(&asOf, "as-of", "", "Evaluation time, RFC 3339 (now when empty)")
	}
	settleCmd.Flags().StringVar(&settleOut, "out", "", "Directory for settlements.csv")
	portfolioCmd.Flags().Float64Var(&portfolioIV, "iv", 0, "Implied volatility in percent (config default when unset)")

	rootCmd.AddCommand(settleCmd, portfolioCmd)
}
