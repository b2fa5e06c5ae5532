package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/pricing"
	"github.com/contactkeval/option-amm/internal/report"
)

// poolFlags describe the pool a quote executes against.
type poolFlags struct {
	liquidity float64
	volume    float64
	size      float64
	side      string
}

func (f *poolFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.liquidity, "liquidity", 0, "Pool liquidity (config default when unset)")
	cmd.Flags().Float64Var(&f.volume, "volume", 0, "Trailing pool volume (config default when unset)")
	cmd.Flags().Float64Var(&f.size, "size", 1, "Trade size in contracts")
	cmd.Flags().StringVar(&f.side, "side", "buy", "Trade side: buy or sell")
}

func (f *poolFlags) request(cmd *cobra.Command, c *contractFlags) (amm.QuoteRequest, error) {
	side, err := amm.ParseSide(f.side)
	if err != nil {
		return amm.QuoteRequest{}, err
	}
	p, err := c.params(cmd)
	if err != nil {
		return amm.QuoteRequest{}, err
	}
	r := amm.QuoteRequest{
		ContractParams: p,
		PoolLiquidity:  flagOr(cmd, "liquidity", f.liquidity, cfg.Pool.Liquidity),
		TotalVolume:    flagOr(cmd, "volume", f.volume, cfg.Pool.Volume),
		TradeSize:      f.size,
		Side:           side,
	}
	return r, nil
}

var (
	quoteContract  contractFlags
	quotePool      poolFlags
	ticketContract contractFlags
	ticketPool     poolFlags
	ticketOI       float64

	chainSymbol     string
	chainUnderlying float64
	chainExpiry     string
	chainWidth      int
	chainInterval   float64
	chainDTE        int
	chainMatch      string
	chainIV         float64
	chainOut        string
)

// chainExpiration parses --expiry, or picks the monthly expiry matching
// --dte days from now.
func chainExpiration(now time.Time) (time.Time, error) {
	if chainExpiry != "" {
		exp, err := time.ParseInLocation("2006-01-02", chainExpiry, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("--expiry: %w", err)
		}
		// options stop trading at the close
		return exp.Add(16 * time.Hour), nil
	}
	mode, err := pricing.ParseMatchMode(chainMatch)
	if err != nil {
		return time.Time{}, err
	}
	exp := pricing.ResolveExpiration(now, chainDTE, pricing.MonthlyExpiries(now, 24), mode)
	if exp.IsZero() {
		return time.Time{}, fmt.Errorf("no monthly expiry %s %d days out", mode, chainDTE)
	}
	return exp, nil
}

var quoteCmd = &cobra.Command{
	Use:     "quote",
	Short:   "Executable AMM quote for one contract",
	Example: `  option-amm quote --underlying 50000 --strike 55000 --days 30 --iv 45 --size 1 --side buy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := quotePool.request(cmd, &quoteContract)
		if err != nil {
			return err
		}
		q, err := amm.NewEngine(cfg.AMM).Quote(r)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), q)
	},
}

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Full trade ticket: quote, Greeks, slippage, pool impact and collateral",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ticketPool.request(cmd, &ticketContract)
		if err != nil {
			return err
		}
		t, err := amm.NewEngine(cfg.AMM).Ticket(amm.TicketRequest{QuoteRequest: r, OpenInterest: ticketOI})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), t)
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Option chain of calls and puts for one expiry",
	Example: `  option-amm chain --symbol SPY --dte 45 --match higher
  option-amm chain --symbol SPY --expiry 2026-12-18
  option-amm chain --underlying 187.5 --expiry 2026-12-18 --width 3 --out reports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		exp, err := chainExpiration(now)
		if err != nil {
			return err
		}

		price, err := resolveUnderlying(cmd.Context(), chainSymbol, chainUnderlying)
		if err != nil {
			return err
		}

		ch, err := amm.NewEngine(cfg.AMM).Chain(amm.ChainRequest{
			Underlying:        chainSymbol,
			UnderlyingPrice:   price,
			Expiration:        exp,
			Now:               now,
			ImpliedVolatility: flagOr(cmd, "iv", chainIV, cfg.Pricing.ImpliedVolatility),
			RiskFreeRate:      cfg.Pricing.RiskFreeRate,
			PoolLiquidity:     cfg.Pool.Liquidity,
			TotalVolume:       cfg.Pool.Volume,
			StrikeInterval:    chainInterval,
			Width:             chainWidth,
		})
		if err != nil {
			return err
		}

		if chainOut != "" {
			if err := ensureDir(chainOut); err != nil {
				return err
			}
			if err := report.WriteJSON(ch, chainOut, "chain"); err != nil {
				return err
			}
			if err := report.WriteChainCSV(ch, chainOut); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(ch.Rows), filepath.Join(chainOut, "chain.csv"))
		}
		return printJSON(cmd.OutOrStdout(), ch)
	},
}

func init() {
	quoteContract.register(quoteCmd)
	quotePool.register(quoteCmd)

	ticketContract.register(ticketCmd)
	ticketPool.register(ticketCmd)
	ticketCmd.Flags().Float64Var(&ticketOI, "open-interest", 0, "Pool open interest before the trade")

	chainCmd.Flags().StringVar(&chainSymbol, "symbol", "", "Underlying symbol")
	chainCmd.Flags().Float64Var(&chainUnderlying, "underlying", 0, "Underlying price (resolved from --symbol when zero)")
	chainCmd.Flags().StringVar(&chainExpiry, "expiry", "", "Expiration date, YYYY-MM-DD (overrides --dte)")
	chainCmd.Flags().IntVar(&chainDTE, "dte", 30, "Target days to expiry, matched against monthly expirations")
	chainCmd.Flags().StringVar(&chainMatch, "match", "nearest", "Expiry match: exact, higher, lower or nearest")
	chainCmd.Flags().IntVar(&chainWidth, "width", 5, "Strikes on each side of the money")
	chainCmd.Flags().Float64Var(&chainInterval, "interval", 0, "Strike spacing (picked from price when zero)")
	chainCmd.Flags().Float64Var(&chainIV, "iv", 0, "Implied volatility in percent (config default when unset)")
	chainCmd.Flags().StringVar(&chainOut, "out", "", "Directory for chain.json and chain.csv")

	rootCmd.AddCommand(quoteCmd, ticketCmd, chainCmd)
}
