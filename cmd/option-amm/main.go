package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contactkeval/option-amm/internal/config"
	"github.com/contactkeval/option-amm/internal/data"
	"github.com/contactkeval/option-amm/internal/logger"
)

var (
	configPath string
	verbosity  int

	cfg = config.Default()
)

// rootCmd is the base command for the option-amm CLI
var rootCmd = &cobra.Command{
	Use:   "option-amm",
	Short: "Option pricing and AMM quote engine",
	Long: `option-amm prices European options with Black-Scholes, turns them into
executable AMM quotes against a liquidity pool, and analyzes multi-leg
strategies and expirations.

Every subcommand prints JSON to stdout. Use 'option-amm serve' to expose the
same engines over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := logger.Configure(c.Logging); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		if cmd.Flags().Changed("verbosity") {
			logger.SetVerbosity(verbosity)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults apply when empty)")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", int(logger.Info), "Log verbosity: 0 error, 1 info, 2 debug, 3 trace")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveUnderlying returns price when it is set, otherwise looks symbol up
// through the configured provider chain.
func resolveUnderlying(ctx context.Context, symbol string, price float64) (float64, error) {
	if price > 0 {
		return price, nil
	}
	if symbol == "" {
		return 0, fmt.Errorf("one of --underlying or --symbol is required")
	}
	prov, err := data.NewChain(cfg.Data)
	if err != nil {
		return 0, err
	}
	p, err := data.Resolve(ctx, prov, symbol)
	if err != nil {
		return 0, err
	}
	logger.Infof("event=underlying_resolved symbol=%s price=%.4f", symbol, p)
	return p, nil
}

// flagOr returns v when the named flag was set on the command line and def
// otherwise, so an explicit zero is kept.
func flagOr(cmd *cobra.Command, name string, v, def float64) float64 {
	if cmd.Flags().Changed(name) {
		return v
	}
	return def
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	return nil
}
