package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/contactkeval/option-amm/internal/onchain"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// Bitcoin-anchored blocks arrive about every ten minutes.
const blocksPerDay = 144

var (
	ocStrike     float64
	ocOracle     float64
	ocLiquidity  float64
	ocIV         float64
	ocType       string
	ocExpiry     uint64
	ocHeight     uint64
	ocQuantity   uint64
	ocSide       string
	ocMaxCost    float64
	ocMinPremium float64
	ocBalance    float64
)

var onchainCmd = &cobra.Command{
	Use:   "onchain",
	Short: "Price a trade with the contract's fixed-point model",
	Long: `Create a pool in an in-memory registry and price, buy or sell against it
with the contract's integer arithmetic. Amounts are given in display units and
converted to 8-decimal base units. The result is compared with the off-chain
Black-Scholes price of the same contract.`,
	Example: `  option-amm onchain --strike 1 --oracle 1.05 --liquidity 10000 --expiry-block 1000 --height 900 --quantity 10
  option-amm onchain --type put --strike 1 --oracle 0.95 --liquidity 50000 --side sell --balance 10`,
	RunE: runOnchain,
}

func runOnchain(cmd *cobra.Command, args []string) error {
	t, err := pricing.ParseOptionType(ocType)
	if err != nil {
		return err
	}
	strike, err := onchain.ToFixed(ocStrike, 8)
	if err != nil {
		return fmt.Errorf("--strike: %w", err)
	}
	oracle, err := onchain.ToFixed(ocOracle, 8)
	if err != nil {
		return fmt.Errorf("--oracle: %w", err)
	}
	liquidity, err := onchain.ToFixed(ocLiquidity, 8)
	if err != nil {
		return fmt.Errorf("--liquidity: %w", err)
	}

	const owner = "deployer"
	reg := onchain.NewRegistry(owner)
	pool, err := reg.CreatePool(owner, onchain.PoolParams{
		ID:                "cli",
		StrikePrice:       strike,
		ExpirationBlock:   ocExpiry,
		InitialLiquidity:  liquidity,
		Type:              t,
		ImpliedVolatility: uint64(math.Round(ocIV * 100)),
	})
	if err != nil {
		return err
	}

	b, err := onchain.PriceDetail(pool, ocQuantity, oracle, ocHeight)
	if err != nil {
		return err
	}
	out := map[string]any{"pool": pool, "price": b}

	switch ocSide {
	case "price":
	case "buy":
		maxCost, err := onchain.ToFixed(ocMaxCost, 8)
		if err != nil {
			return fmt.Errorf("--max-cost: %w", err)
		}
		if maxCost == 0 {
			maxCost = math.MaxUint64
		}
		cost, err := reg.Buy(pool.ID, ocQuantity, maxCost, oracle, ocHeight)
		if err != nil {
			return err
		}
		out["cost"] = onchain.FromFixed(cost, 8)
	case "sell":
		minPremium, err := onchain.ToFixed(ocMinPremium, 8)
		if err != nil {
			return fmt.Errorf("--min-premium: %w", err)
		}
		balance, err := onchain.ToFixed(ocBalance, 8)
		if err != nil {
			return fmt.Errorf("--balance: %w", err)
		}
		res, err := reg.Sell(pool.ID, ocQuantity, minPremium, oracle, ocHeight, balance)
		if err != nil {
			return err
		}
		out["sell"] = res
	default:
		return fmt.Errorf("--side must be price, buy or sell, got %q", ocSide)
	}

	days := int(math.Ceil(float64(ocExpiry-min(ocHeight, ocExpiry)) / blocksPerDay))
	offChain := pricing.Price(pricing.ContractParams{
		UnderlyingPrice:   ocOracle,
		StrikePrice:       ocStrike,
		DaysToExpiration:  days,
		ImpliedVolatility: ocIV,
		Type:              t,
		RiskFreeRate:      cfg.Pricing.RiskFreeRate,
	})
	d, err := onchain.Compare(offChain, b.Final, 8)
	if err != nil {
		return err
	}
	out["divergence"] = d

	return printJSON(cmd.OutOrStdout(), out)
}

func init() {
	f := onchainCmd.Flags()
	f.Float64Var(&ocStrike, "strike", 1, "Strike price")
	f.Float64Var(&ocOracle, "oracle", 1, "Oracle price of the underlying")
	f.Float64Var(&ocLiquidity, "liquidity", 10_000, "Initial pool liquidity")
	f.Float64Var(&ocIV, "iv", 45, "Pool implied volatility in percent")
	f.StringVar(&ocType, "type", "call", "Option type: call or put")
	f.Uint64Var(&ocExpiry, "expiry-block", 1000, "Expiration block height")
	f.Uint64Var(&ocHeight, "height", 900, "Current block height")
	f.Uint64Var(&ocQuantity, "quantity", 1, "Contracts to trade")
	f.StringVar(&ocSide, "side", "price", "price, buy or sell")
	f.Float64Var(&ocMaxCost, "max-cost", 0, "Buy slippage limit (unlimited when zero)")
	f.Float64Var(&ocMinPremium, "min-premium", 0, "Sell slippage limit")
	f.Float64Var(&ocBalance, "balance", 0, "Seller collateral balance")

	rootCmd.AddCommand(onchainCmd)
}
