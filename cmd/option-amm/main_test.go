package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())

	got := map[string]any{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), out.String())
	return got
}

func TestPriceCommand(t *testing.T) {
	got := run(t, "price", "--underlying", "100", "--strike", "100", "--days", "30", "--iv", "30", "--rate", "0.05")
	assert.InDelta(t, 3.630762, got["price"], 1e-5)
	assert.InDelta(t, 3.630762, got["time_value"], 1e-5)
}

func TestPriceCommand_ExplicitZeroVolatility(t *testing.T) {
	got := run(t, "price", "--underlying", "110", "--strike", "100", "--days", "30", "--iv", "0", "--rate", "0")
	assert.Equal(t, 10.0, got["price"])
	assert.Equal(t, 0.0, got["time_value"])
}

func TestOnchainCommand(t *testing.T) {
	got := run(t, "onchain", "--strike", "1", "--oracle", "1.05", "--liquidity", "10000",
		"--expiry-block", "1000", "--height", "900", "--quantity", "10")
	price := got["price"].(map[string]any)
	assert.Equal(t, 15342882590.0, price["final_price"])
	assert.Contains(t, got, "divergence")
}

func TestStrategyCommand_WritesPayoff(t *testing.T) {
	dir := t.TempDir()
	got := run(t, "strategy", "--preset", "long_call", "--underlying", "100", "--out", dir)
	assert.Equal(t, true, got["profit_unbounded"])

	_, err := os.Stat(filepath.Join(dir, "payoff.csv"))
	assert.NoError(t, err)
}

func TestSettleCommand(t *testing.T) {
	dir := t.TempDir()
	positions := filepath.Join(dir, "positions.json")
	require.NoError(t, os.WriteFile(positions, []byte(`[
		{"id":"c1","symbol":"AAPL","option_type":"call","strike_price":"150","expiration_date":"2026-03-20T20:00:00Z","contracts":2,"premium_paid":"5"},
		{"id":"p1","symbol":"AAPL","option_type":"put","strike_price":"140","expiration_date":"2026-03-20T20:00:00Z","contracts":1,"premium_paid":"3"}
	]`), 0644))

	got := run(t, "settle", "--positions", positions, "--price", "AAPL=160", "--as-of", "2026-03-21T00:00:00Z")
	summary := got["summary"].(map[string]any)
	assert.Equal(t, 2.0, summary["count"])
	assert.Equal(t, 1.0, summary["exercised"])
	assert.Equal(t, "7", summary["total_pnl"])
}

func TestChainCommand_PicksMonthlyExpiry(t *testing.T) {
	dir := t.TempDir()
	got := run(t, "chain", "--underlying", "100", "--dte", "30", "--width", "1", "--out", dir)
	assert.Len(t, got["rows"], 3)

	exp, err := time.Parse(time.RFC3339, got["expiration"].(string))
	require.NoError(t, err)
	assert.Equal(t, time.Friday, exp.Weekday())

	for _, name := range []string{"chain.csv", "chain.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
