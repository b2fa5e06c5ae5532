// Package testutil holds fixtures and golden-file helpers shared by package tests.
package testutil

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/contactkeval/option-amm/internal/pricing"
)

var Update = flag.Bool(
	"update",
	false,
	"update golden files",
)

// ATMCall is the 30-day at-the-money reference contract: S=K=100, 30% vol,
// 5% rate.
func ATMCall() pricing.ContractParams {
	return pricing.ContractParams{
		UnderlyingPrice:   100,
		StrikePrice:       100,
		DaysToExpiration:  30,
		ImpliedVolatility: 30,
		Type:              pricing.Call,
		RiskFreeRate:      0.05,
	}
}

// ATMPut is ATMCall with the put side.
func ATMPut() pricing.ContractParams {
	p := ATMCall()
	p.Type = pricing.Put
	return p
}

//
// --- Golden file helpers ---
//

func goldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// CompareWithGolden compares actual against testdata/<name>.golden, or
// rewrites the file when -update is set.
func CompareWithGolden(t *testing.T, name string, actual []byte) {
	t.Helper()

	path := goldenPath(name)

	if *Update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create testdata dir: %v", err)
		}
		if err := os.WriteFile(path, actual, 0644); err != nil {
			t.Fatalf("failed to write golden file: %v", err)
		}
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read golden file: %v", err)
	}

	if !bytes.Equal(expected, actual) {
		t.Fatalf("golden mismatch for %s\nexpected:\n%s\nactual:\n%s",
			name, string(expected), string(actual))
	}
}
