// Package report writes chains, payoff curves and settlement runs to disk as
// JSON and CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/settlement"
	"github.com/contactkeval/option-amm/internal/strategy"
)

// WriteJSON writes v indented to outdir/name.json.
func WriteJSON(v any, outdir, name string) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, name+".json"), append(b, '\n'), 0644)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteChainCSV writes ch to outdir/chain.csv.
func WriteChainCSV(ch amm.Chain, outdir string) error {
	return writeFile(filepath.Join(outdir, "chain.csv"), func(w io.Writer) error { return ChainCSV(w, ch) })
}

// WritePayoffCSV writes the payoff curve of a to outdir/payoff.csv.
func WritePayoffCSV(a strategy.Analysis, outdir string) error {
	return writeFile(filepath.Join(outdir, "payoff.csv"), func(w io.Writer) error { return PayoffCSV(w, a) })
}

// WriteSettlementCSV writes records to outdir/settlements.csv.
func WriteSettlementCSV(records []settlement.Record, outdir string) error {
	return writeFile(filepath.Join(outdir, "settlements.csv"), func(w io.Writer) error { return SettlementCSV(w, records) })
}

func price(v float64) string { return fmt.Sprintf("%.4f", v) }

// ChainCSV writes one row per strike, calls then puts.
func ChainCSV(out io.Writer, ch amm.Chain) error {
	w := csv.NewWriter(out)
	headers := []string{"strike", "call_symbol", "call_bid", "call_ask", "call_mid", "call_delta",
		"put_symbol", "put_bid", "put_ask", "put_mid", "put_delta", "spread_pct"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, r := range ch.Rows {
		row := []string{
			fmt.Sprintf("%.2f", r.Strike),
			r.Call.Symbol, price(r.Call.Bid), price(r.Call.Ask), price(r.Call.Mid), price(r.Call.Delta),
			r.Put.Symbol, price(r.Put.Bid), price(r.Put.Ask), price(r.Put.Mid), price(r.Put.Delta),
			price(r.Call.Spread),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// PayoffCSV writes the sampled expiry P&L curve of a.
func PayoffCSV(out io.Writer, a strategy.Analysis) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"price", "pnl"}); err != nil {
		return err
	}
	for _, p := range a.Curve {
		if err := w.Write([]string{price(p.Price), price(p.PnL)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// SettlementCSV writes one row per settled position.
func SettlementCSV(out io.Writer, records []settlement.Record) error {
	w := csv.NewWriter(out)
	headers := []string{"id", "position_id", "symbol", "option_type", "strike", "expiration", "settlement_price",
		"contracts", "premium_paid", "settlement_value", "final_pnl", "exercised"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID, r.PositionID, r.Symbol, string(r.OptionType), r.Strike.StringFixed(2),
			r.Expiration.Format("2006-01-02"), r.SettlementPrice.StringFixed(2),
			fmt.Sprintf("%d", r.Contracts), r.PremiumPaid.StringFixed(2), r.SettlementValue.StringFixed(2),
			r.FinalPnL.StringFixed(2), fmt.Sprintf("%t", r.IsExercised),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
