// Package data supplies underlying prices to the pricing engines.
//
// Providers form a chain: when one cannot answer, Resolve asks its
// Secondary. The engines never fetch prices themselves.
package data

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/contactkeval/option-amm/internal/logger"
)

// ErrNoPrice is returned when no provider in a chain knows the symbol.
var ErrNoPrice = errors.New("no price available")

// Provider supplies the current price of an underlying.
type Provider interface {
	Secondary() Provider
	UnderlyingPrice(ctx context.Context, symbol string) (float64, error)
}

// Resolve asks p and then each secondary in turn until one returns a
// positive price.
func Resolve(ctx context.Context, p Provider, symbol string) (float64, error) {
	var errs []error
	for cur := p; cur != nil; cur = cur.Secondary() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		price, err := cur.UnderlyingPrice(ctx, symbol)
		if err == nil && price > 0 {
			return price, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: non-positive price %v", ErrNoPrice, price)
		}
		logger.Debugf("event=provider_miss provider=%T symbol=%s err=%v", cur, symbol, err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, fmt.Errorf("%w: no provider configured", ErrNoPrice)
	}
	return 0, fmt.Errorf("%w for %s: %w", ErrNoPrice, symbol, errors.Join(errs...))
}

const (
	KindMassive     = "massive"
	KindMassiveREST = "massive_rest"
	KindCSV         = "csv"
	KindSynthetic   = "synthetic"
)

// Options selects and configures the provider chain. Providers are tried in
// the listed order.
type Options struct {
	Providers         []string           `yaml:"providers"`
	APIKey            string             `yaml:"api_key"`
	BaseURL           string             `yaml:"base_url"`
	RequestsPerSecond float64            `yaml:"requests_per_second"`
	CSVPath           string             `yaml:"csv_path"`
	SyntheticPrices   map[string]float64 `yaml:"synthetic_prices"`
	Seed              int64              `yaml:"seed"`
}

// NewChain builds the provider chain described by o. An empty list yields a
// lone synthetic provider.
func NewChain(o Options) (Provider, error) {
	kinds := o.Providers
	if len(kinds) == 0 {
		kinds = []string{KindSynthetic}
	}

	var next Provider
	for i := len(kinds) - 1; i >= 0; i-- {
		kind := strings.ToLower(strings.TrimSpace(kinds[i]))
		switch kind {
		case KindMassive:
			if o.APIKey == "" {
				return nil, fmt.Errorf("provider %q needs an api key", kind)
			}
			next = NewMassiveDataProvider(o.APIKey, o.RequestsPerSecond, next)
		case KindMassiveREST:
			if o.APIKey == "" {
				return nil, fmt.Errorf("provider %q needs an api key", kind)
			}
			next = NewMassiveRESTProvider(o.APIKey, o.BaseURL, next)
		case KindCSV:
			if o.CSVPath == "" {
				return nil, fmt.Errorf("provider %q needs csv_path", kind)
			}
			next = NewLocalCSVProvider(o.CSVPath, next)
		case KindSynthetic:
			next = NewSyntheticProvider(o.SyntheticPrices, o.Seed, next)
		default:
			return nil, fmt.Errorf("unknown provider kind %q", kinds[i])
		}
	}
	return next, nil
}

// --------------------------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------------------------

// OptionSymbolFromParts: improved OCC-like formatter (best-effort)
func OptionSymbolFromParts(underlying string, expiryDate time.Time, optionType string, strike float64) string {
	// OCC: <root><YYMMDD><C|P><strike*1000 padded to 8 digits>
	expDt := expiryDate.UTC().Format("060102")
	optType := "C"
	if strings.ToLower(optionType) == "put" || strings.ToLower(optionType) == "p" {
		optType = "P"
	}
	strikeInt := int(math.Round(strike * 1000))
	strFmt := fmt.Sprintf("%08d", strikeInt)
	return fmt.Sprintf("O:%s%s%s%s", strings.ToUpper(underlying), expDt, optType, strFmt)
}

// Closest finds the closest float64 in a sorted slice to the target value using binary search (sort.Search).
// Ties go to the higher value.
func Closest(numList []float64, target float64) float64 {
	n := len(numList)
	if n == 0 {
		panic("empty list")
	}

	i := sort.Search(n, func(i int) bool {
		return numList[i] >= target
	})

	if i == 0 {
		return numList[0]
	}
	if i == n {
		return numList[n-1]
	}

	before := numList[i-1]
	after := numList[i]

	if math.Abs(before-target) < math.Abs(after-target) {
		return before
	}
	return after
}
