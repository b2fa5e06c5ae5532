package data

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
)

// synthDataProvider walks each symbol's price randomly around a base. It
// never fails, so it usually terminates a chain.
type synthDataProvider struct {
	mu        sync.Mutex
	rng       *rand.Rand
	base      map[string]float64
	last      map[string]float64
	secondary Provider
}

// Symbols without a configured base start here.
const defaultSyntheticBase = 100.0

// NewSyntheticProvider seeds the walk with seed; base prices are keyed by
// symbol, case-insensitively.
func NewSyntheticProvider(base map[string]float64, seed int64, secondary Provider) Provider {
	b := make(map[string]float64, len(base))
	for k, v := range base {
		b[strings.ToUpper(k)] = v
	}
	return &synthDataProvider{
		rng:       rand.New(rand.NewSource(seed)),
		base:      b,
		last:      map[string]float64{},
		secondary: secondary,
	}
}

func (synthDataProv *synthDataProvider) Secondary() Provider {
	return synthDataProv.secondary
}

// UnderlyingPrice returns the next step of a 1% daily-vol walk for symbol,
// kept within half and double of its base.
func (synthDataProv *synthDataProvider) UnderlyingPrice(_ context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	synthDataProv.mu.Lock()
	defer synthDataProv.mu.Unlock()

	base, ok := synthDataProv.base[symbol]
	if !ok || base <= 0 {
		base = defaultSyntheticBase
	}
	price, ok := synthDataProv.last[symbol]
	if !ok {
		price = base
	}

	price += synthDataProv.rng.NormFloat64() * 0.01 * price
	price = math.Max(base/2, math.Min(2*base, price))
	price = math.Round(price*100) / 100

	synthDataProv.last[symbol] = price
	return price, nil
}
