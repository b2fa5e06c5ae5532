package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// localCSVProvider reads "symbol,price" rows from a local file. The file is
// loaded once on first use.
type localCSVProvider struct {
	path      string
	secondary Provider

	once    sync.Once
	prices  map[string]float64
	loadErr error
}

// NewLocalCSVProvider convenience constructor.
func NewLocalCSVProvider(path string, secondary Provider) *localCSVProvider {
	return &localCSVProvider{path: path, secondary: secondary}
}

func (localCSVProv *localCSVProvider) Secondary() Provider {
	return localCSVProv.secondary
}

func (localCSVProv *localCSVProvider) load() {
	f, err := os.Open(localCSVProv.path)
	if err != nil {
		localCSVProv.loadErr = fmt.Errorf("open prices file: %w", err)
		return
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		localCSVProv.loadErr = fmt.Errorf("read csv: %w", err)
		return
	}

	localCSVProv.prices = make(map[string]float64, len(records))
	for _, row := range records {
		if len(row) < 2 {
			continue
		}

		symbol := strings.ToUpper(strings.TrimSpace(row[0]))
		price, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			// header or malformed row
			continue
		}
		localCSVProv.prices[symbol] = price
	}
}

// UnderlyingPrice looks symbol up case-insensitively.
func (localCSVProv *localCSVProvider) UnderlyingPrice(_ context.Context, symbol string) (float64, error) {
	localCSVProv.once.Do(localCSVProv.load)
	if localCSVProv.loadErr != nil {
		return 0, localCSVProv.loadErr
	}

	if price, ok := localCSVProv.prices[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return price, nil
	}
	return 0, fmt.Errorf("%w: %s not in %s", ErrNoPrice, symbol, localCSVProv.path)
}
