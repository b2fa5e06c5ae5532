package data

import (
	"context"
	"fmt"
	"strings"

	massive "github.com/massive-com/client-go/v2/rest"
	"github.com/massive-com/client-go/v2/rest/models"
	"golang.org/x/time/rate"

	"github.com/contactkeval/option-amm/internal/logger"
)

// previousCloser is the slice of the Massive SDK client this package uses.
type previousCloser interface {
	GetPreviousCloseAgg(ctx context.Context, params *models.GetPreviousCloseAggParams, opts ...models.RequestOption) (*models.GetPreviousCloseAggResponse, error)
}

// massiveDataProvider prices underlyings from Massive's previous-day
// aggregate, pacing requests with a token bucket.
type massiveDataProvider struct {
	client    previousCloser
	limiter   *rate.Limiter
	secondary Provider
}

// defaultRequestsPerSecond keeps the free tier's five calls a minute.
const defaultRequestsPerSecond = 5.0 / 60

// NewMassiveDataProvider constructs a Massive-backed data provider.
//
// Parameters:
//   - apiKey: Massive API key for authentication
//   - rps: request budget per second; zero uses the free-tier budget
//   - secondary: fallback provider, may be nil
func NewMassiveDataProvider(apiKey string, rps float64, secondary Provider) *massiveDataProvider {
	logger.Infof("initializing Massive data provider")
	return newMassiveDataProvider(massive.New(apiKey), rps, secondary)
}

func newMassiveDataProvider(client previousCloser, rps float64, secondary Provider) *massiveDataProvider {
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	return &massiveDataProvider{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		secondary: secondary,
	}
}

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// UnderlyingPrice returns the adjusted previous-day close for symbol.
func (massiveDataProv *massiveDataProvider) UnderlyingPrice(ctx context.Context, symbol string) (float64, error) {
	if err := massiveDataProv.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	ticker := strings.ToUpper(strings.TrimSpace(symbol))
	params := models.GetPreviousCloseAggParams{Ticker: ticker}.WithAdjusted(true)

	logger.Debugf("event=massive_prev_close ticker=%s", ticker)
	res, err := massiveDataProv.client.GetPreviousCloseAgg(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("massive previous close %s: %w", ticker, err)
	}
	if res == nil || len(res.Results) == 0 {
		return 0, fmt.Errorf("%w: massive returned no aggregate for %s", ErrNoPrice, ticker)
	}
	return res.Results[0].Close, nil
}
