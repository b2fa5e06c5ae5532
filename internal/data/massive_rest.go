package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contactkeval/option-amm/internal/logger"
)

const defaultMassiveBaseURL = "https://api.massive.com"

// massiveRESTProvider reads the previous-day aggregate over plain HTTP. It
// serves deployments that route through a proxy or mirror the SDK cannot
// target.
type massiveRESTProvider struct {
	// APIKey used for authenticating requests with Massive.
	APIKey string

	// Client is the HTTP client used to make API requests.
	Client *http.Client

	// BaseURL is the root endpoint (e.g., https://api.massive.com).
	BaseURL string

	secondary Provider
}

// massivePrevCloseResp models /v2/aggs/ticker/{ticker}/prev.
type massivePrevCloseResp struct {
	Status  string `json:"status"`
	Results []struct {
		Ticker string  `json:"T"`
		Close  float64 `json:"c"`
		Time   int64   `json:"t"`
	} `json:"results"`
}

// NewMassiveRESTProvider constructs the HTTP variant. An empty baseURL uses
// the public API.
func NewMassiveRESTProvider(apiKey, baseURL string, secondary Provider) *massiveRESTProvider {
	if baseURL == "" {
		baseURL = defaultMassiveBaseURL
	}
	return &massiveRESTProvider{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		BaseURL:   strings.TrimRight(baseURL, "/"),
		secondary: secondary,
	}
}

func (p *massiveRESTProvider) Secondary() Provider {
	return p.secondary
}

// UnderlyingPrice returns the adjusted previous-day close for symbol.
func (p *massiveRESTProvider) UnderlyingPrice(ctx context.Context, symbol string) (float64, error) {
	ticker := strings.ToUpper(strings.TrimSpace(symbol))

	q := url.Values{}
	q.Set("adjusted", "true")
	q.Set("apiKey", p.APIKey)
	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev?%s", p.BaseURL, url.PathEscape(ticker), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := p.processGetRequest(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("massive prev close %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	var body massivePrevCloseResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode prev close %s: %w", ticker, err)
	}
	if len(body.Results) == 0 {
		return 0, fmt.Errorf("%w: no aggregate for %s", ErrNoPrice, ticker)
	}

	logger.Tracef("event=massive_rest_prev_close ticker=%s close=%f", ticker, body.Results[0].Close)
	return body.Results[0].Close, nil
}

// processGetRequest executes an HTTP GET request with rate-limit handling.
//
// Behavior:
//   - Retries on HTTP 429 after the Retry-After delay, or at the next
//     minute boundary when none is given
//   - Stops when ctx is done
//   - Returns an error for other status codes >= 400
func (p *massiveRESTProvider) processGetRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	for {
		resp, err := p.Client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusTooManyRequests {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		wait := retryAfter(resp.Header.Get("Retry-After"), time.Now())
		logger.Infof("rate limit hit, sleeping for %s", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func retryAfter(header string, now time.Time) time.Duration {
	if header != "" {
		if secs, err := time.ParseDuration(strings.TrimSpace(header) + "s"); err == nil && secs >= 0 {
			return secs
		}
	}
	return now.Truncate(time.Minute).Add(time.Minute).Sub(now)
}
