package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/kashvicreations/kashvi-backend/pkg/config"
)

// RateFetcher retrieves the current silver rate from an external source.
type RateFetcher interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

type httpFetcher struct {
	cfg    config.SilverRateConfig
	client *http.Client
}

type rateResponse struct {
	PricePerGram string `json:"price_per_gram"`
	Currency     string `json:"currency"`
}

// NewHTTPFetcher builds a fetcher against the configured rate source.
func NewHTTPFetcher(cfg config.SilverRateConfig) (RateFetcher, error) {
	if cfg.SourceURL == "" {
		return nil, fmt.Errorf("silver rate source url required")
	}
	return &httpFetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}, nil
}

func (f *httpFetcher) Fetch(ctx context.Context) (decimal.Decimal, error) {
	var rate decimal.Decimal

	backoff := retry.WithMaxRetries(uint64(f.cfg.FetchRetries), retry.NewExponential(f.cfg.FetchTimeout/4))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := f.fetchOnce(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		rate = fetched
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

func (f *httpFetcher) fetchOnce(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.SourceURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}
	if f.cfg.SourceAPIKey != "" {
		req.Header.Set("X-Api-Key", f.cfg.SourceAPIKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch silver rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}

	rate, err := decimal.NewFromString(payload.PricePerGram)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", payload.PricePerGram, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate source returned non-positive rate %s", rate)
	}
	return rate, nil
}
