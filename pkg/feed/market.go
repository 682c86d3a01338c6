package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMarketRateLimit = 10.0 // requests per second
	defaultMarketBurst     = 5
)

// marketRecord is the market feed's wire shape. The feed quotes prices in
// integer cents; MarketClient is the adapter boundary that divides by 100,
// so nothing downstream ever sees a cent value masquerading as a
// probability.
type marketRecord struct {
	ContractID   string    `json:"contract_id"`
	SportHint    string    `json:"sport_hint"`
	Title        string    `json:"title"`
	YesCents     int       `json:"yes_price_cents"`
	NoCents      int       `json:"no_price_cents"`
	Volume       float64   `json:"volume"`
	OpenInterest *float64  `json:"open_interest"`
	CloseTime    time.Time `json:"close_time"`
	Status       string    `json:"status"`
}

// MarketClient fetches yes/no contracts from the market feed.
type MarketClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// MarketOption configures a MarketClient.
type MarketOption func(*MarketClient)

// WithMarketBaseURL sets a custom base URL.
func WithMarketBaseURL(u string) MarketOption {
	return func(c *MarketClient) { c.baseURL = u }
}

// WithMarketHTTPClient sets a custom HTTP client.
func WithMarketHTTPClient(hc *http.Client) MarketOption {
	return func(c *MarketClient) { c.httpClient = hc }
}

// WithMarketRateLimit sets custom rate limiting.
func WithMarketRateLimit(rps float64, burst int) MarketOption {
	return func(c *MarketClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewMarketClient creates a market feed client.
func NewMarketClient(baseURL string, opts ...MarketOption) *MarketClient {
	c := &MarketClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultMarketRateLimit), defaultMarketBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListContracts fetches active contracts, optionally filtered by the
// feed's sport tag. Feeds tag inconsistently, so an empty sportHint
// fetches everything and leaves filtering to the matcher.
func (c *MarketClient) ListContracts(ctx context.Context, sportHint string) ([]MarketContract, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("market feed rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("status", string(ContractActive))
	if sportHint != "" {
		params.Set("sport", sportHint)
	}

	u := c.baseURL + "/contracts?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching contracts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("market feed returned %d: %s", resp.StatusCode, body)
	}

	var records []marketRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding contracts: %w", err)
	}

	contracts := make([]MarketContract, 0, len(records))
	for _, r := range records {
		contracts = append(contracts, MarketContract{
			ContractID:   r.ContractID,
			SportHint:    r.SportHint,
			Title:        r.Title,
			YesPrice:     float64(r.YesCents) / 100,
			NoPrice:      float64(r.NoCents) / 100,
			Volume:       r.Volume,
			OpenInterest: r.OpenInterest,
			CloseTime:    r.CloseTime,
			Status:       ContractStatus(r.Status),
		})
	}
	return contracts, nil
}
