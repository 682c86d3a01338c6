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
	defaultScheduleRateLimit = 5.0 // requests per second
	defaultScheduleBurst     = 2
)

// ScheduleClient fetches events from the schedule/score feed. Calls are
// rate limited with a shared token bucket; a caller that would exceed the
// quota blocks until a token is available or its context expires.
type ScheduleClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ScheduleOption configures a ScheduleClient.
type ScheduleOption func(*ScheduleClient)

// WithScheduleBaseURL sets a custom base URL.
func WithScheduleBaseURL(u string) ScheduleOption {
	return func(c *ScheduleClient) { c.baseURL = u }
}

// WithScheduleHTTPClient sets a custom HTTP client.
func WithScheduleHTTPClient(hc *http.Client) ScheduleOption {
	return func(c *ScheduleClient) { c.httpClient = hc }
}

// WithScheduleRateLimit sets custom rate limiting.
func WithScheduleRateLimit(rps float64, burst int) ScheduleOption {
	return func(c *ScheduleClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewScheduleClient creates a schedule feed client.
func NewScheduleClient(baseURL string, opts ...ScheduleOption) *ScheduleClient {
	c := &ScheduleClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultScheduleRateLimit), defaultScheduleBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListEvents fetches the events for a sport within the window.
func (c *ScheduleClient) ListEvents(ctx context.Context, sport string, window Window) ([]Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("schedule feed rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("sport", sport)
	if !window.From.IsZero() {
		params.Set("from", window.From.UTC().Format(time.RFC3339))
	}
	if !window.To.IsZero() {
		params.Set("to", window.To.UTC().Format(time.RFC3339))
	}

	u := c.baseURL + "/events?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("schedule feed returned %d: %s", resp.StatusCode, body)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}

	// The feed is authoritative for sport tagging but not for window
	// trimming; enforce the window here so callers can trust it.
	filtered := events[:0]
	for _, ev := range events {
		if window.From.IsZero() || window.Contains(ev.StartTime) {
			filtered = append(filtered, ev)
		}
	}
	return filtered, nil
}
