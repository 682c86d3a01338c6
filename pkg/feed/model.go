package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ModelQuote is an externally supplied probability estimate for one
// (event, contract) pair. Confidence is the model's own reliability
// signal on a 0-100 scale; it is independent of market liquidity.
type ModelQuote struct {
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// ModelClient fetches probability estimates from the prediction model
// service that feeds the engine.
type ModelClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewModelClient creates a prediction model client.
func NewModelClient(baseURL string) *ModelClient {
	return &ModelClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Predict returns the model probability and confidence for an event's
// contract.
func (c *ModelClient) Predict(ctx context.Context, eventID, contractID string) (ModelQuote, error) {
	params := url.Values{}
	params.Set("event_id", eventID)
	params.Set("contract_id", contractID)
	u := c.baseURL + "/predict?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ModelQuote{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ModelQuote{}, fmt.Errorf("fetching prediction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ModelQuote{}, fmt.Errorf("model service returned %d: %s", resp.StatusCode, body)
	}

	var q ModelQuote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return ModelQuote{}, fmt.Errorf("decoding prediction: %w", err)
	}
	return q, nil
}
