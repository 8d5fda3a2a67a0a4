// Package sentiment provides the market-wide fear/greed index client.
package sentiment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"coinsentry/internal/models"
)

// Client fetches the fear/greed index from a CoinMarketCap-style endpoint.
// The index is market-wide: one fetch per cycle serves every asset.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a new fear/greed index client.
func NewClient(apiURL, apiKey string, timeout time.Duration, maxRetries int, retryDelay time.Duration) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

type fearGreedResponse struct {
	Data []struct {
		Value          float64 `json:"value"`
		Classification string  `json:"value_classification"`
	} `json:"data"`
}

// FetchFearGreed returns the latest fear/greed score and category. An empty
// data array yields a zero-value snapshot, not an error.
func (c *Client) FetchFearGreed(ctx context.Context) (models.SentimentSnapshot, error) {
	var out models.SentimentSnapshot
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(time.Duration(i) * c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?limit=1", nil)
		if err != nil {
			return out, err
		}
		req.Header.Set("Accepts", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return out, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		var parsed fearGreedResponse
		if err := sonic.Unmarshal(body, &parsed); err != nil {
			return out, fmt.Errorf("failed to decode fear/greed response: %w", err)
		}
		if len(parsed.Data) == 0 {
			return out, nil
		}

		score := parsed.Data[0].Value
		out.FearGreedScore = &score
		out.FearGreedCategory = parsed.Data[0].Classification
		return out, nil
	}

	return out, fmt.Errorf("max retries exceeded: %w", lastErr)
}
