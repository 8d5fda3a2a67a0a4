// Package coingecko provides the market-data client: daily price/volume
// history, spot prices, historical all-time highs, public-interest scores,
// and BTC dominance.
package coingecko

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"coinsentry/internal/models"
)

// Client provides access to the CoinGecko API
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a new CoinGecko client
func NewClient(baseURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// marketChartResponse mirrors /coins/{id}/market_chart. Each entry is a
// [timestamp_ms, value] pair.
type marketChartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// GetMarketChart fetches the daily price/volume history for one asset,
// merged into an ascending series. Price and volume rows are joined by
// position; the shorter column bounds the series.
func (c *Client) GetMarketChart(ctx context.Context, assetID string, days int) (*models.PriceSeries, error) {
	u := fmt.Sprintf("%s/coins/%s/market_chart", c.baseURL, url.PathEscape(assetID))
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("interval", "daily")

	var chart marketChartResponse
	if err := c.getJSON(ctx, u+"?"+q.Encode(), &chart); err != nil {
		return nil, fmt.Errorf("failed to fetch market chart for %s: %w", assetID, err)
	}

	n := len(chart.Prices)
	if len(chart.TotalVolumes) < n {
		n = len(chart.TotalVolumes)
	}

	series := &models.PriceSeries{AssetID: assetID}
	for i := 0; i < n; i++ {
		ts := time.UnixMilli(int64(chart.Prices[i][0]))
		// The provider occasionally duplicates the latest candle timestamp;
		// keep only the newer row to preserve strict ordering.
		if len(series.Samples) > 0 && !ts.After(series.Samples[len(series.Samples)-1].Timestamp) {
			series.Samples[len(series.Samples)-1] = models.Sample{
				Timestamp: series.Samples[len(series.Samples)-1].Timestamp,
				Price:     chart.Prices[i][1],
				Volume:    chart.TotalVolumes[i][1],
			}
			continue
		}
		series.Samples = append(series.Samples, models.Sample{
			Timestamp: ts,
			Price:     chart.Prices[i][1],
			Volume:    chart.TotalVolumes[i][1],
		})
	}
	return series, nil
}

// GetSpotPrices fetches current USD prices for the given asset ids in one
// call.
func (c *Client) GetSpotPrices(ctx context.Context, assetIDs []string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(assetIDs, ","))
	q.Set("vs_currencies", "usd")

	var body map[string]struct {
		USD *float64 `json:"usd"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/simple/price?"+q.Encode(), &body); err != nil {
		return nil, fmt.Errorf("failed to fetch spot prices: %w", err)
	}

	prices := make(map[string]float64, len(body))
	for id, entry := range body {
		if entry.USD != nil {
			prices[id] = *entry.USD
		}
	}
	return prices, nil
}

// SpotQuote is a spot price with its 24h change percentage.
type SpotQuote struct {
	Price     float64
	Change24h *float64
}

// GetSpotQuotes fetches current prices with 24h change for the given asset
// ids in one call.
func (c *Client) GetSpotQuotes(ctx context.Context, assetIDs []string) (map[string]SpotQuote, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(assetIDs, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	var body map[string]struct {
		USD          *float64 `json:"usd"`
		USD24hChange *float64 `json:"usd_24h_change"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/simple/price?"+q.Encode(), &body); err != nil {
		return nil, fmt.Errorf("failed to fetch spot quotes: %w", err)
	}

	quotes := make(map[string]SpotQuote, len(body))
	for id, entry := range body {
		if entry.USD == nil {
			continue
		}
		quotes[id] = SpotQuote{Price: *entry.USD, Change24h: entry.USD24hChange}
	}
	return quotes, nil
}

// AssetDetail carries the per-asset reference fields read from
// /coins/{id}: the provider's historical all-time high and the
// public-interest score.
type AssetDetail struct {
	ATH            *float64
	PublicInterest *float64
}

// GetAssetDetail fetches the historical ATH and public-interest score for
// one asset.
func (c *Client) GetAssetDetail(ctx context.Context, assetID string) (*AssetDetail, error) {
	u := fmt.Sprintf("%s/coins/%s", c.baseURL, url.PathEscape(assetID))
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")

	var body struct {
		MarketData struct {
			ATH struct {
				USD *float64 `json:"usd"`
			} `json:"ath"`
		} `json:"market_data"`
		PublicInterestScore *float64 `json:"public_interest_score"`
	}
	if err := c.getJSON(ctx, u+"?"+q.Encode(), &body); err != nil {
		return nil, fmt.Errorf("failed to fetch detail for %s: %w", assetID, err)
	}

	return &AssetDetail{
		ATH:            body.MarketData.ATH.USD,
		PublicInterest: body.PublicInterestScore,
	}, nil
}

// GetBTCDominance calculates Bitcoin dominance from BTC market cap against
// the total crypto market cap.
func (c *Client) GetBTCDominance(ctx context.Context) (*float64, error) {
	q := url.Values{}
	q.Set("ids", "bitcoin")
	q.Set("vs_currencies", "usd")
	q.Set("include_market_cap", "true")

	var btc map[string]struct {
		MarketCap *float64 `json:"usd_market_cap"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/simple/price?"+q.Encode(), &btc); err != nil {
		return nil, fmt.Errorf("failed to fetch BTC market cap: %w", err)
	}
	entry, ok := btc["bitcoin"]
	if !ok || entry.MarketCap == nil {
		return nil, fmt.Errorf("BTC market cap missing from response")
	}

	var global struct {
		Data struct {
			TotalMarketCap map[string]float64 `json:"total_market_cap"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/global", &global); err != nil {
		return nil, fmt.Errorf("failed to fetch global market data: %w", err)
	}
	total, ok := global.Data.TotalMarketCap["usd"]
	if !ok || total <= 0 {
		return nil, fmt.Errorf("total market cap missing from response")
	}

	dominance := *entry.MarketCap / total * 100
	return &dominance, nil
}

// getJSON performs a GET with retry and decodes the response body.
func (c *Client) getJSON(ctx context.Context, urlStr string, out any) error {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// 429 and 5xx are transient; anything else 4xx is permanent.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if err := sonic.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
