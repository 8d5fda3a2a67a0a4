// Package portfolio values the configured holdings and checks performance
// thresholds.
package portfolio

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"coinsentry/internal/coingecko"
	"coinsentry/internal/models"
)

// Valuate computes the portfolio summary from the configured holdings and a
// set of spot quotes. Holdings with zero quantity or without a complete
// quote (price and 24h change) are skipped. The total 24h change is the
// value-weighted average of the individual changes. Assets are ordered by
// id for deterministic output.
func Valuate(holdings map[string]float64, quotes map[string]coingecko.SpotQuote) models.PortfolioSummary {
	assetIDs := lo.Keys(holdings)
	sort.Strings(assetIDs)

	var assets []models.AssetPerformance
	for _, assetID := range assetIDs {
		quantity := holdings[assetID]
		if quantity <= 0 {
			continue
		}
		quote, ok := quotes[assetID]
		if !ok || quote.Change24h == nil {
			continue
		}
		assets = append(assets, models.AssetPerformance{
			AssetID:        assetID,
			Quantity:       quantity,
			Price:          quote.Price,
			Value:          quote.Price * quantity,
			DailyChangePct: *quote.Change24h,
		})
	}

	totalValue := lo.SumBy(assets, func(a models.AssetPerformance) float64 { return a.Value })

	var totalChange float64
	if totalValue > 0 {
		for _, a := range assets {
			totalChange += a.Value / totalValue * a.DailyChangePct
		}
	}

	return models.PortfolioSummary{
		TotalValue:     totalValue,
		TotalChangePct: totalChange,
		Assets:         assets,
	}
}

// Breaches returns a human-readable line per crossed threshold: one for the
// total portfolio move and one per asset. Thresholds compare against the
// absolute change, so crashes alert the same as rallies. A non-positive
// threshold disables its check.
func Breaches(summary models.PortfolioSummary, totalThresholdPct, perAssetThresholdPct float64) []string {
	var lines []string

	if totalThresholdPct > 0 && abs(summary.TotalChangePct) >= totalThresholdPct {
		lines = append(lines, fmt.Sprintf(
			"Total portfolio changed %+.2f%% in 24h (threshold: %.0f%%)!",
			summary.TotalChangePct, totalThresholdPct))
	}
	if perAssetThresholdPct > 0 {
		for _, a := range summary.Assets {
			if abs(a.DailyChangePct) >= perAssetThresholdPct {
				lines = append(lines, fmt.Sprintf(
					"%s changed %+.2f%% in 24h (threshold: %.0f%%)!",
					a.AssetID, a.DailyChangePct, perAssetThresholdPct))
			}
		}
	}
	return lines
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
