// Package models defines the core domain entities: price series, indicator
// snapshots, detector state, and alert records.
package models

import (
	"errors"
	"time"
)

// Sample is a single daily observation for one asset.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is an ordered sequence of daily samples for one asset,
// ascending by time. A series shorter than an indicator's window yields
// "indicator unavailable", never an error.
type PriceSeries struct {
	AssetID string   `json:"asset_id"`
	Samples []Sample `json:"samples"`
}

func (s *PriceSeries) Len() int {
	return len(s.Samples)
}

func (s *PriceSeries) Empty() bool {
	return s == nil || len(s.Samples) == 0
}

// Prices returns the price column in sample order.
func (s *PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Samples))
	for i, sm := range s.Samples {
		out[i] = sm.Price
	}
	return out
}

// Volumes returns the volume column in sample order.
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Samples))
	for i, sm := range s.Samples {
		out[i] = sm.Volume
	}
	return out
}

// Validate checks series ordering constraints.
func (s *PriceSeries) Validate() error {
	if s.AssetID == "" {
		return errors.New("series asset ID must not be empty")
	}
	for i := 1; i < len(s.Samples); i++ {
		if !s.Samples[i].Timestamp.After(s.Samples[i-1].Timestamp) {
			return errors.New("series samples must be strictly ascending by time")
		}
	}
	return nil
}

// Bands holds a Bollinger envelope computed over one window.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot is derived from a PriceSeries, recomputed fresh each
// cycle. Nil fields mean the underlying series was too short or missing;
// absence propagates to the scorer and detectors, it is never defaulted.
type IndicatorSnapshot struct {
	Price     *float64 `json:"price"`
	Volume    *float64 `json:"volume"`
	RSI       *float64 `json:"rsi"`
	EMA20     *float64 `json:"ema20"`
	EMA50     *float64 `json:"ema50"`
	EMA200    *float64 `json:"ema200"`
	Bollinger *Bands   `json:"bollinger_bands"`
	Change7d  *float64 `json:"price_change_7d_percent"`
	Change30d *float64 `json:"price_change_30d_percent"`
}

// SentimentSnapshot combines the market-wide fear/greed index (shared
// across all assets in a cycle) with an asset-specific public-interest
// score. Both parts are independently nullable.
type SentimentSnapshot struct {
	FearGreedScore    *float64 `json:"fgi_score"`
	FearGreedCategory string   `json:"fgi_category,omitempty"`
	PublicInterest    *float64 `json:"public_interest"`
}

// MacroSnapshot carries reference-asset context shared across all assets in
// a cycle: BTC/ETH spot vs historical all-time-high, and BTC dominance.
type MacroSnapshot struct {
	BTCPrice     *float64 `json:"btc_current_price"`
	BTCATH       *float64 `json:"btc_ath"`
	ETHPrice     *float64 `json:"eth_current_price"`
	ETHATH       *float64 `json:"eth_ath"`
	BTCDominance *float64 `json:"btc_dominance"`
}
