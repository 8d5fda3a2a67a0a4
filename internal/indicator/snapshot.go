package indicator

import "coinsentry/internal/models"

// Snapshot derives a full IndicatorSnapshot from a price series. The
// snapshot is immutable and recomputed from scratch each cycle; it is never
// incrementally patched. An empty or nil series yields a snapshot with all
// fields absent.
func Snapshot(series *models.PriceSeries) models.IndicatorSnapshot {
	if series.Empty() {
		return models.IndicatorSnapshot{}
	}

	prices := series.Prices()
	last := series.Samples[len(series.Samples)-1]
	price := last.Price
	volume := last.Volume

	return models.IndicatorSnapshot{
		Price:     &price,
		Volume:    &volume,
		RSI:       RSI(prices, RSIWindow),
		EMA20:     EMA(prices, 20),
		EMA50:     EMA(prices, 50),
		EMA200:    EMA(prices, 200),
		Bollinger: Bollinger(prices, BollingerWindow, BollingerK),
		Change7d:  PercentChange(prices, 7),
		Change30d: PercentChange(prices, 30),
	}
}
