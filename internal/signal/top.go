package signal

import "coinsentry/internal/models"

// TopResult reports a potential market top. Intensity is the parabolic
// factor (7d% + 30d%) / 200, zero when not fired. ExtremeGreed notes a
// corroborating fear/greed reading of 80 or above; it never gates firing.
type TopResult struct {
	Fired        bool
	Intensity    float64
	ExtremeGreed bool
}

// DetectTop fires when RSI is extremely overbought (>80), price is at
// least 1.5x the 200-period EMA, and the move is parabolic (7-sample
// change >50% and 30-sample change >100%). Stateless: only current-cycle
// data is read. Any missing input fails the corresponding condition.
func DetectTop(ind models.IndicatorSnapshot, sent models.SentimentSnapshot) TopResult {
	overbought := ind.RSI != nil && *ind.RSI > 80

	stretched := false
	if ind.Price != nil && ind.EMA200 != nil && *ind.EMA200 > 0 {
		stretched = *ind.Price / *ind.EMA200 >= 1.5
	}

	parabolic := false
	intensity := 0.0
	if ind.Change7d != nil && ind.Change30d != nil {
		if *ind.Change7d > 50 && *ind.Change30d > 100 {
			parabolic = true
			intensity = (*ind.Change7d + *ind.Change30d) / 200
		}
	}

	if !(overbought && stretched && parabolic) {
		return TopResult{}
	}

	return TopResult{
		Fired:        true,
		Intensity:    intensity,
		ExtremeGreed: sent.FearGreedScore != nil && *sent.FearGreedScore >= 80,
	}
}
