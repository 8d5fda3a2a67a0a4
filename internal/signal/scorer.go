// Package signal holds the evaluation engine: the weighted composite scorer
// and the top, dip-buy, and trailing-stop pattern detectors.
package signal

import "coinsentry/internal/models"

// Weights scale the nine scoring factors. Each weight is independent and in
// [0,1]; they are not required to sum to 1.
type Weights struct {
	RSI              float64 `mapstructure:"rsi"`
	EMACrossover     float64 `mapstructure:"ema_crossover"`
	EMAPricePosition float64 `mapstructure:"ema_price_position"`
	Bollinger        float64 `mapstructure:"bollinger_bands"`
	VolumeSpike      float64 `mapstructure:"volume_spike"`
	FearGreed        float64 `mapstructure:"fgi_sentiment"`
	PublicInterest   float64 `mapstructure:"public_interest"`
	ATHProximity     float64 `mapstructure:"ath_proximity"`
	Dominance        float64 `mapstructure:"dominance"`
}

// DefaultWeights returns the stock weighting profile.
func DefaultWeights() Weights {
	return Weights{
		RSI:              0.15,
		EMACrossover:     0.20,
		EMAPricePosition: 0.20,
		Bollinger:        0.10,
		VolumeSpike:      0.10,
		FearGreed:        0.10,
		PublicInterest:   0.05,
		ATHProximity:     0.05,
		Dominance:        0.05,
	}
}

// Scorer combines indicators, sentiment, and macro context into one bounded
// score. It is stateless; identical inputs always yield identical output.
type Scorer struct {
	Weights               Weights
	VolumeSpikeMultiplier float64
}

func NewScorer(w Weights, volumeSpikeMultiplier float64) *Scorer {
	if volumeSpikeMultiplier <= 0 {
		volumeSpikeMultiplier = 1.5
	}
	return &Scorer{Weights: w, VolumeSpikeMultiplier: volumeSpikeMultiplier}
}

// absoluteVolumeFloor is the fallback threshold when no trailing volume
// history is available to derive a dynamic average.
const absoluteVolumeFloor = 1_000_000_000

// Score returns a composite score in [0,100]. It starts at the neutral 50
// and each factor with all of its required inputs present adds or subtracts
// a bounded, weight-scaled contribution. Factors with missing inputs are
// skipped, contributing exactly zero.
//
// recentVolumes is the trailing volume history used for the dynamic
// volume-spike factor; the last 20 samples (or fewer) form the average.
func (s *Scorer) Score(ind models.IndicatorSnapshot, sent models.SentimentSnapshot, macro models.MacroSnapshot, recentVolumes []float64) float64 {
	score := 50.0
	w := s.Weights

	// 1. RSI distance from neutral, signed opposite to RSI, half a point of
	// contribution per RSI point, capped at ±15 before weighting.
	if ind.RSI != nil {
		raw := (50.0 - *ind.RSI) * 0.5
		if raw > 15 {
			raw = 15
		} else if raw < -15 {
			raw = -15
		}
		score += raw * w.RSI
	}

	// 2. EMA20/EMA50 crossover.
	if ind.EMA20 != nil && ind.EMA50 != nil {
		if *ind.EMA20 > *ind.EMA50 {
			score += 15 * w.EMACrossover
		} else if *ind.EMA20 < *ind.EMA50 {
			score -= 15 * w.EMACrossover
		}
	}

	// 3. Price position relative to both EMAs; mixed position contributes
	// nothing.
	if ind.Price != nil && ind.EMA20 != nil && ind.EMA50 != nil {
		switch {
		case *ind.Price > *ind.EMA20 && *ind.Price > *ind.EMA50:
			score += 10 * w.EMAPricePosition
		case *ind.Price < *ind.EMA20 && *ind.Price < *ind.EMA50:
			score -= 10 * w.EMAPricePosition
		}
	}

	// 4. Bollinger position within the band range.
	if ind.Bollinger != nil && ind.Price != nil {
		bandRange := ind.Bollinger.Upper - ind.Bollinger.Lower
		if bandRange > 0 {
			fromLower := (*ind.Price - ind.Bollinger.Lower) / bandRange
			fromUpper := (ind.Bollinger.Upper - *ind.Price) / bandRange
			if fromLower < 0.1 {
				score += 15 * w.Bollinger
			} else if fromUpper < 0.1 {
				score -= 15 * w.Bollinger
			}
		}
	}

	// 5. Volume spike: dynamic trailing average when history is available,
	// absolute floor otherwise.
	if ind.Volume != nil {
		if len(recentVolumes) > 0 {
			tail := recentVolumes
			if len(tail) > 20 {
				tail = tail[len(tail)-20:]
			}
			var sum float64
			for _, v := range tail {
				sum += v
			}
			avg := sum / float64(len(tail))
			if avg > 0 && *ind.Volume > avg*s.VolumeSpikeMultiplier {
				score += 10 * w.VolumeSpike
			}
		} else if *ind.Volume > absoluteVolumeFloor {
			score += 5 * w.VolumeSpike
		}
	}

	// 6. Fear/greed, contrarian.
	if sent.FearGreedScore != nil {
		switch fgi := *sent.FearGreedScore; {
		case fgi <= 20:
			score += 15 * w.FearGreed
		case fgi <= 40:
			score += 5 * w.FearGreed
		case fgi >= 80:
			score -= 15 * w.FearGreed
		case fgi >= 60:
			score -= 5 * w.FearGreed
		}
	}

	// 7. Public-interest trend.
	if sent.PublicInterest != nil {
		switch pi := *sent.PublicInterest; {
		case pi >= 70:
			score += 10 * w.PublicInterest
		case pi >= 50:
			score += 5 * w.PublicInterest
		case pi <= 30:
			score -= 5 * w.PublicInterest
		}
	}

	// 8. Reference-asset ATH proximity; both references accumulate under
	// the same weight.
	score += athProximityContribution(macro.BTCPrice, macro.BTCATH) * w.ATHProximity
	score += athProximityContribution(macro.ETHPrice, macro.ETHATH) * w.ATHProximity

	// 9. Dominance ratio.
	if macro.BTCDominance != nil {
		if *macro.BTCDominance < 50 {
			score += 10 * w.Dominance
		} else if *macro.BTCDominance > 60 {
			score -= 10 * w.Dominance
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func athProximityContribution(price, ath *float64) float64 {
	if price == nil || ath == nil || *ath <= 0 {
		return 0
	}
	proximity := *price / *ath * 100
	switch {
	case proximity >= 98:
		return 10
	case proximity >= 90:
		return 5
	default:
		return 0
	}
}
