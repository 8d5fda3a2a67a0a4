package signal

import "coinsentry/internal/models"

// DipBuyResult reports a potential accumulation opportunity and how many of
// the five conditions held.
type DipBuyResult struct {
	Fired         bool
	ConditionsMet int
}

// dipBuyQuorum is the number of conditions (of five) required to fire. No
// single condition is individually required.
const dipBuyQuorum = 3

// DetectDipBuy scores five independent conditions: oversold RSI (<40),
// price near (±5%) either short EMA or strictly below both, price within 2%
// above the lower Bollinger band, a trailing-7-sample change in (−20%, 0%)
// (a dip, not a crash), and fearful sentiment (fear/greed ≤40). Stateless.
func DetectDipBuy(ind models.IndicatorSnapshot, sent models.SentimentSnapshot) DipBuyResult {
	met := 0

	if ind.RSI != nil && *ind.RSI < 40 {
		met++
	}

	if ind.Price != nil && ind.EMA20 != nil && ind.EMA50 != nil {
		p := *ind.Price
		nearEMA := (p >= *ind.EMA20*0.95 && p <= *ind.EMA20*1.05) ||
			(p >= *ind.EMA50*0.95 && p <= *ind.EMA50*1.05)
		belowBoth := p < *ind.EMA20 && p < *ind.EMA50
		if nearEMA || belowBoth {
			met++
		}
	}

	if ind.Price != nil && ind.Bollinger != nil && ind.Bollinger.Lower > 0 {
		if *ind.Price <= ind.Bollinger.Lower*1.02 {
			met++
		}
	}

	if ind.Change7d != nil && *ind.Change7d < 0 && *ind.Change7d > -20 {
		met++
	}

	if sent.FearGreedScore != nil && *sent.FearGreedScore <= 40 {
		met++
	}

	return DipBuyResult{Fired: met >= dipBuyQuorum, ConditionsMet: met}
}
