package signal

import "coinsentry/internal/models"

// TrailingStopConfig enables the two trailing-stop sub-checks for one
// asset. A nil DropFromATHPercent disables the ATH-drop check entirely.
type TrailingStopConfig struct {
	DropFromATHPercent *float64
	CloseBelowEMA50    bool
}

// EvaluateTrailingStop runs both trailing-stop sub-checks as one explicit
// state transition: it never mutates the input state, and returns the fired
// results together with the state the caller must persist. The two
// sub-checks are independent; both may fire in the same cycle.
//
// ATH-drop: the dynamic high-water mark is lazily initialized to the first
// observed price, only ever updated upward, and a new high is never itself
// an alert. A drop of at least the configured percentage from the mark
// fires ATH_DROP with the drop percentage as value.
//
// EMA50-cross: fires CLOSE_BELOW_EMA50 (value = EMA50) only on the exact
// above→below transition. The current position is recorded every cycle so
// the next transition check is correct; a first observation only seeds the
// state.
func EvaluateTrailingStop(state models.DetectorState, ind models.IndicatorSnapshot, cfg TrailingStopConfig) ([]models.TrailingStopResult, models.DetectorState) {
	next := state.Clone()
	if ind.Price == nil {
		return nil, next
	}
	price := *ind.Price

	var results []models.TrailingStopResult

	if cfg.DropFromATHPercent != nil {
		switch {
		case next.DynamicATH == nil:
			next.DynamicATH = &price
		case price > *next.DynamicATH:
			next.DynamicATH = &price
		case *next.DynamicATH > 0:
			drop := (*next.DynamicATH - price) / *next.DynamicATH * 100
			if drop >= *cfg.DropFromATHPercent {
				results = append(results, models.TrailingStopResult{
					Kind:  models.TrailingATHDrop,
					Value: drop,
				})
			}
		}
	}

	if cfg.CloseBelowEMA50 && ind.EMA50 != nil {
		current := models.EMAPositionBelow
		if price >= *ind.EMA50 {
			current = models.EMAPositionAbove
		}
		if state.EMA50Position == models.EMAPositionAbove && current == models.EMAPositionBelow {
			results = append(results, models.TrailingStopResult{
				Kind:  models.TrailingCloseBelowEMA50,
				Value: *ind.EMA50,
			})
		}
		next.EMA50Position = current
	}

	return results, next
}
