package models

import "time"

// EMAPosition is the last known relation of price to the 50-period EMA.
type EMAPosition string

const (
	EMAPositionUnknown EMAPosition = ""
	EMAPositionAbove   EMAPosition = "above"
	EMAPositionBelow   EMAPosition = "below"
)

// DetectorState is the durable per-asset record mutated only by the
// trailing-stop detector, once per asset per cycle.
//
// DynamicATH is the highest price observed since tracking began, not the
// provider's historical all-time-high. It is monotonically non-decreasing
// within a continuous state lifetime; only a restart with state loss can
// lower it.
type DetectorState struct {
	AssetID       string      `json:"asset_id"`
	DynamicATH    *float64    `json:"dynamic_ath"`
	EMA50Position EMAPosition `json:"ema50_position"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Clone returns a deep copy so a state transition never aliases the stored
// record.
func (s DetectorState) Clone() DetectorState {
	out := s
	if s.DynamicATH != nil {
		v := *s.DynamicATH
		out.DynamicATH = &v
	}
	return out
}
