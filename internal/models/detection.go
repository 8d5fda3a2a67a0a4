package models

import "time"

// AlertCategory names a disjoint cooldown key space. Keys from different
// categories never collide in the cooldown ledger.
type AlertCategory string

const (
	AlertSignal       AlertCategory = "signal"
	AlertPrice        AlertCategory = "price"
	AlertTop          AlertCategory = "top"
	AlertDipBuy       AlertCategory = "dip_buy"
	AlertProfitTaking AlertCategory = "profit_taking"
	AlertTrailingStop AlertCategory = "trailing_stop"
	AlertPortfolio    AlertCategory = "portfolio"
)

// TrailingStopKind distinguishes the two trailing-stop sub-checks.
type TrailingStopKind string

const (
	TrailingATHDrop         TrailingStopKind = "ATH_DROP"
	TrailingCloseBelowEMA50 TrailingStopKind = "CLOSE_BELOW_EMA50"
)

// TrailingStopResult is one fired trailing-stop sub-check. Value carries
// the drop percentage for ATH_DROP and the EMA50 level for
// CLOSE_BELOW_EMA50.
type TrailingStopResult struct {
	Kind  TrailingStopKind `json:"kind"`
	Value float64          `json:"value"`
}

// EvaluationRecord is the structured log entry appended once per evaluated
// asset per comprehensive cycle.
type EvaluationRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AssetID   string    `json:"asset_id"`

	Indicators IndicatorSnapshot `json:"indicators"`
	Sentiment  SentimentSnapshot `json:"sentiment"`
	Macro      MacroSnapshot     `json:"macro"`
	Score      float64           `json:"signal_score"`

	SignalAlertSent       bool `json:"signal_alert_sent"`
	TopAlertSent          bool `json:"top_alert_sent"`
	DipBuyAlertSent       bool `json:"dip_buy_alert_sent"`
	ProfitTakingAlertSent bool `json:"profit_taking_alert_sent"`
	TrailingStopAlertSent bool `json:"trailing_stop_alert_sent"`
}

// AssetPerformance is one holding's slice of the portfolio valuation.
type AssetPerformance struct {
	AssetID        string  `json:"asset_id"`
	Quantity       float64 `json:"quantity"`
	Price          float64 `json:"price"`
	Value          float64 `json:"value"`
	DailyChangePct float64 `json:"daily_change_percent"`
}

// PortfolioSummary is the valuation of the configured holdings for one
// cycle. TotalChangePct is the value-weighted average of the individual
// daily changes.
type PortfolioSummary struct {
	TotalValue     float64            `json:"total_value"`
	TotalChangePct float64            `json:"total_change_24h_percent"`
	Assets         []AssetPerformance `json:"assets"`
}
