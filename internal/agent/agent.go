// Package agent orchestrates the two evaluation cycles: the comprehensive
// indicator/detector/scoring pass and the fast spot-price check.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"coinsentry/internal/coingecko"
	"coinsentry/internal/config"
	"coinsentry/internal/gate"
	"coinsentry/internal/indicator"
	"coinsentry/internal/logger"
	"coinsentry/internal/models"
	"coinsentry/internal/notify"
	"coinsentry/internal/portfolio"
	"coinsentry/internal/signal"
)

// MarketData is the market-data provider consumed by both cycles.
type MarketData interface {
	GetMarketChart(ctx context.Context, assetID string, days int) (*models.PriceSeries, error)
	GetSpotPrices(ctx context.Context, assetIDs []string) (map[string]float64, error)
	GetSpotQuotes(ctx context.Context, assetIDs []string) (map[string]coingecko.SpotQuote, error)
	GetAssetDetail(ctx context.Context, assetID string) (*coingecko.AssetDetail, error)
	GetBTCDominance(ctx context.Context) (*float64, error)
}

// SentimentSource provides the market-wide fear/greed snapshot.
type SentimentSource interface {
	FetchFearGreed(ctx context.Context) (models.SentimentSnapshot, error)
}

// Store is the durable backend for detector state, cooldowns, and the
// evaluation log.
type Store interface {
	LoadDetectorStates() (map[string]models.DetectorState, error)
	SaveDetectorStates(states map[string]models.DetectorState) error
	LoadCooldowns() (map[string]time.Time, error)
	SaveCooldown(key string, firedAt time.Time) error
	AppendEvaluation(rec *models.EvaluationRecord) error
}

// Agent drives evaluation for all tracked assets. The two cycles may run
// concurrently with each other, but iterations within each cycle are
// strictly sequential.
type Agent struct {
	cfg       *config.Config
	market    MarketData
	sentiment SentimentSource
	notifier  notify.Notifier
	store     Store
	ledger    *gate.Ledger
	scorer    *signal.Scorer

	// states is touched only by the comprehensive cycle.
	states map[string]models.DetectorState

	mu              sync.Mutex
	latestPrices    map[string]float64
	lastSummaryDate string
}

// New builds an agent, restoring detector state and the cooldown ledger
// from the store. Missing or unreadable persisted state degrades to empty;
// it is never fatal.
func New(cfg *config.Config, market MarketData, sentiment SentimentSource, notifier notify.Notifier, store Store) *Agent {
	states, err := store.LoadDetectorStates()
	if err != nil {
		logger.Warn("Failed to load detector states: %v", err)
		states = make(map[string]models.DetectorState)
	} else {
		logger.Info("Loaded %d persisted detector states", len(states))
	}

	cooldowns, err := store.LoadCooldowns()
	if err != nil {
		logger.Warn("Failed to load cooldown ledger: %v", err)
		cooldowns = nil
	} else {
		logger.Info("Loaded %d persisted cooldowns", len(cooldowns))
	}

	return &Agent{
		cfg:          cfg,
		market:       market,
		sentiment:    sentiment,
		notifier:     notifier,
		store:        store,
		ledger:       gate.New(store, cooldowns),
		scorer:       signal.NewScorer(cfg.Signal.Weights, cfg.Signal.VolumeSpikeMultiplier),
		states:       states,
		latestPrices: make(map[string]float64),
	}
}

// LatestPrice returns the most recent price either cycle observed for the
// asset.
func (a *Agent) LatestPrice(assetID string) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.latestPrices[assetID]
	return p, ok
}

func (a *Agent) recordPrice(assetID string, price float64) {
	a.mu.Lock()
	a.latestPrices[assetID] = price
	a.mu.Unlock()
}

// RunComprehensiveCycle runs one full evaluation pass: macro context and
// sentiment fetched once, then each tracked asset evaluated in turn with a
// per-asset failure boundary, then the portfolio check, then a detector
// state flush. It returns an error only when every asset evaluation
// failed.
func (a *Agent) RunComprehensiveCycle(ctx context.Context, now time.Time) error {
	logger.Info("Starting comprehensive cycle for %d assets", len(a.cfg.Market.TrackedAssets))

	macro := a.fetchMacro(ctx)

	baseSentiment, err := a.sentiment.FetchFearGreed(ctx)
	if err != nil {
		logger.Warn("Failed to fetch fear/greed index: %v", err)
		baseSentiment = models.SentimentSnapshot{}
	}

	failures := 0
	for _, assetID := range a.cfg.Market.TrackedAssets {
		if err := a.evaluateAsset(ctx, assetID, baseSentiment, macro, now); err != nil {
			failures++
			logger.Error("Evaluation failed for %s: %v", assetID, err)
		}
	}

	a.checkPortfolio(ctx, now)

	if err := a.store.SaveDetectorStates(a.states); err != nil {
		logger.Warn("Failed to persist detector states: %v", err)
	}

	if n := len(a.cfg.Market.TrackedAssets); n > 0 && failures == n {
		return fmt.Errorf("all %d asset evaluations failed", n)
	}
	logger.Info("Comprehensive cycle complete (%d/%d assets evaluated)",
		len(a.cfg.Market.TrackedAssets)-failures, len(a.cfg.Market.TrackedAssets))
	return nil
}

// fetchMacro collects the BTC/ETH reference context and dominance. Every
// field degrades independently to nil on failure.
func (a *Agent) fetchMacro(ctx context.Context) models.MacroSnapshot {
	var macro models.MacroSnapshot

	prices, err := a.market.GetSpotPrices(ctx, []string{"bitcoin", "ethereum"})
	if err != nil {
		logger.Warn("Failed to fetch reference prices: %v", err)
	} else {
		if p, ok := prices["bitcoin"]; ok {
			macro.BTCPrice = &p
		}
		if p, ok := prices["ethereum"]; ok {
			macro.ETHPrice = &p
		}
	}

	if detail, err := a.market.GetAssetDetail(ctx, "bitcoin"); err != nil {
		logger.Warn("Failed to fetch BTC detail: %v", err)
	} else {
		macro.BTCATH = detail.ATH
	}
	if detail, err := a.market.GetAssetDetail(ctx, "ethereum"); err != nil {
		logger.Warn("Failed to fetch ETH detail: %v", err)
	} else {
		macro.ETHATH = detail.ATH
	}

	if dominance, err := a.market.GetBTCDominance(ctx); err != nil {
		logger.Warn("Failed to fetch BTC dominance: %v", err)
	} else {
		macro.BTCDominance = dominance
	}

	return macro
}

func (a *Agent) evaluateAsset(ctx context.Context, assetID string, baseSentiment models.SentimentSnapshot, macro models.MacroSnapshot, now time.Time) error {
	series, err := a.market.GetMarketChart(ctx, assetID, a.cfg.Market.LookbackDays)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	ind := indicator.Snapshot(series)
	if ind.Price == nil {
		logger.Info("Skipping %s: no price data in history", assetID)
		return nil
	}
	price := *ind.Price
	a.recordPrice(assetID, price)

	sent := baseSentiment
	if detail, err := a.market.GetAssetDetail(ctx, assetID); err != nil {
		logger.Warn("Failed to fetch detail for %s: %v", assetID, err)
	} else {
		sent.PublicInterest = detail.PublicInterest
	}

	rec := &models.EvaluationRecord{
		ID:         uuid.NewString(),
		Timestamp:  now,
		AssetID:    assetID,
		Indicators: ind,
		Sentiment:  sent,
		Macro:      macro,
	}

	if top := signal.DetectTop(ind, sent); top.Fired {
		key := gate.Key(models.AlertTop, assetID, "")
		if a.ledger.Allowed(key, now, a.cfg.Cooldowns.Signal) {
			msg := notify.TopMessage(assetID, ind, top.Intensity, top.ExtremeGreed, now)
			rec.TopAlertSent = a.dispatch(key, msg, now)
		}
	}

	if dip := signal.DetectDipBuy(ind, sent); dip.Fired {
		key := gate.Key(models.AlertDipBuy, assetID, "")
		if a.ledger.Allowed(key, now, a.cfg.Cooldowns.Signal) {
			msg := notify.DipBuyMessage(assetID, ind, dip.ConditionsMet, now)
			rec.DipBuyAlertSent = a.dispatch(key, msg, now)
		}
	}

	rec.ProfitTakingAlertSent = a.checkProfitTargets(assetID, price, now)
	rec.TrailingStopAlertSent = a.checkTrailingStop(assetID, ind, now)

	rec.Score = a.scorer.Score(ind, sent, macro, series.Volumes())
	if rec.Score >= a.cfg.Signal.AlertScoreThreshold {
		key := gate.Key(models.AlertSignal, assetID, "")
		if a.ledger.Allowed(key, now, a.cfg.Cooldowns.Signal) {
			msg := notify.SignalMessage(assetID, rec.Score, ind, sent, now)
			rec.SignalAlertSent = a.dispatch(key, msg, now)
		}
	} else {
		logger.Debug("Signal for %s (score %.2f) below threshold %.2f",
			assetID, rec.Score, a.cfg.Signal.AlertScoreThreshold)
	}

	if err := a.store.AppendEvaluation(rec); err != nil {
		logger.Warn("Failed to append evaluation for %s: %v", assetID, err)
	}
	return nil
}

// checkProfitTargets fires one alert per reached target, each on its own
// cooldown key. Targets only apply while the asset is actually held.
func (a *Agent) checkProfitTargets(assetID string, price float64, now time.Time) bool {
	targets := a.cfg.Assets[assetID].ProfitTargets
	if len(targets) == 0 {
		return false
	}
	holdings := a.cfg.Portfolio.Holdings[assetID]
	if holdings <= 0 {
		logger.Debug("Profit targets configured for %s but no holdings; skipping", assetID)
		return false
	}

	sent := false
	for _, target := range targets {
		if price < target.TargetPrice {
			continue
		}
		key := gate.Key(models.AlertProfitTaking, assetID, fmt.Sprintf("%.2f", target.TargetPrice))
		if !a.ledger.Allowed(key, now, a.cfg.Cooldowns.ProfitTaking) {
			continue
		}
		msg := notify.ProfitTakingMessage(assetID, price, target.TargetPrice, target.SellPercentage, holdings, now)
		if a.dispatch(key, msg, now) {
			sent = true
		}
	}
	return sent
}

// checkTrailingStop runs the trailing-stop state transition and dispatches
// each fired sub-check on its own cooldown key. The new state is recorded
// every cycle regardless of firing.
func (a *Agent) checkTrailingStop(assetID string, ind models.IndicatorSnapshot, now time.Time) bool {
	assetCfg := a.cfg.Assets[assetID]
	tsCfg := signal.TrailingStopConfig{
		DropFromATHPercent: assetCfg.TrailingStop.PercentDropFromATH,
		CloseBelowEMA50:    assetCfg.TrailingStop.CloseBelowEMA50,
	}

	state, ok := a.states[assetID]
	if !ok {
		state = models.DetectorState{AssetID: assetID}
	}

	results, next := signal.EvaluateTrailingStop(state, ind, tsCfg)
	next.AssetID = assetID
	next.UpdatedAt = now
	a.states[assetID] = next

	sent := false
	for _, result := range results {
		key := gate.Key(models.AlertTrailingStop, assetID, string(result.Kind))
		if !a.ledger.Allowed(key, now, a.cfg.Cooldowns.TrailingStop) {
			continue
		}
		msg := notify.TrailingStopMessage(assetID, *ind.Price, result, next.DynamicATH, now)
		if a.dispatch(key, msg, now) {
			sent = true
		}
	}
	return sent
}

// checkPortfolio values the holdings and alerts when the configured
// thresholds are crossed.
func (a *Agent) checkPortfolio(ctx context.Context, now time.Time) {
	if len(a.cfg.Portfolio.Holdings) == 0 {
		return
	}

	quotes, err := a.market.GetSpotQuotes(ctx, assetIDs(a.cfg.Portfolio.Holdings))
	if err != nil {
		logger.Warn("Failed to fetch portfolio quotes: %v", err)
		return
	}

	summary := portfolio.Valuate(a.cfg.Portfolio.Holdings, quotes)
	logger.Info("Portfolio value $%.2f (%+.2f%% 24h)", summary.TotalValue, summary.TotalChangePct)

	breaches := portfolio.Breaches(summary,
		a.cfg.Portfolio.TotalChangePercent, a.cfg.Portfolio.PerAssetChangePercent)
	if len(breaches) == 0 {
		return
	}

	key := gate.Key(models.AlertPortfolio, "portfolio", "")
	if !a.ledger.Allowed(key, now, a.cfg.Cooldowns.Portfolio) {
		return
	}
	msg := notify.PortfolioMessage(summary, now)
	a.dispatch(key, msg, now)
}

// RunFastCycle runs one lightweight pass: spot prices against the
// configured buy/sell targets, plus the once-a-day summary report.
func (a *Agent) RunFastCycle(ctx context.Context, now time.Time) error {
	prices, err := a.market.GetSpotPrices(ctx, a.cfg.Market.TrackedAssets)
	if err != nil {
		return fmt.Errorf("failed to fetch spot prices: %w", err)
	}

	for _, assetID := range a.cfg.Market.TrackedAssets {
		price, ok := prices[assetID]
		if !ok {
			logger.Debug("No spot price for %s in fast cycle", assetID)
			continue
		}
		a.recordPrice(assetID, price)
		a.checkPriceTargets(assetID, price, now)
	}

	a.maybeSendSummary(ctx, now)
	return nil
}

// checkPriceTargets fires a buy or sell alert when the spot price crosses
// a configured threshold. Both directions share one per-asset cooldown, so
// a price oscillating around a target cannot spam.
func (a *Agent) checkPriceTargets(assetID string, price float64, now time.Time) {
	assetCfg, ok := a.cfg.Assets[assetID]
	if !ok {
		return
	}

	buy := assetCfg.BuyBelow != nil && price <= *assetCfg.BuyBelow
	sell := !buy && assetCfg.SellAbove != nil && price >= *assetCfg.SellAbove
	if !buy && !sell {
		return
	}

	key := gate.Key(models.AlertPrice, assetID, "")
	if !a.ledger.Allowed(key, now, a.cfg.Cooldowns.Price) {
		return
	}

	target := assetCfg.SellAbove
	if buy {
		target = assetCfg.BuyBelow
	}
	msg := notify.PriceMessage(assetID, buy, price, *target, now)
	a.dispatch(key, msg, now)
}

// maybeSendSummary sends the daily report once the configured local time
// has passed, at most once per calendar day.
func (a *Agent) maybeSendSummary(ctx context.Context, now time.Time) {
	if a.cfg.Schedule.SummaryTime == "" {
		return
	}
	at, err := time.Parse("15:04", a.cfg.Schedule.SummaryTime)
	if err != nil {
		return
	}
	if now.Hour() < at.Hour() || (now.Hour() == at.Hour() && now.Minute() < at.Minute()) {
		return
	}

	today := now.Format("2006-01-02")
	a.mu.Lock()
	alreadySent := a.lastSummaryDate == today
	a.mu.Unlock()
	if alreadySent {
		return
	}

	logger.Info("Generating daily summary report for %s", today)

	quotes, err := a.market.GetSpotQuotes(ctx, a.cfg.Market.TrackedAssets)
	if err != nil {
		logger.Warn("Failed to fetch quotes for summary: %v", err)
		return
	}
	summary := portfolio.Valuate(a.cfg.Portfolio.Holdings, quotes)

	sent, err := a.sentiment.FetchFearGreed(ctx)
	if err != nil {
		logger.Warn("Failed to fetch fear/greed for summary: %v", err)
		sent = models.SentimentSnapshot{}
	}

	trackedPrices := make(map[string]float64, len(quotes))
	for id, q := range quotes {
		trackedPrices[id] = q.Price
	}

	msg := notify.SummaryMessage(summary, sent, trackedPrices, a.cfg.Market.TrackedAssets, now)
	if err := a.notifier.Send(msg); err != nil {
		logger.Warn("Failed to send daily summary: %v", err)
		return
	}

	a.mu.Lock()
	a.lastSummaryDate = today
	a.mu.Unlock()
}

// dispatch sends the message and records the cooldown only on confirmed
// delivery. A failed send leaves the ledger untouched so the next cycle
// may retry.
func (a *Agent) dispatch(key string, msg notify.Message, now time.Time) bool {
	if err := a.notifier.Send(msg); err != nil {
		logger.Warn("Failed to dispatch alert %s: %v", key, err)
		return false
	}
	a.ledger.MarkFired(key, now)
	return true
}

// Shutdown checkpoints detector state before exit.
func (a *Agent) Shutdown() {
	logger.Info("Checkpointing %d detector states before shutdown", len(a.states))
	if err := a.store.SaveDetectorStates(a.states); err != nil {
		logger.Warn("Failed to checkpoint detector states: %v", err)
	}
}

func assetIDs(holdings map[string]float64) []string {
	out := make([]string, 0, len(holdings))
	for id := range holdings {
		out = append(out, id)
	}
	return out
}
