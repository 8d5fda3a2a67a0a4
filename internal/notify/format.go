package notify

import (
	"fmt"
	"strings"
	"time"

	"coinsentry/internal/models"
)

// displayName turns a provider asset id into a human-readable name,
// e.g. "sei-network" -> "Sei Network".
func displayName(assetID string) string {
	words := strings.Split(assetID, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// usd formats a dollar amount with thousands separators.
func usd(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}

func floatOrNA(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}

func usdOrNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return usd(*v)
}

func footerAt(kind string, now time.Time) string {
	return fmt.Sprintf("%s generated at %s UTC", kind, now.UTC().Format("2006-01-02 15:04:05"))
}

// SignalMessage formats a composite-score alert.
func SignalMessage(assetID string, score float64, ind models.IndicatorSnapshot, sent models.SentimentSnapshot, now time.Time) Message {
	name := displayName(assetID)
	fields := []Field{
		{Name: "Signal Score", Value: fmt.Sprintf("%.2f/100", score), Inline: true},
		{Name: "Current Price", Value: usdOrNA(ind.Price), Inline: true},
		{Name: "24h Volume", Value: usdOrNA(ind.Volume), Inline: true},
		{Name: "RSI (14)", Value: floatOrNA(ind.RSI, "%.2f"), Inline: true},
		{Name: "EMA20", Value: floatOrNA(ind.EMA20, "%.2f"), Inline: true},
		{Name: "EMA50", Value: floatOrNA(ind.EMA50, "%.2f"), Inline: true},
	}
	if ind.Bollinger != nil {
		fields = append(fields,
			Field{Name: "BB Upper", Value: fmt.Sprintf("%.2f", ind.Bollinger.Upper), Inline: true},
			Field{Name: "BB Middle", Value: fmt.Sprintf("%.2f", ind.Bollinger.Middle), Inline: true},
			Field{Name: "BB Lower", Value: fmt.Sprintf("%.2f", ind.Bollinger.Lower), Inline: true},
		)
	}
	if sent.FearGreedScore != nil {
		fields = append(fields, Field{
			Name:   "FGI Score",
			Value:  fmt.Sprintf("%.1f (%s)", *sent.FearGreedScore, sent.FearGreedCategory),
			Inline: true,
		})
	}
	if sent.PublicInterest != nil {
		fields = append(fields, Field{
			Name:   "Public Interest",
			Value:  fmt.Sprintf("%.1f", *sent.PublicInterest),
			Inline: true,
		})
	}

	return Message{
		Title:       fmt.Sprintf("🚨 Crypto Signal Alert: %s 🚨", name),
		Description: fmt.Sprintf("A strong signal detected for %s!", name),
		Color:       ColorSignal,
		Fields:      fields,
		Footer:      footerAt("Signal alert", now),
	}
}

// PriceMessage formats a buy/sell target alert from the fast loop.
func PriceMessage(assetID string, buy bool, currentPrice, targetPrice float64, now time.Time) Message {
	kind := "SELL"
	color := ColorPriceSell
	if buy {
		kind = "BUY"
		color = ColorPriceBuy
	}
	return Message{
		Title:       fmt.Sprintf("🔔 Price Alert: %s 🔔", displayName(assetID)),
		Description: fmt.Sprintf("%s Target Reached!", kind),
		Color:       color,
		Fields: []Field{
			{Name: "Coin", Value: displayName(assetID), Inline: true},
			{Name: "Current Price", Value: usd(currentPrice), Inline: true},
			{Name: fmt.Sprintf("%s Target", kind), Value: usd(targetPrice), Inline: true},
		},
		Footer: footerAt("Price alert", now),
	}
}

// TopMessage formats a top-detection alert.
func TopMessage(assetID string, ind models.IndicatorSnapshot, intensity float64, extremeGreed bool, now time.Time) Message {
	fields := []Field{
		{Name: "Current Price", Value: usdOrNA(ind.Price), Inline: true},
		{Name: "RSI (14)", Value: floatOrNA(ind.RSI, "%.2f"), Inline: true},
		{Name: "200D EMA", Value: floatOrNA(ind.EMA200, "%.2f"), Inline: true},
		{Name: "Parabolic Factor", Value: fmt.Sprintf("%.2fx", intensity), Inline: true},
	}
	if extremeGreed {
		fields = append(fields, Field{Name: "Market Mood", Value: "Extreme Greed", Inline: true})
	}
	fields = append(fields, Field{Name: "Recommendation", Value: "Consider taking profits.", Inline: false})

	return Message{
		Title:       fmt.Sprintf("⚠️ Top Detection Alert: %s ⚠️", displayName(assetID)),
		Description: "Potential Profit-Taking Opportunity!\nThis asset shows signs of being overbought and a parabolic move.",
		Color:       ColorTop,
		Fields:      fields,
		Footer:      footerAt("Top detection alert", now),
	}
}

// DipBuyMessage formats a dip-buy alert.
func DipBuyMessage(assetID string, ind models.IndicatorSnapshot, conditionsMet int, now time.Time) Message {
	bbLower := "N/A"
	if ind.Bollinger != nil {
		bbLower = fmt.Sprintf("%.2f", ind.Bollinger.Lower)
	}
	change7d := "N/A"
	if ind.Change7d != nil {
		change7d = fmt.Sprintf("%+.2f%%", *ind.Change7d)
	}
	return Message{
		Title:       fmt.Sprintf("🟢 Dip Buy Alert: %s 🟢", displayName(assetID)),
		Description: "Potential Buying Opportunity!\nThis asset shows signs of a healthy retracement or dip.",
		Color:       ColorDipBuy,
		Fields: []Field{
			{Name: "Current Price", Value: usdOrNA(ind.Price), Inline: true},
			{Name: "RSI (14)", Value: floatOrNA(ind.RSI, "%.2f"), Inline: true},
			{Name: "EMA20", Value: floatOrNA(ind.EMA20, "%.2f"), Inline: true},
			{Name: "BB Lower", Value: bbLower, Inline: true},
			{Name: "7D Change", Value: change7d, Inline: true},
			{Name: "Conditions Met", Value: fmt.Sprintf("%d/5", conditionsMet), Inline: true},
			{Name: "Recommendation", Value: "Consider accumulating.", Inline: false},
		},
		Footer: footerAt("Dip buy alert", now),
	}
}

// ProfitTakingMessage formats a per-target profit-taking alert.
func ProfitTakingMessage(assetID string, currentPrice, targetPrice, sellPercentage, holdings float64, now time.Time) Message {
	sellQuantity := sellPercentage / 100.0 * holdings
	return Message{
		Title:       fmt.Sprintf("💰 Profit-Taking Alert: %s 💰", displayName(assetID)),
		Description: "Target Price Hit! Consider taking profits.",
		Color:       ColorProfitTaking,
		Fields: []Field{
			{Name: "Current Price", Value: usd(currentPrice), Inline: true},
			{Name: "Target Price", Value: usd(targetPrice), Inline: true},
			{Name: "Recommendation", Value: fmt.Sprintf("Sell %.0f%% of your holdings.", sellPercentage), Inline: true},
			{Name: "Estimated Quantity", Value: fmt.Sprintf("%.4f %s", sellQuantity, strings.ToUpper(assetID)), Inline: true},
			{Name: "Estimated Value", Value: usd(sellQuantity * currentPrice), Inline: true},
		},
		Footer: footerAt("Profit-taking alert", now),
	}
}

// TrailingStopMessage formats one fired trailing-stop sub-check.
func TrailingStopMessage(assetID string, price float64, result models.TrailingStopResult, dynamicATH *float64, now time.Time) Message {
	fields := []Field{
		{Name: "Current Price", Value: usd(price), Inline: true},
	}
	switch result.Kind {
	case models.TrailingATHDrop:
		fields = append(fields,
			Field{Name: "Drop from ATH", Value: fmt.Sprintf("%.2f%%", result.Value), Inline: true},
		)
		if dynamicATH != nil {
			fields = append(fields, Field{Name: "Tracked High", Value: usd(*dynamicATH), Inline: true})
		}
	case models.TrailingCloseBelowEMA50:
		fields = append(fields,
			Field{Name: "50D EMA", Value: usd(result.Value), Inline: true},
			Field{Name: "Condition", Value: "Closed below 50D EMA", Inline: true},
		)
	}
	fields = append(fields, Field{Name: "Recommendation", Value: "Consider re-evaluating your position.", Inline: false})

	return Message{
		Title:       fmt.Sprintf("🛑 Trailing Stop Alert: %s 🛑", displayName(assetID)),
		Description: "Potential Exit Signal!\nThis asset shows signs of a trend reversal or significant pullback.",
		Color:       ColorTrailingStop,
		Fields:      fields,
		Footer:      footerAt("Trailing stop alert", now),
	}
}

// PortfolioMessage formats a portfolio performance alert.
func PortfolioMessage(summary models.PortfolioSummary, now time.Time) Message {
	fields := []Field{
		{Name: "Total Value", Value: usd(summary.TotalValue), Inline: true},
		{Name: "24h Change", Value: fmt.Sprintf("%+.2f%%", summary.TotalChangePct), Inline: true},
	}
	for _, a := range summary.Assets {
		fields = append(fields, Field{
			Name:   displayName(a.AssetID),
			Value:  fmt.Sprintf("%s (%+.2f%%)", usd(a.Value), a.DailyChangePct),
			Inline: true,
		})
	}
	color := ColorDipBuy
	if summary.TotalChangePct < 0 {
		color = ColorPriceSell
	}
	return Message{
		Title:       "📈 Portfolio Performance Alert 📉",
		Description: "Significant portfolio movement in the last 24 hours.",
		Color:       color,
		Fields:      fields,
		Footer:      footerAt("Portfolio alert", now),
	}
}

// SummaryMessage formats the daily summary report.
func SummaryMessage(summary models.PortfolioSummary, sent models.SentimentSnapshot, prices map[string]float64, order []string, now time.Time) Message {
	fields := []Field{
		{Name: "Portfolio Value", Value: usd(summary.TotalValue), Inline: true},
		{Name: "Portfolio 24h", Value: fmt.Sprintf("%+.2f%%", summary.TotalChangePct), Inline: true},
	}
	if sent.FearGreedScore != nil {
		fields = append(fields, Field{
			Name:   "Market Mood",
			Value:  fmt.Sprintf("%.0f (%s)", *sent.FearGreedScore, sent.FearGreedCategory),
			Inline: true,
		})
	}
	for _, assetID := range order {
		price, ok := prices[assetID]
		if !ok {
			continue
		}
		fields = append(fields, Field{Name: displayName(assetID), Value: usd(price), Inline: true})
	}
	return Message{
		Title:       fmt.Sprintf("☀️ Daily Crypto Summary: %s ☀️", now.UTC().Format("2006-01-02")),
		Description: "Here's your end-of-day overview of the crypto market and your portfolio.",
		Color:       ColorSummary,
		Fields:      fields,
		Footer:      footerAt("Daily summary", now),
	}
}

// ErrorMessage formats a cycle-failure notification.
func ErrorMessage(cycleErr error, now time.Time) Message {
	return Message{
		Title:       "⚠️ Monitoring Error ⚠️",
		Description: cycleErr.Error(),
		Color:       ColorTop,
		Footer:      footerAt("Error notification", now),
	}
}

// RecoveryMessage formats a recovery notification after consecutive
// failures.
func RecoveryMessage(failureCount int, now time.Time) Message {
	return Message{
		Title:       "✅ Monitoring Recovered ✅",
		Description: fmt.Sprintf("Monitoring recovered after %d consecutive failure(s).", failureCount),
		Color:       ColorDipBuy,
		Footer:      footerAt("Recovery notification", now),
	}
}
