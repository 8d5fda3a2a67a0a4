package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"coinsentry/internal/signal"
)

// Config represents the complete application configuration
type Config struct {
	Market    MarketConfig           `mapstructure:"market"`
	Signal    SignalConfig           `mapstructure:"signal"`
	Assets    map[string]AssetConfig `mapstructure:"assets"`
	Portfolio PortfolioConfig        `mapstructure:"portfolio"`
	Cooldowns CooldownConfig         `mapstructure:"cooldowns"`
	Schedule  ScheduleConfig         `mapstructure:"schedule"`
	Notify    NotifyConfig           `mapstructure:"notify"`
	Storage   StorageConfig          `mapstructure:"storage"`
	Logging   LoggingConfig          `mapstructure:"logging"`
}

// MarketConfig holds the market-data and sentiment provider configuration
type MarketConfig struct {
	TrackedAssets   []string      `mapstructure:"tracked_assets"`
	CoinGeckoAPIURL string        `mapstructure:"coingecko_api_url"`
	FearGreedAPIURL string        `mapstructure:"fear_greed_api_url"`
	FearGreedAPIKey string        `mapstructure:"fear_greed_api_key"`
	LookbackDays    int           `mapstructure:"lookback_days"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

// SignalConfig holds the composite-score settings
type SignalConfig struct {
	Weights               signal.Weights `mapstructure:"weights"`
	VolumeSpikeMultiplier float64        `mapstructure:"volume_spike_multiplier"`
	AlertScoreThreshold   float64        `mapstructure:"alert_score_threshold"`
}

// AssetConfig holds the per-asset alert settings, keyed by provider asset id
type AssetConfig struct {
	BuyBelow      *float64             `mapstructure:"buy_below"`
	SellAbove     *float64             `mapstructure:"sell_above"`
	ProfitTargets []ProfitTarget       `mapstructure:"profit_targets"`
	TrailingStop  TrailingStopSettings `mapstructure:"trailing_stop"`
}

// ProfitTarget is one profit-taking level for an asset
type ProfitTarget struct {
	TargetPrice    float64 `mapstructure:"target_price"`
	SellPercentage float64 `mapstructure:"sell_percentage"`
}

// TrailingStopSettings enables the trailing-stop sub-checks for an asset.
// A nil PercentDropFromATH disables the ATH-drop check.
type TrailingStopSettings struct {
	PercentDropFromATH *float64 `mapstructure:"percent_drop_from_ath"`
	CloseBelowEMA50    bool     `mapstructure:"close_below_ema50"`
}

// PortfolioConfig holds the tracked holdings and alert thresholds
type PortfolioConfig struct {
	Holdings              map[string]float64 `mapstructure:"holdings"`
	TotalChangePercent    float64            `mapstructure:"total_change_percent"`
	PerAssetChangePercent float64            `mapstructure:"per_asset_change_percent"`
}

// CooldownConfig holds the minimum interval between fires per alert category
type CooldownConfig struct {
	Signal       time.Duration `mapstructure:"signal"`
	Price        time.Duration `mapstructure:"price"`
	Portfolio    time.Duration `mapstructure:"portfolio"`
	ProfitTaking time.Duration `mapstructure:"profit_taking"`
	TrailingStop time.Duration `mapstructure:"trailing_stop"`
}

// ScheduleConfig holds the two loop intervals and the summary report time
type ScheduleConfig struct {
	ComprehensiveInterval time.Duration `mapstructure:"comprehensive_interval"`
	PriceCheckInterval    time.Duration `mapstructure:"price_check_interval"`
	SummaryTime           string        `mapstructure:"summary_time"` // "HH:MM", empty disables
}

// NotifyConfig holds the notification channel configuration
type NotifyConfig struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// DiscordConfig holds Discord webhook configuration
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Enabled    bool   `mapstructure:"enabled"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath     string `mapstructure:"db_path"`
	MaxRecords int    `mapstructure:"max_records"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("COINSENTRY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Market defaults
	v.SetDefault("market.coingecko_api_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.fear_greed_api_url", "https://pro-api.coinmarketcap.com/v3/fear-and-greed/historical")
	v.SetDefault("market.lookback_days", 250) // enough history for the 200-period EMA
	v.SetDefault("market.timeout", "30s")
	v.SetDefault("market.max_retries", 3)
	v.SetDefault("market.retry_delay", "2s")

	// Signal defaults
	v.SetDefault("signal.weights.rsi", 0.15)
	v.SetDefault("signal.weights.ema_crossover", 0.20)
	v.SetDefault("signal.weights.ema_price_position", 0.20)
	v.SetDefault("signal.weights.bollinger_bands", 0.10)
	v.SetDefault("signal.weights.volume_spike", 0.10)
	v.SetDefault("signal.weights.fgi_sentiment", 0.10)
	v.SetDefault("signal.weights.public_interest", 0.05)
	v.SetDefault("signal.weights.ath_proximity", 0.05)
	v.SetDefault("signal.weights.dominance", 0.05)
	v.SetDefault("signal.volume_spike_multiplier", 1.5)
	v.SetDefault("signal.alert_score_threshold", 80.0)

	// Portfolio defaults
	v.SetDefault("portfolio.total_change_percent", 10.0)
	v.SetDefault("portfolio.per_asset_change_percent", 10.0)

	// Cooldown defaults
	v.SetDefault("cooldowns.signal", "6h")
	v.SetDefault("cooldowns.price", "6h")
	v.SetDefault("cooldowns.portfolio", "12h")
	v.SetDefault("cooldowns.profit_taking", "24h")
	v.SetDefault("cooldowns.trailing_stop", "48h")

	// Schedule defaults
	v.SetDefault("schedule.comprehensive_interval", "6h")
	v.SetDefault("schedule.price_check_interval", "60s")
	v.SetDefault("schedule.summary_time", "22:00")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/coinsentry.db")
	v.SetDefault("storage.max_records", 5000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if len(c.Market.TrackedAssets) == 0 {
		return fmt.Errorf("market.tracked_assets must contain at least one asset")
	}
	if c.Market.CoinGeckoAPIURL == "" {
		return fmt.Errorf("market.coingecko_api_url is required")
	}
	if c.Market.LookbackDays < 1 {
		return fmt.Errorf("market.lookback_days must be at least 1")
	}
	if c.Market.MaxRetries < 0 {
		return fmt.Errorf("market.max_retries must not be negative")
	}

	w := c.Signal.Weights
	for name, value := range map[string]float64{
		"rsi":                w.RSI,
		"ema_crossover":      w.EMACrossover,
		"ema_price_position": w.EMAPricePosition,
		"bollinger_bands":    w.Bollinger,
		"volume_spike":       w.VolumeSpike,
		"fgi_sentiment":      w.FearGreed,
		"public_interest":    w.PublicInterest,
		"ath_proximity":      w.ATHProximity,
		"dominance":          w.Dominance,
	} {
		if value < 0.0 || value > 1.0 {
			return fmt.Errorf("signal.weights.%s must be between 0.0 and 1.0", name)
		}
	}
	if c.Signal.VolumeSpikeMultiplier <= 0 {
		return fmt.Errorf("signal.volume_spike_multiplier must be positive")
	}
	if c.Signal.AlertScoreThreshold < 0 || c.Signal.AlertScoreThreshold > 100 {
		return fmt.Errorf("signal.alert_score_threshold must be between 0 and 100")
	}

	for assetID, asset := range c.Assets {
		if asset.TrailingStop.PercentDropFromATH != nil && *asset.TrailingStop.PercentDropFromATH <= 0 {
			return fmt.Errorf("assets.%s.trailing_stop.percent_drop_from_ath must be positive", assetID)
		}
		for i, target := range asset.ProfitTargets {
			if target.TargetPrice <= 0 {
				return fmt.Errorf("assets.%s.profit_targets[%d].target_price must be positive", assetID, i)
			}
			if target.SellPercentage <= 0 || target.SellPercentage > 100 {
				return fmt.Errorf("assets.%s.profit_targets[%d].sell_percentage must be in (0, 100]", assetID, i)
			}
		}
	}

	for assetID, quantity := range c.Portfolio.Holdings {
		if quantity < 0 {
			return fmt.Errorf("portfolio.holdings.%s must not be negative", assetID)
		}
	}

	for name, d := range map[string]time.Duration{
		"signal":        c.Cooldowns.Signal,
		"price":         c.Cooldowns.Price,
		"portfolio":     c.Cooldowns.Portfolio,
		"profit_taking": c.Cooldowns.ProfitTaking,
		"trailing_stop": c.Cooldowns.TrailingStop,
	} {
		if d <= 0 {
			return fmt.Errorf("cooldowns.%s must be a positive duration", name)
		}
	}

	if c.Schedule.ComprehensiveInterval < 1*time.Minute {
		return fmt.Errorf("schedule.comprehensive_interval must be at least 1 minute")
	}
	if c.Schedule.PriceCheckInterval < 1*time.Second {
		return fmt.Errorf("schedule.price_check_interval must be at least 1 second")
	}
	if c.Schedule.SummaryTime != "" {
		if _, err := time.Parse("15:04", c.Schedule.SummaryTime); err != nil {
			return fmt.Errorf("schedule.summary_time must be HH:MM in 24-hour format: %w", err)
		}
	}

	if c.Notify.Discord.Enabled && c.Notify.Discord.WebhookURL == "" {
		return fmt.Errorf("notify.discord.webhook_url is required when discord is enabled")
	}
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
		}
		if c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxRecords < 1 {
		return fmt.Errorf("storage.max_records must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
