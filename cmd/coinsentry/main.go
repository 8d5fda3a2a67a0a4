package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinsentry/internal/agent"
	"coinsentry/internal/coingecko"
	"coinsentry/internal/config"
	"coinsentry/internal/logger"
	"coinsentry/internal/notify"
	"coinsentry/internal/sentiment"
	"coinsentry/internal/storage"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.MaxRecords, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	market := coingecko.NewClient(
		cfg.Market.CoinGeckoAPIURL,
		cfg.Market.Timeout,
		cfg.Market.MaxRetries,
		cfg.Market.RetryDelay,
	)
	fearGreed := sentiment.NewClient(
		cfg.Market.FearGreedAPIURL,
		cfg.Market.FearGreedAPIKey,
		cfg.Market.Timeout,
		cfg.Market.MaxRetries,
		cfg.Market.RetryDelay,
	)

	notifier := buildNotifier(cfg)

	ag := agent.New(cfg, market, fearGreed, notifier, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		ag.Shutdown()
		cancel()
	}()

	logger.Info("Starting market agent (assets: %v)", cfg.Market.TrackedAssets)
	logger.Info("Comprehensive analysis every %v, price checks every %v",
		cfg.Schedule.ComprehensiveInterval, cfg.Schedule.PriceCheckInterval)
	logger.Info("Alert score threshold: %.0f, signal cooldown: %v, price cooldown: %v",
		cfg.Signal.AlertScoreThreshold, cfg.Cooldowns.Signal, cfg.Cooldowns.Price)
	if cfg.Schedule.SummaryTime != "" {
		logger.Info("Daily summary scheduled at %s", cfg.Schedule.SummaryTime)
	}

	comprehensiveTicker := time.NewTicker(cfg.Schedule.ComprehensiveInterval)
	defer comprehensiveTicker.Stop()
	priceTicker := time.NewTicker(cfg.Schedule.PriceCheckInterval)
	defer priceTicker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Comprehensive cycle failed: %v", err)
			if consecutiveFailures == 1 {
				if sendErr := notifier.Send(notify.ErrorMessage(err, time.Now())); sendErr != nil {
					logger.Warn("Failed to send error notification: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 {
				if sendErr := notifier.Send(notify.RecoveryMessage(consecutiveFailures, time.Now())); sendErr != nil {
					logger.Warn("Failed to send recovery notification: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial comprehensive cycle")
	handleCycleResult(ag.RunComprehensiveCycle(ctx, time.Now()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-comprehensiveTicker.C:
			logger.Debug("Starting scheduled comprehensive cycle")
			handleCycleResult(ag.RunComprehensiveCycle(ctx, time.Now()))

		case <-priceTicker.C:
			if err := ag.RunFastCycle(ctx, time.Now()); err != nil {
				logger.Warn("Fast cycle failed: %v", err)
			}
		}
	}
}

// buildNotifier assembles the enabled channels into one fan-out notifier.
// Running with no channels is allowed for dry runs; every alert is then a
// silent success.
func buildNotifier(cfg *config.Config) notify.Notifier {
	var channels []notify.Notifier

	if cfg.Notify.Discord.Enabled {
		channels = append(channels, notify.NewDiscord(
			cfg.Notify.Discord.WebhookURL,
			cfg.Market.Timeout,
			cfg.Market.MaxRetries,
			cfg.Market.RetryDelay,
		))
		logger.Info("Discord notifications enabled")
	}
	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(
			cfg.Notify.Telegram.BotToken,
			cfg.Notify.Telegram.ChatID,
			cfg.Market.MaxRetries,
			cfg.Market.RetryDelay,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		channels = append(channels, tg)
		logger.Info("Telegram notifications enabled")
	}
	if len(channels) == 0 {
		logger.Warn("No notification channels enabled; alerts will only be logged")
	}
	return notify.NewMulti(channels...)
}
