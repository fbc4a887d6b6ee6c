package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"farewatch/internal/amadeus"
	"farewatch/internal/config"
	"farewatch/internal/logger"
	"farewatch/internal/models"
	"farewatch/internal/monitor"
	"farewatch/internal/storage"
	"farewatch/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// nopSink is used when Telegram is disabled: alerts are dropped after logging.
type nopSink struct{}

func (nopSink) SendAlert(models.Alert) error                 { return nil }
func (nopSink) SendPersonalAlert(models.PersonalAlert) error { return nil }
func (nopSink) SendSummary(models.DailySummary) error        { return nil }

func main() {
	flag.Parse()

	// .env is optional; real deployments may export the variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	source := amadeus.NewClient(
		cfg.Amadeus.APIURL,
		cfg.Amadeus.APIKey,
		cfg.Amadeus.APISecret,
		cfg.Amadeus.Timeout,
		amadeus.ClientConfig{
			MaxRetries:          cfg.Amadeus.MaxRetries,
			RetryDelayBase:      cfg.Amadeus.RetryDelayBase,
			DepartureOffsetDays: cfg.Amadeus.DepartureOffsetDays,
			CurrencyCode:        cfg.Amadeus.CurrencyCode,
		},
	)

	var telegramClient *telegram.Client
	var sink monitor.NotificationSink = nopSink{}
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		sink = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	seed := make([]models.Route, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("%s → %s", r.Origin, r.Destination)
		}
		seed = append(seed, models.Route{Origin: r.Origin, Destination: r.Destination, Name: name})
	}

	mon, err := monitor.New(store, source, sink, monitor.Config{
		BaseInterval: cfg.Monitor.BaseInterval,
		FetchPause:   cfg.Monitor.FetchPause,
		LearningDays: cfg.Monitor.LearningDays,
		Thresholds: monitor.Thresholds{
			GoodPct:      cfg.Monitor.GoodPct,
			ExcellentPct: cfg.Monitor.ExcellentPct,
			CriticalPct:  cfg.Monitor.CriticalPct,
		},
		SummaryHour:        cfg.Monitor.SummaryHour,
		TopPromotions:      cfg.Monitor.TopPromotions,
		SummaryMinDiscount: cfg.Monitor.SummaryMinDiscount,
	}, seed)
	if err != nil {
		logger.Fatal("Failed to initialize monitor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx, mon)
	}

	// Daily summary runs on its own coarse ticker; MaybeSendSummary
	// de-duplicates per day.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				mon.MaybeSendSummary(now)
			}
		}
	}()

	logger.Info("Starting monitoring service (base interval: %v, learning days: %d)",
		cfg.Monitor.BaseInterval, cfg.Monitor.LearningDays)

	consecutiveFailures := 0
	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Monitoring cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial monitoring cycle")
	interval, err := mon.RunCycle(ctx)
	handleCycleResult(err)

	// The cycle picks its own delay, so a resettable timer replaces a fixed
	// ticker.
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-timer.C:
			logger.Debug("Starting scheduled monitoring cycle [%s]", mon.Mode())
			interval, err = mon.RunCycle(ctx)
			handleCycleResult(err)
			timer.Reset(interval)
		}
	}
}
