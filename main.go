package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"crypto-signal-bot/config"
	"crypto-signal-bot/internal/api"
	"crypto-signal-bot/internal/auth"
	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/bot"
	"crypto-signal-bot/internal/cache"
	"crypto-signal-bot/internal/database"
	"crypto-signal-bot/internal/events"
	"crypto-signal-bot/internal/logging"
	"crypto-signal-bot/internal/ml"
	"crypto-signal-bot/internal/notification"
	"crypto-signal-bot/internal/observability"
	appscanner "crypto-signal-bot/internal/scanner"
	appsignal "crypto-signal-bot/internal/signal"
	"crypto-signal-bot/internal/stats"
	"crypto-signal-bot/internal/tracker"
	"crypto-signal-bot/internal/vault"
)

func main() {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Pretty:     cfg.LoggingConfig.Pretty,
		File:       cfg.LoggingConfig.File,
		MaxSizeMB:  cfg.LoggingConfig.MaxSizeMB,
		MaxBackups: cfg.LoggingConfig.MaxBackups,
		MaxAgeDays: cfg.LoggingConfig.MaxAgeDays,
	})
	logger.Info().Str("config", configPath).Msg("starting signal bot")

	ctx := context.Background()

	// Vault-backed secrets fall through to the config file values when
	// Vault is disabled.
	vaultClient, err := vault.NewClient(vault.Config{
		Enabled:    cfg.VaultConfig.Enabled,
		Address:    cfg.VaultConfig.Address,
		Token:      cfg.VaultConfig.Token,
		MountPath:  cfg.VaultConfig.MountPath,
		SecretPath: cfg.VaultConfig.SecretPath,
		TLSEnabled: cfg.VaultConfig.TLSEnabled,
		CACert:     cfg.VaultConfig.CACert,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vault client")
	}
	dbPassword, err := vaultClient.GetSecret(ctx, "db_password", cfg.DatabaseConfig.Password)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve database password")
	}
	telegramToken, err := vaultClient.GetSecret(ctx, "telegram_bot_token", cfg.NotificationConfig.Telegram.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve telegram token")
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: dbPassword,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	repo := database.NewRepository(db)

	client := binance.NewClient(cfg.BinanceConfig.BaseURL)

	universe := cache.NewUniverseCache(cache.Config{
		Enabled:  cfg.RedisConfig.Enabled,
		Address:  cfg.RedisConfig.Address,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
		PoolSize: cfg.RedisConfig.PoolSize,
	}, client, logger)
	defer universe.Close()

	predictor := ml.NewPredictor(ml.NewFileStore(cfg.MLConfig.ModelPath), logger)
	scorer := appsignal.NewScorer()
	builder := appsignal.NewBuilder(scorer, predictor, appsignal.BuilderConfig{
		MinConfidence:     cfg.SignalConfig.MinConfidence,
		MinTrendStrength:  cfg.SignalConfig.MinTrendStrength,
		ATRMultiplierSL:   cfg.SignalConfig.ATRMultiplierSL,
		ATRMultiplierTP1:  cfg.SignalConfig.ATRMultiplierTP1,
		ATRMultiplierTP2:  cfg.SignalConfig.ATRMultiplierTP2,
		ATRMultiplierTP3:  cfg.SignalConfig.ATRMultiplierTP3,
		EnableAveraging:   cfg.SignalConfig.EnableAveraging,
		AveragingDistance: cfg.SignalConfig.AveragingDistance,
	}, logger)

	trackerCfg := tracker.Config{
		EntryWeightA: cfg.TrackerConfig.EntryWeightA,
		EntryWeightB: cfg.TrackerConfig.EntryWeightB,
	}

	notifyManager := notification.NewManager(trackerCfg, logger)
	if cfg.NotificationConfig.Enabled {
		if cfg.NotificationConfig.Telegram.Enabled {
			notifyManager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: telegramToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  true,
			}))
			logger.Info().Msg("Telegram notifications enabled")
		}
		if cfg.NotificationConfig.Discord.Enabled {
			notifyManager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    true,
			}))
			logger.Info().Msg("Discord notifications enabled")
		}
	}

	eventBus := events.NewEventBus()

	posTracker := tracker.NewTracker(repo, client, notifyManager, trackerCfg, logger)

	marketScanner := appscanner.NewScanner(client, universe, builder, repo, notifyManager, appscanner.Config{
		Enabled:          cfg.ScannerConfig.Enabled,
		ScanInterval:     time.Duration(cfg.ScannerConfig.ScanIntervalMinutes) * time.Minute,
		KlineInterval:    cfg.ScannerConfig.KlineInterval,
		LookbackBars:     cfg.ScannerConfig.LookbackBars,
		UniverseSize:     cfg.ScannerConfig.UniverseSize,
		MaxSignalsPerRun: cfg.ScannerConfig.MaxSignalsPerRun,
		WorkerCount:      cfg.ScannerConfig.WorkerCount,
	}, logger)
	marketScanner.OnSignal(func(sig *database.SignalRecord) {
		observability.IncSignalGenerated(sig.Side)
		eventBus.PublishSignalGenerated(sig.ID, sig.Symbol, sig.Side, sig.EntryA, sig.Confidence)
	})
	marketScanner.OnScanDone(func(result *appscanner.ScanResult) {
		observability.IncScanCompleted()
		observability.SetScanDuration(result.Duration.Seconds())
		observability.AddSymbolsSkipped(result.SymbolsSkipped)
		eventBus.PublishScanFinished(result.ScanID, result.SymbolsScanned, result.SymbolsSkipped,
			result.SignalsGenerated, result.Duration)
	})

	reporter := stats.NewReporter(repo)

	var authManager *auth.Manager
	if cfg.AuthConfig.Enabled {
		authManager = auth.NewManager(auth.Config{
			Username:      cfg.AuthConfig.Username,
			PasswordHash:  cfg.AuthConfig.PasswordHash,
			JWTSecret:     cfg.AuthConfig.JWTSecret,
			TokenDuration: time.Duration(cfg.AuthConfig.TokenDurationHours) * time.Hour,
		})
	}

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(api.ServerConfig{
			Port:           cfg.ServerConfig.Port,
			Host:           cfg.ServerConfig.Host,
			ProductionMode: cfg.ServerConfig.ProductionMode,
			AllowOrigins:   cfg.ServerConfig.AllowOrigins,
		}, repo, reporter, marketScanner, eventBus, authManager, logger)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start API server")
		}
	}

	commandBot := bot.NewTelegramBot(bot.Config{
		BotToken: telegramToken,
		ChatID:   cfg.NotificationConfig.Telegram.ChatID,
		Enabled:  cfg.NotificationConfig.Telegram.CommandsEnabled,
	}, repo, reporter, marketScanner, logger)
	commandBot.Start()

	marketScanner.Start()
	eventBus.Publish(events.Event{Type: events.EventBotStarted, Data: map[string]interface{}{}})

	trackStop := make(chan struct{})
	trackDone := make(chan struct{})
	go runTrackLoop(posTracker, repo, eventBus, time.Duration(cfg.TrackerConfig.CheckIntervalSeconds)*time.Second, logger, trackStop, trackDone)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("shutdown signal received")

	close(trackStop)
	<-trackDone
	marketScanner.Stop()
	commandBot.Stop()
	eventBus.Publish(events.Event{Type: events.EventBotStopped, Data: map[string]interface{}{}})

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("API server shutdown failed")
		}
	}

	logger.Info().Msg("shutdown complete")
}

// runTrackLoop drives the position tracker on a fixed interval and fans its
// events out to the bus and the metrics registry.
func runTrackLoop(
	posTracker *tracker.Tracker,
	repo *database.Repository,
	eventBus *events.EventBus,
	interval time.Duration,
	logger zerolog.Logger,
	stop <-chan struct{},
	done chan<- struct{},
) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			evts, err := posTracker.CheckAll(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("tracker check cycle failed")
				eventBus.PublishError("tracker", "check cycle failed", err)
			}
			for _, evt := range evts {
				publishTrackerEvent(eventBus, evt)
			}
			if open, err := repo.GetOpenSignals(ctx); err == nil {
				observability.SetOpenSignals(len(open))
			}
			cancel()
		}
	}
}

func publishTrackerEvent(eventBus *events.EventBus, evt *tracker.Event) {
	sig := evt.Signal
	switch evt.Type {
	case tracker.EventStopLoss:
		observability.IncSignalExit("stop_loss")
		observability.SetLastSignalPnL(evt.PnL)
		eventBus.PublishStopLoss(sig.ID, sig.Symbol, evt.Price, evt.PnL)
		eventBus.PublishSignalClosed(sig.ID, sig.Symbol, sig.Side, "stop_loss", evt.Price, evt.PnL)
	case tracker.EventTP1:
		observability.IncTPHit("1")
		eventBus.PublishTPHit(sig.ID, sig.Symbol, 1, evt.Price, evt.PnL)
	case tracker.EventTP2:
		observability.IncTPHit("2")
		eventBus.PublishTPHit(sig.ID, sig.Symbol, 2, evt.Price, evt.PnL)
	case tracker.EventTP3Full:
		observability.IncTPHit("3")
		observability.IncSignalExit("tp3")
		observability.SetLastSignalPnL(evt.PnL)
		eventBus.PublishTPHit(sig.ID, sig.Symbol, 3, evt.Price, evt.PnL)
		eventBus.PublishSignalClosed(sig.ID, sig.Symbol, sig.Side, "tp3", evt.Price, evt.PnL)
	}
}
