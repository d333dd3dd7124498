package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"puntoventa/internal/alerts"
	"puntoventa/internal/catalog"
	"puntoventa/internal/config"
	"puntoventa/internal/pos"
	"puntoventa/internal/session"
	"puntoventa/internal/storage"
	"puntoventa/pkg/api"
	"puntoventa/pkg/logger"
	"puntoventa/pkg/redis"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ENTRY POINT

func main() {
	zapLogger, err := logger.New()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLogger.Fatal("Failed to load config", zap.Error(err))
	}

	redisClient := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
	defer redisClient.Close()

	journal, err := storage.NewSalesJournal(context.Background(), cfg, redisClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init sales journal", zap.Error(err))
	}
	defer journal.Close()

	if err := storage.RunMigrations(context.Background(), journal.DB().DB, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	apiClient := api.NewClient(cfg.APIBaseURL, cfg.HTTPRequestTimeout, zapLogger)

	standardRate := decimal.NewFromFloat(cfg.StandardIVARate)
	sessions := session.NewManager(apiClient, redisClient, standardRate, zapLogger)
	catalogSvc := catalog.New(apiClient, redisClient, cfg.CatalogCacheTTL, zapLogger)

	var notifier alerts.Notifier = alerts.Nop{}
	if cfg.TelegramToken != "" {
		tg, err := alerts.NewTelegram(cfg.TelegramToken, cfg.AlertChatID, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create alert bot", zap.Error(err))
		}
		notifier = tg
	}

	terminal := pos.New(
		apiClient,
		sessions,
		catalogSvc,
		journal,
		notifier,
		standardRate,
		os.Stdin,
		os.Stdout,
		zapLogger,
	)

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	if err := terminal.Start(ctx); err != nil {
		zapLogger.Fatal("Terminal stopped with error", zap.Error(err))
	}

	zapLogger.Info("Terminal shutdown gracefully")
}
