package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"autoorderbot/internal/bootstrap"
	"autoorderbot/internal/bot"
	"autoorderbot/internal/config"
	cronpkg "autoorderbot/internal/cron"
	"autoorderbot/internal/handler/api"
	"autoorderbot/internal/middleware"
	"autoorderbot/internal/order"
	"autoorderbot/internal/pkg/telegram"
	"autoorderbot/internal/redeem"
	"autoorderbot/internal/repository"
	"autoorderbot/internal/router"
	"autoorderbot/internal/smm"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.MigrateAndSeed(db, cfg.Bot.AdminID); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	redeemRepo := repository.NewRedeemCodeRepository(db)

	// --- Telegram Bot API (direct HTTP client) ---
	botAPI := telegram.NewBotAPI(cfg.Bot.Token)

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true

	// --- Webhook Deduper (Redis with in-memory fallback) ---
	updateDeduper, dedupeErr := middleware.NewUpdateDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		10*time.Minute,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for webhook dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- SMM panel client ---
	smmClient := smm.NewClient(cfg.SMM.APIURL, cfg.SMM.APIKey, cfg.SMM.SecretKey, cfg.SMM.Timeout)
	validator := smm.NewValidator(smmClient, cfg.SMM.Service1, cfg.SMM.Service2)

	// --- Order flow ---
	sessions := order.NewSessionStore(cfg.Order.SessionTTL)
	processor := order.NewProcessor(
		order.ProcessorConfig{
			Service1:          cfg.SMM.Service1,
			Service2:          cfg.SMM.Service2,
			ProgressEvery:     cfg.Order.ProgressEvery,
			ChargeFailedLinks: cfg.Order.ChargeFailedLinks,
		},
		userRepo, orderRepo, smmClient, validator, sessions, logger,
	)
	tracker := order.NewTracker(orderRepo, smmClient, logger)
	registry := redeem.NewRegistry(redeemRepo, logger)

	// --- Bot ---
	botRepos := &bot.BotRepos{
		User:   userRepo,
		Order:  orderRepo,
		Redeem: redeemRepo,
	}
	teleBot, err := bot.New(cfg, botRepos, processor, tracker, registry, sessions, botAPI, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// --- Routes ---
	apiRepos := &api.Repos{
		User:   userRepo,
		Order:  orderRepo,
		Redeem: redeemRepo,
	}
	router.Setup(e, apiRepos, tracker, registry, logger, cfg.API.Key, updateDeduper, teleBot.WebhookHandler())

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg, orderRepo, tracker, sessions, logger)
	scheduler.Start()

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// Start bot (in webhook mode telebot registers the webhook with
	// Telegram and waits for updates via the Echo-mounted handler)
	go teleBot.Start()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop bot
	teleBot.Stop()

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
