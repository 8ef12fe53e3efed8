package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TGEconomyBot/internal/admin"
	"github.com/digkill/TGEconomyBot/internal/config"
	"github.com/digkill/TGEconomyBot/internal/ledger"
	"github.com/digkill/TGEconomyBot/internal/repository"
	"github.com/digkill/TGEconomyBot/internal/session"
	"github.com/digkill/TGEconomyBot/internal/telegram"
	"github.com/digkill/TGEconomyBot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Bootstrap(ctx, cfg, logr)
	if err != nil {
		log.Fatalf("database bootstrap: %v", err)
	}
	defer store.Close()

	economy := ledger.New(store, logr, ledger.WithFallback(func(ctx context.Context) (repository.Store, error) {
		return repository.BootstrapSQLite(ctx, cfg, logr)
	}))

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	sessions := session.NewManager(cfg.SessionTTL)
	go sessions.Run(ctx)

	bot := telegram.NewBot(cfg, botAPI, logr, economy, sessions)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, economy)
	go func() {
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
