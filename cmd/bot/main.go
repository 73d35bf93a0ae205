package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/auth"
	"github.com/PoluyanbIch/TerduQuizBot/internal/config"
	"github.com/PoluyanbIch/TerduQuizBot/internal/logger"
	"github.com/PoluyanbIch/TerduQuizBot/internal/storage"
	"github.com/PoluyanbIch/TerduQuizBot/internal/telegram"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.Logger)

	if cfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	db, err := storage.Open(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}
	store := auth.NewStore(db)
	if err := store.Migrate(); err != nil {
		log.WithError(err).Fatal("migrate credentials")
	}

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithLogger(log.WithField("component", "api")),
	)
	authService := auth.NewService(client, store, log.WithField("component", "auth"))

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.WithError(err).Fatal("connect to telegram")
	}
	botAPI.Debug = cfg.Telegram.Debug

	username := cfg.Telegram.BotUsername
	if username == "" {
		username = botAPI.Self.UserName
	}
	log.Infof("Authorized on account %s", botAPI.Self.UserName)

	bot := telegram.NewBot(botAPI, client, authService, log.WithField("component", "bot"), telegram.Options{
		Duration:    cfg.Quiz.Duration,
		Shuffle:     cfg.Quiz.Shuffle,
		BotUsername: username,
		ReportFont:  cfg.Report.FontPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		botAPI.StopReceivingUpdates()
	}()

	log.Info("🤖 Bot is starting...")
	bot.Start(ctx, updates)
	log.Info("bot stopped")
}
