package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PoluyanbIch/TerduQuizBot/internal/config"
	"github.com/PoluyanbIch/TerduQuizBot/internal/logger"
	"github.com/PoluyanbIch/TerduQuizBot/internal/mockapi"
)

// Локальный сервер с тем же API, что и у настоящего бэкенда
func main() {
	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.Logger)

	db, err := mockapi.OpenMemory()
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	srv, err := mockapi.New(db, mockapi.Options{
		JWTSecret: cfg.MockAPI.JWTSecret,
		TokenTTL:  cfg.MockAPI.TokenTTL,
		Logger:    log.WithField("component", "mockapi"),
	})
	if err != nil {
		log.WithError(err).Fatal("init mock api")
	}
	if cfg.MockAPI.Seed {
		if err := srv.Seed(); err != nil {
			log.WithError(err).Fatal("seed")
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.MockAPI.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("mock api listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("mock api stopped")
}
