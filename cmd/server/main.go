// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/parley/internal/account"
	"github.com/jason-s-yu/parley/internal/auth"
	"github.com/jason-s-yu/parley/internal/chat"
	"github.com/jason-s-yu/parley/internal/config"
	"github.com/jason-s-yu/parley/internal/database"
	"github.com/jason-s-yu/parley/internal/handlers"
	"github.com/jason-s-yu/parley/internal/notify"
	"github.com/jason-s-yu/parley/internal/social"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	store := database.NewStore(pool, cfg.DBTimeout)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET_KEY not set, sessions use an ephemeral key")
	}
	sessions, err := auth.NewSessions(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatalf("sessions: %v", err)
	}

	streamClient := chat.NewClient(cfg.StreamAPIKey, cfg.StreamSecret, cfg.StreamBaseURL, cfg.ChatTimeout)
	if cfg.StreamAPIKey == "" || cfg.StreamSecret == "" {
		logger.Warn("STREAM_API_KEY or STREAM_SECRET_KEY not set, chat features are disabled")
	}

	var (
		directory  chat.Syncer = streamClient
		publisher  notify.Publisher
		subscriber handlers.Subscriber
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("redis: %v", err)
		}
		hub := notify.NewRedis(rdb)
		publisher, subscriber = hub, hub
		if cfg.DirSyncMode == "queue" {
			directory = chat.NewQueue(rdb, cfg.DirSyncQueue)
			logger.Infof("directory sync queued on %s", cfg.DirSyncQueue)
		}
	}

	api := &handlers.API{
		Accounts:      account.NewService(store, directory, logger, cfg.ChatTimeout),
		Social:        social.NewService(store, publisher, logger),
		Chat:          streamClient,
		Sessions:      sessions,
		Users:         store,
		Notifications: subscriber,
		Logger:        logger,
		ClientURL:     cfg.ClientURL,
		SecureCookies: cfg.IsProduction(),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.Env}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
