// cmd/dirsync/main.go pops queued identity upserts from Redis and applies them to the chat service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/parley/internal/chat"
	"github.com/jason-s-yu/parley/internal/config"
	"github.com/jason-s-yu/parley/internal/metrics"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := cfg.NewLogger()

	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}
	if cfg.StreamAPIKey == "" || cfg.StreamSecret == "" {
		logger.Fatal("STREAM_API_KEY and STREAM_SECRET_KEY are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("redis: %v", err)
	}

	queue := chat.NewQueue(rdb, cfg.DirSyncQueue)
	client := chat.NewClient(cfg.StreamAPIKey, cfg.StreamSecret, cfg.StreamBaseURL, cfg.ChatTimeout)

	// metrics only; the worker has no API
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{Addr: ":" + cfg.DirSyncMetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server exited")
		}
	}()

	if n, err := queue.Len(ctx); err == nil {
		logger.Infof("dirsync worker started on %s with %d queued jobs", cfg.DirSyncQueue, n)
	}
	if err := queue.Drain(ctx, client, logger); err != nil {
		logger.WithError(err).Error("dirsync drain failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsSrv.Shutdown(shutdownCtx)
	logger.Info("dirsync worker stopped")
}

