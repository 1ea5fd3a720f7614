package main

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"adstudio/internal/config"
	"adstudio/internal/overlay"
	"adstudio/internal/pkg/logger"
	"adstudio/internal/pkg/shutdown"
	"adstudio/internal/storage"
	"adstudio/internal/worker"
)

func main() {
	logCfg := logger.DefaultConfig()
	logCfg.ServiceName = config.Env("SERVICE_NAME", "adstudio-worker")
	log := logger.New(logCfg)

	cfg, err := config.Load()
	if err != nil {
		log.LogFatal("invalid configuration", err)
	}
	if err := cfg.RequireAsync(); err != nil {
		log.LogFatal("worker needs the job store and queue", err)
	}
	if err := cfg.EnsureTempDir(); err != nil {
		log.LogFatal("failed to create overlay temp dir", err, "dir", cfg.Overlay.TempDir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	pool, err := pgxpool.New(ctx, cfg.Queue.DatabaseURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.RegisterSimple("postgres", pool.Close)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}

	deps := worker.Deps{
		Pool:        pool,
		RDB:         rdb,
		SP:          sp,
		Overlay:     overlay.New(cfg.Overlay, log),
		QueueName:   cfg.Queue.Name,
		Concurrency: cfg.Queue.Concurrency,
		Log:         log,
	}

	stopped := make(chan struct{})
	shutdownMgr.Register("worker", func(ctx context.Context) error {
		cancel()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	go func() {
		defer close(stopped)
		if err := worker.Run(ctx, deps); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker stopped", "error", err.Error())
			cancel()
		}
	}()

	shutdownMgr.Wait(ctx)
}
