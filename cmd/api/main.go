package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"adstudio/internal/config"
	"adstudio/internal/httpapi"
	"adstudio/internal/httpapi/handlers"
	"adstudio/internal/overlay"
	"adstudio/internal/pkg/logger"
	"adstudio/internal/pkg/shutdown"
	"adstudio/internal/repositories"
	"adstudio/internal/storage"
	"adstudio/internal/worker/queue"
)

const version = "0.1.0"

func main() {
	logCfg := logger.DefaultConfig()
	logCfg.ServiceName = config.Env("SERVICE_NAME", "adstudio-api")
	log := logger.New(logCfg)

	log.Info("starting adstudio API", "version", version)

	cfg, err := config.Load()
	if err != nil {
		log.LogFatal("invalid configuration", err)
	}
	if err := cfg.EnsureTempDir(); err != nil {
		log.LogFatal("failed to create overlay temp dir", err, "dir", cfg.Overlay.TempDir)
	}

	ctx := context.Background()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	deps := handlers.Deps{
		Overlay:      overlay.New(cfg.Overlay, log),
		Log:          log,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		FFmpegPath:   cfg.Overlay.FFmpegPath,
		Version:      version,
	}

	if cfg.AsyncEnabled() {
		// Connect to PostgreSQL
		log.Info("connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.Queue.DatabaseURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		shutdownMgr.RegisterSimple("postgres", pool.Close)

		if err := pool.Ping(ctx); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}
		log.Info("PostgreSQL connected")

		// Connect to Redis
		log.Info("connecting to Redis")
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		log.Info("Redis connected")

		// Initialize storage provider
		sp, err := storage.NewProvider(ctx, cfg.Storage)
		if err != nil {
			log.LogFatal("failed to initialize storage provider", err)
		}
		log.Info("storage provider initialized", "provider", sp.Provider())

		deps.Jobs = repositories.NewJobRepository(pool)
		deps.Queue = queue.NewRedisQueue(rdb, cfg.Queue.Name)
		deps.SP = sp
	} else {
		log.Info("DATABASE_URL or REDIS_ADDR not set, async jobs disabled")
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Handlers:       deps,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	// Writes must outlive the request timeout so the TIMEOUT body gets out.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      cfg.HTTP.RequestTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", cfg.HTTP.Port,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	// Wait for shutdown signal
	shutdownMgr.Wait(ctx)
}
