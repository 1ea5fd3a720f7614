package worker

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"adstudio/internal/overlay"
	"adstudio/internal/pkg/logger"
	"adstudio/internal/ports"
)

type Deps struct {
	Pool        *pgxpool.Pool
	RDB         *redis.Client
	SP          ports.StorageProvider
	Overlay     *overlay.Orchestrator
	QueueName   string
	Concurrency int
	Log         *logger.Logger
}
