package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"adstudio/internal/metrics"
)

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

func (q *RedisQueue) Name() string { return q.queueName }

// Push enqueues a job id. Workers pop from the other end, so jobs run FIFO.
func (q *RedisQueue) Push(ctx context.Context, jobID string) error {
	err := q.rdb.LPush(ctx, q.queueName, jobID).Err()
	record("push", err)
	return err
}

// Pop blocks up to timeout for a job id (BRPOP). It returns "" and no error
// when the wait times out.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	record("pop", err)
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func record(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.QueueOperations.WithLabelValues(op, status).Inc()
}
