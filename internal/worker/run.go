package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"adstudio/internal/pkg/logger"
	"adstudio/internal/repositories"
	"adstudio/internal/worker/processor"
	"adstudio/internal/worker/queue"
)

// popTimeout bounds each BRPOP so loops notice cancellation.
const popTimeout = 5 * time.Second

// Popper is the consumer side of the job queue.
type Popper interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

// JobProcessor runs one job id to completion.
type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// Run starts d.Concurrency independent consume loops and blocks until ctx
// is canceled or a loop fails.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	q := queue.NewRedisQueue(d.RDB, d.QueueName)
	p := processor.New(processor.Deps{
		Jobs:    repositories.NewJobRepository(d.Pool),
		Overlay: d.Overlay,
		SP:      d.SP,
		Log:     log,
	})

	n := d.Concurrency
	if n < 1 {
		n = 1
	}
	log.Info("worker started", "queue", q.Name(), "concurrency", n)
	return consume(ctx, q, p, n, log)
}

func consume(ctx context.Context, q Popper, p JobProcessor, n int, log *logger.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		loopLog := &logger.Logger{Logger: log.Logger.With("loop", i)}
		g.Go(func() error { return loop(ctx, q, p, loopLog) })
	}
	return g.Wait()
}

func loop(ctx context.Context, q Popper, p JobProcessor, log *logger.Logger) error {
	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		jobID, err := q.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}

			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if jobID == "" {
			continue
		}

		jobCtx := logger.ContextWithJobID(ctx, jobID)
		jobLog := log.WithJobID(jobID)

		jobLog.Info("processing job")
		startTime := time.Now()

		if err := p.ProcessJob(jobCtx, jobID); err != nil {
			jobLog.Error("job failed",
				"error", err.Error(),
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		} else {
			jobLog.Info("job completed",
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		}
	}
}
