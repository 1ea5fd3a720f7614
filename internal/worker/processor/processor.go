package processor

import (
	"context"
	"errors"

	"adstudio/internal/metrics"
	"adstudio/internal/models"
	"adstudio/internal/overlay"
	apperrors "adstudio/internal/pkg/errors"
	"adstudio/internal/pkg/logger"
	"adstudio/internal/ports"
	"adstudio/internal/repositories"
)

// JobStore is the part of repositories.JobRepository the processor needs.
type JobStore interface {
	Get(ctx context.Context, id string) (*models.OverlayJob, error)
	MarkRunning(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id, outputKey string, size int64) error
	MarkFailed(ctx context.Context, id, code, msg string) error
}

// Runner executes one overlay job; *overlay.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req overlay.Request) (*overlay.Result, error)
}

type Deps struct {
	Jobs    JobStore
	Overlay Runner
	SP      ports.StorageProvider
	Log     *logger.Logger
}

type Processor struct {
	jobs    JobStore
	overlay Runner
	log     *logger.Logger

	jobParser     *JobParser
	outputHandler *OutputHandler
	cleanup       *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	return &Processor{
		jobs:          d.Jobs,
		overlay:       d.Overlay,
		log:           log,
		jobParser:     NewJobParser(d.SP),
		outputHandler: NewOutputHandler(d.SP),
		cleanup:       NewCleanup(d.SP, log),
	}
}

// ProcessJob runs a queued job to a terminal state. Jobs that are missing or
// no longer QUEUED are skipped without error so redelivered ids are harmless.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	// 1. Claim the job
	if err := p.jobs.MarkRunning(ctx, jobID); err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			log.Warn("job not claimable, skipping")
			return nil
		}
		return apperrors.Wrap(err, "processor.status", "failed to mark job as running")
	}

	metrics.WorkerJobsInFlight.Inc()
	defer metrics.WorkerJobsInFlight.Dec()

	j, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return p.failJob(ctx, jobID, apperrors.Wrap(err, "processor.fetch", "failed to fetch job"))
	}
	defer p.cleanup.RemoveInput(context.WithoutCancel(ctx), j)

	// 2. Rebuild the request
	req, err := p.jobParser.Parse(ctx, j)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	// 3. Render
	log.Info("starting overlay")
	res, err := p.overlay.Run(ctx, req)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	// 4. Store output
	out, err := p.outputHandler.Store(ctx, jobID, res)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}
	log.Debug("output stored", "object_key", out.ObjectKey, "size", out.Size)

	// 5. Mark done, retrying once; a row must never stay RUNNING
	doneCtx := context.WithoutCancel(ctx)
	err = p.jobs.MarkDone(doneCtx, jobID, out.ObjectKey, out.Size)
	if err != nil {
		log.Warn("mark done failed, retrying", "error", err.Error())
		err = p.jobs.MarkDone(doneCtx, jobID, out.ObjectKey, out.Size)
	}
	if err != nil {
		return p.failJob(ctx, jobID, apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "processor.status", "failed to mark job as done"))
	}
	return nil
}

func (p *Processor) failJob(ctx context.Context, jobID string, cause error) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)
	code, msg := failureDetails(cause)

	var appErr *apperrors.Error
	if apperrors.As(cause, &appErr) {
		log.Error("job failed",
			"code", string(appErr.Code),
			"op", appErr.Op,
			"message", appErr.Message,
		)
	} else {
		log.Error("job failed", "error", msg)
	}

	// The job context may be canceled on shutdown; the row still has to leave RUNNING.
	if err := p.jobs.MarkFailed(context.WithoutCancel(ctx), jobID, code, msg); err != nil {
		log.Error("failed to mark job as failed", "error", err.Error())
	}

	return cause
}
