package handlers

import (
	"context"

	"adstudio/internal/models"
	"adstudio/internal/overlay"
	"adstudio/internal/pkg/logger"
	"adstudio/internal/ports"
)

// Overlayer runs a synchronous overlay; *overlay.Orchestrator satisfies it.
type Overlayer interface {
	Overlay(ctx context.Context, req overlay.Request) (*overlay.Response, error)
}

// JobStore is the job persistence used by the async endpoints.
type JobStore interface {
	Create(ctx context.Context, j *models.OverlayJob) error
	Get(ctx context.Context, id string) (*models.OverlayJob, error)
	List(ctx context.Context, status models.JobStatus, limit int) ([]models.OverlayJob, error)
	MarkFailed(ctx context.Context, id, code, msg string) error
	Ping(ctx context.Context) error
}

// JobQueue is the producer side of the worker queue.
type JobQueue interface {
	Push(ctx context.Context, jobID string) error
	Ping(ctx context.Context) error
}

type Deps struct {
	Overlay Overlayer
	// Jobs, Queue and SP are nil when async jobs are not configured.
	Jobs  JobStore
	Queue JobQueue
	SP    ports.StorageProvider
	Log   *logger.Logger

	MaxBodyBytes int64
	FFmpegPath   string
	Version      string
}

type Handler struct {
	overlay Overlayer
	jobs    JobStore
	queue   JobQueue
	sp      ports.StorageProvider
	log     *logger.Logger

	maxBody    int64
	ffmpegPath string
	version    string
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	ffmpeg := d.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Handler{
		overlay:    d.Overlay,
		jobs:       d.Jobs,
		queue:      d.Queue,
		sp:         d.SP,
		log:        log.WithComponent("http"),
		maxBody:    d.MaxBodyBytes,
		ffmpegPath: ffmpeg,
		version:    d.Version,
	}
}

// Log is the handler logger, shared with the error-wrapping middleware.
func (h *Handler) Log() *logger.Logger { return h.log }

func (h *Handler) asyncEnabled() bool {
	return h.jobs != nil && h.queue != nil && h.sp != nil
}
