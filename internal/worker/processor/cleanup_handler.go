package processor

import (
	"context"
	"errors"
	"os"

	"adstudio/internal/metrics"
	"adstudio/internal/models"
	"adstudio/internal/pkg/logger"
	"adstudio/internal/ports"
)

type Cleanup struct {
	sp  ports.StorageProvider
	log *logger.Logger
}

func NewCleanup(sp ports.StorageProvider, log *logger.Logger) *Cleanup {
	return &Cleanup{sp: sp, log: log}
}

// RemoveInput deletes the staged inline video once the job is terminal.
// Failures are warnings; the job outcome is already decided.
func (c *Cleanup) RemoveInput(ctx context.Context, j *models.OverlayJob) {
	if j.InputKey == "" {
		return
	}
	err := c.sp.DeleteObject(ctx, j.InputKey)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return
	}
	metrics.OverlayCleanupWarnings.Inc()
	c.log.FromContext(ctx).Warn("cleanup warning",
		"object_key", j.InputKey,
		"error", err.Error(),
	)
}
