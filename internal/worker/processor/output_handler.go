package processor

import (
	"bytes"
	"context"

	"adstudio/internal/models"
	"adstudio/internal/overlay"
	"adstudio/internal/pkg/errors"
	"adstudio/internal/ports"
)

type OutputHandler struct {
	sp ports.StorageProvider
}

func NewOutputHandler(sp ports.StorageProvider) *OutputHandler {
	return &OutputHandler{sp: sp}
}

// Store uploads the rendered video and returns the provider's object key.
func (oh *OutputHandler) Store(ctx context.Context, jobID string, res *overlay.Result) (ports.PutObjectOutput, error) {
	out, err := oh.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   models.OutputObjectKey(jobID),
		ContentType: res.MimeType,
		Reader:      bytes.NewReader(res.Video),
		Size:        int64(len(res.Video)),
	})
	if err != nil {
		return ports.PutObjectOutput{}, errors.Wrap(err, "processor.output", "failed to upload output")
	}
	return out, nil
}
