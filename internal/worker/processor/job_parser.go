package processor

import (
	"context"
	"encoding/json"
	"io"

	"adstudio/internal/models"
	"adstudio/internal/overlay"
	"adstudio/internal/pkg/errors"
	"adstudio/internal/ports"
)

type JobParser struct {
	sp ports.StorageProvider
}

func NewJobParser(sp ports.StorageProvider) *JobParser {
	return &JobParser{sp: sp}
}

// Parse rebuilds the overlay request stored with the job. An inline video
// staged in storage is read back into VideoBase64.
func (jp *JobParser) Parse(ctx context.Context, j *models.OverlayJob) (overlay.Request, error) {
	var req overlay.Request
	if err := json.Unmarshal(j.Params, &req); err != nil {
		return overlay.Request{}, errors.WrapWithCode(err, errors.CodeValidation, "processor.parse", "invalid params_json")
	}

	if j.InputKey == "" {
		return req, nil
	}

	rc, _, _, err := jp.sp.GetObject(ctx, j.InputKey)
	if err != nil {
		return overlay.Request{}, errors.Wrapf(err, "processor.parse", "staged input %s unavailable", j.InputKey)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return overlay.Request{}, errors.Wrap(err, "processor.parse", "reading staged input failed")
	}
	req.VideoBase64 = string(b)
	return req, nil
}
