package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"adstudio/internal/httpkit"
	"adstudio/internal/models"
	"adstudio/internal/overlay"
	"adstudio/internal/pkg/errors"
	"adstudio/internal/ports"
	"adstudio/internal/repositories"
	"adstudio/internal/worker/util"
)

func (h *Handler) requireAsync() error {
	if !h.asyncEnabled() {
		return errors.New(errors.CodeUnavailable, "async jobs are not configured")
	}
	return nil
}

// PostJob validates the request, stages any inline video in storage,
// persists a QUEUED job and pushes its id to the worker queue.
func (h *Handler) PostJob(w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAsync(); err != nil {
		return err
	}
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	req, err := h.decodeRequest(w, r)
	if err != nil {
		return err
	}
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return err
	}

	job := &models.OverlayJob{ID: util.NewID("job"), Status: models.JobQueued}

	if req.VideoBase64 != "" {
		out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
			ObjectKey:   models.InputObjectKey(job.ID),
			ContentType: "text/plain",
			Reader:      strings.NewReader(req.VideoBase64),
			Size:        int64(len(req.VideoBase64)),
		})
		if err != nil {
			return errors.Wrap(err, "jobs.stage", "failed to stage inline video")
		}
		job.InputKey = out.ObjectKey
		req.VideoBase64 = ""
	}

	job.Params, err = json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "jobs.create", "failed to encode job params")
	}

	if err := h.jobs.Create(ctx, job); err != nil {
		h.discardInput(r, job)
		return errors.Wrap(err, "jobs.create", "db insert failed")
	}

	if err := h.queue.Push(ctx, job.ID); err != nil {
		// Never leave a QUEUED row that no worker will see.
		if merr := h.jobs.MarkFailed(ctx, job.ID, string(errors.CodeUnavailable), "queue push failed"); merr != nil {
			log.Error("failed to mark unqueued job as failed", "job_id", job.ID, "error", merr.Error())
		}
		h.discardInput(r, job)
		return errors.WrapWithCode(err, errors.CodeUnavailable, "jobs.enqueue", "queue push failed")
	}

	log.Info("job queued", "job_id", job.ID, "staged_input", job.InputKey != "")
	w.Header().Set("Location", "/jobs/"+job.ID)
	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{"job": jobView(job)})
	return nil
}

func (h *Handler) discardInput(r *http.Request, job *models.OverlayJob) {
	if job.InputKey == "" {
		return
	}
	if err := h.sp.DeleteObject(r.Context(), job.InputKey); err != nil {
		h.log.FromContext(r.Context()).Warn("cleanup warning", "object_key", job.InputKey, "error", err.Error())
	}
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAsync(); err != nil {
		return err
	}

	status := models.JobStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	if status != "" && !status.Valid() {
		return errors.ValidationField("status", "unknown job status: "+string(status))
	}

	limit := 50
	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	jobs, err := h.jobs.List(r.Context(), status, limit)
	if err != nil {
		return errors.Wrap(err, "jobs.list", "db query failed")
	}

	out := make([]map[string]any, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobView(&jobs[i]))
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"jobs": out})
	return nil
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) error {
	job, err := h.loadJob(r)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"job": jobView(job)})
	return nil
}

// GetJobVideo streams the rendered MP4 of a DONE job, or redirects when the
// provider can sign a direct URL.
func (h *Handler) GetJobVideo(w http.ResponseWriter, r *http.Request) error {
	job, err := h.loadJob(r)
	if err != nil {
		return err
	}
	if job.Status != models.JobDone || job.OutputKey == "" {
		return errors.New(errors.CodeConflict, "job has no video yet").
			WithField("job_id", job.ID).
			WithField("status", string(job.Status))
	}

	ctx := r.Context()
	if signed, err := h.sp.GetSignedURL(ctx, job.OutputKey, 15*time.Minute); err == nil && signed.URL != "" {
		http.Redirect(w, r, signed.URL, http.StatusFound)
		return nil
	}

	rc, _, size, err := h.sp.GetObject(ctx, job.OutputKey)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeNotFound, "jobs.video", "job video missing").
			WithField("object_key", job.OutputKey)
	}
	defer rc.Close()

	w.Header().Set("Content-Type", overlay.MimeType)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+job.ID+`.mp4"`)
	_, _ = io.Copy(w, rc)
	return nil
}

func (h *Handler) loadJob(r *http.Request) (*models.OverlayJob, error) {
	if err := h.requireAsync(); err != nil {
		return nil, err
	}
	jobID := chi.URLParam(r, "jobId")
	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, errors.NotFound("job", jobID)
		}
		return nil, errors.Wrap(err, "jobs.get", "db query failed")
	}
	return job, nil
}

func jobView(j *models.OverlayJob) map[string]any {
	v := map[string]any{
		"id":         j.ID,
		"status":     j.Status,
		"params":     j.Params,
		"created_at": j.CreatedAt,
	}
	if j.StartedAt != nil {
		v["started_at"] = j.StartedAt
	}
	if j.FinishedAt != nil {
		v["finished_at"] = j.FinishedAt
	}
	if j.Status == models.JobDone {
		v["video_url"] = "/jobs/" + j.ID + "/video"
		v["output_size"] = j.OutputSize
	}
	if j.Status == models.JobFailed {
		v["error"] = map[string]any{"code": j.ErrorCode, "message": j.ErrorText}
	}
	return v
}
