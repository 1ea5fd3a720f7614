package processor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"adstudio/internal/adapters/storage/localfs"
	"adstudio/internal/models"
	"adstudio/internal/overlay"
	apperrors "adstudio/internal/pkg/errors"
	"adstudio/internal/pkg/logger"
	"adstudio/internal/ports"
	"adstudio/internal/repositories"
)

type fakeJobs struct {
	mu       sync.Mutex
	jobs     map[string]*models.OverlayJob
	claimErr error
	doneErrs int // MarkDone fails this many times
	doneCall int
}

func newFakeJobs(jobs ...*models.OverlayJob) *fakeJobs {
	f := &fakeJobs{jobs: map[string]*models.OverlayJob{}}
	for _, j := range jobs {
		j.Status = models.JobQueued
		f.jobs[j.ID] = j
	}
	return f
}

func (f *fakeJobs) Get(_ context.Context, id string) (*models.OverlayJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobs) MarkRunning(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return f.claimErr
	}
	j, ok := f.jobs[id]
	if !ok || j.Status != models.JobQueued {
		return repositories.ErrJobNotFound
	}
	j.Status = models.JobRunning
	return nil
}

func (f *fakeJobs) MarkDone(_ context.Context, id, key string, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doneCall++
	if f.doneCall <= f.doneErrs {
		return fmt.Errorf("connection reset")
	}
	j := f.jobs[id]
	j.Status, j.OutputKey, j.OutputSize = models.JobDone, key, size
	return nil
}

func (f *fakeJobs) MarkFailed(_ context.Context, id, code, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobs[id]
	j.Status, j.ErrorCode, j.ErrorText = models.JobFailed, code, msg
	return nil
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []overlay.Request
	err   error
}

func (f *fakeRunner) Run(_ context.Context, req overlay.Request) (*overlay.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &overlay.Result{Video: []byte("mp4:" + req.Text), MimeType: overlay.MimeType, Text: req.Text}, nil
}

func newProcessor(t *testing.T, jobs JobStore, runner Runner) (*Processor, ports.StorageProvider) {
	t.Helper()
	sp := localfs.New(t.TempDir())
	return New(Deps{Jobs: jobs, Overlay: runner, SP: sp, Log: logger.NewNop()}), sp
}

func readObject(t *testing.T, sp ports.StorageProvider, key string) string {
	t.Helper()
	rc, _, _, err := sp.GetObject(context.Background(), key)
	if err != nil {
		t.Fatalf("GetObject(%s): %v", key, err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	return string(b)
}

func TestProcessJobSuccess(t *testing.T) {
	jobs := newFakeJobs(&models.OverlayJob{ID: "job_1", Params: []byte(`{"text":"Sale","video_url":"https://cdn.example/v.mp4","position_x":10,"position_y":20}`)})
	runner := &fakeRunner{}
	p, sp := newProcessor(t, jobs, runner)

	if err := p.ProcessJob(context.Background(), "job_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	j, _ := jobs.Get(context.Background(), "job_1")
	if j.Status != models.JobDone {
		t.Fatalf("expected DONE, got %s (%s)", j.Status, j.ErrorText)
	}
	if j.OutputKey != models.OutputObjectKey("job_1") || j.OutputSize != int64(len("mp4:Sale")) {
		t.Errorf("unexpected output %s/%d", j.OutputKey, j.OutputSize)
	}
	if got := readObject(t, sp, j.OutputKey); got != "mp4:Sale" {
		t.Errorf("unexpected stored output %q", got)
	}
	if runner.calls[0].VideoURL != "https://cdn.example/v.mp4" || *runner.calls[0].PositionX != 10 {
		t.Errorf("request not rebuilt from params: %+v", runner.calls[0])
	}
}

func TestProcessJobStagedInput(t *testing.T) {
	job := &models.OverlayJob{ID: "job_2", Params: []byte(`{"text":"Hi","position_x":0,"position_y":0}`), InputKey: models.InputObjectKey("job_2")}
	jobs := newFakeJobs(job)
	runner := &fakeRunner{}
	p, sp := newProcessor(t, jobs, runner)

	if _, err := sp.PutObject(context.Background(), ports.PutObjectInput{ObjectKey: job.InputKey, Reader: strings.NewReader("AAAA")}); err != nil {
		t.Fatal(err)
	}

	if err := p.ProcessJob(context.Background(), "job_2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if runner.calls[0].VideoBase64 != "AAAA" {
		t.Errorf("expected staged base64 in request, got %q", runner.calls[0].VideoBase64)
	}
	if _, _, _, err := sp.GetObject(context.Background(), job.InputKey); err == nil {
		t.Error("expected staged input to be removed after the job")
	}
}

func TestProcessJobFailures(t *testing.T) {
	tests := []struct {
		name      string
		params    string
		inputKey  string
		runErr    error
		wantCode  string
		wantInMsg string
	}{
		{
			name:      "encode failure keeps diagnostic",
			params:    `{"text":"x"}`,
			runErr:    overlay.EncodeError("Unknown encoder 'libx264'", fmt.Errorf("exit status 1")),
			wantCode:  "ENCODE_ERROR",
			wantInMsg: "libx264",
		},
		{
			name:      "validation failure",
			params:    `{"text":""}`,
			runErr:    overlay.ValidationError("text", "text is required"),
			wantCode:  "VALIDATION_ERROR",
			wantInMsg: "text is required",
		},
		{
			name:      "malformed params",
			params:    `{"text":`,
			wantCode:  "VALIDATION_ERROR",
			wantInMsg: "invalid params_json",
		},
		{
			name:      "staged input missing",
			params:    `{"text":"x"}`,
			inputKey:  "overlays/job_f/input.b64",
			wantCode:  "INTERNAL_ERROR",
			wantInMsg: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newFakeJobs(&models.OverlayJob{ID: "job_f", Params: []byte(tt.params), InputKey: tt.inputKey})
			p, _ := newProcessor(t, jobs, &fakeRunner{err: tt.runErr})

			if err := p.ProcessJob(context.Background(), "job_f"); err == nil {
				t.Fatal("expected error")
			}

			j, _ := jobs.Get(context.Background(), "job_f")
			if j.Status != models.JobFailed {
				t.Fatalf("expected FAILED, got %s", j.Status)
			}
			if j.ErrorCode != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, j.ErrorCode)
			}
			if !strings.Contains(j.ErrorText, tt.wantInMsg) {
				t.Errorf("expected %q in error text, got %q", tt.wantInMsg, j.ErrorText)
			}
		})
	}
}

func TestProcessJobMarkDoneFailure(t *testing.T) {
	tests := []struct {
		name       string
		doneErrs   int
		wantStatus models.JobStatus
		wantErr    bool
	}{
		{"transient failure is retried", 1, models.JobDone, false},
		{"persistent failure ends FAILED", 2, models.JobFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newFakeJobs(&models.OverlayJob{ID: "job_d", Params: []byte(`{"text":"Sale","video_url":"https://cdn.example/v.mp4","position_x":1,"position_y":2}`)})
			jobs.doneErrs = tt.doneErrs
			p, _ := newProcessor(t, jobs, &fakeRunner{})

			err := p.ProcessJob(context.Background(), "job_d")
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error result: %v", err)
			}

			j, _ := jobs.Get(context.Background(), "job_d")
			if j.Status != tt.wantStatus {
				t.Fatalf("expected %s, got %s", tt.wantStatus, j.Status)
			}
			if tt.wantStatus == models.JobFailed && j.ErrorCode != string(apperrors.CodeUnavailable) {
				t.Errorf("expected UNAVAILABLE, got %q", j.ErrorCode)
			}
		})
	}
}

func TestProcessJobSkipsUnclaimable(t *testing.T) {
	jobs := newFakeJobs()
	runner := &fakeRunner{}
	p, _ := newProcessor(t, jobs, runner)

	if err := p.ProcessJob(context.Background(), "job_missing"); err != nil {
		t.Errorf("expected nil for unclaimable job, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Error("runner must not be called for unclaimable jobs")
	}
}

func TestProcessJobClaimError(t *testing.T) {
	jobs := newFakeJobs(&models.OverlayJob{ID: "job_1", Params: []byte(`{}`)})
	jobs.claimErr = fmt.Errorf("connection reset")
	p, _ := newProcessor(t, jobs, &fakeRunner{})

	if err := p.ProcessJob(context.Background(), "job_1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFailureDetailsTruncates(t *testing.T) {
	_, msg := failureDetails(fmt.Errorf("%s", strings.Repeat("e", 3000)))
	if len(msg) != maxErrorText {
		t.Errorf("expected %d bytes, got %d", maxErrorText, len(msg))
	}
}
