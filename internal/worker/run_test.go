package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adstudio/internal/pkg/logger"
)

type chanQueue struct {
	ids  chan string
	errs chan error
}

func (q *chanQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-q.errs:
		return "", err
	case id := <-q.ids:
		return id, nil
	case <-time.After(timeout):
		return "", nil
	}
}

type recordingProcessor struct {
	mu   sync.Mutex
	seen []string
	done chan struct{}
	want int
}

func (p *recordingProcessor) ProcessJob(ctx context.Context, jobID string) error {
	if logger.JobIDFromContext(ctx) != jobID {
		return errors.New("job id missing from context")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, jobID)
	if len(p.seen) == p.want {
		close(p.done)
	}
	if jobID == "job_bad" {
		return errors.New("boom")
	}
	return nil
}

func TestConsumeProcessesAllJobs(t *testing.T) {
	q := &chanQueue{ids: make(chan string, 4), errs: make(chan error, 1)}
	for _, id := range []string{"job_1", "job_bad", "job_2", "job_3"} {
		q.ids <- id
	}
	q.errs <- errors.New("redis: connection refused")

	p := &recordingProcessor{done: make(chan struct{}), want: 4}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- consume(ctx, q, p, 2, logger.NewNop()) }()

	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs were not processed")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consume did not stop after cancel")
	}

	if len(p.seen) != 4 {
		t.Errorf("expected 4 jobs processed, got %v", p.seen)
	}
}
