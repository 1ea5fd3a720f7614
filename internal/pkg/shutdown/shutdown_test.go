package shutdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"adstudio/internal/pkg/logger"
)

func newTestLogger() (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf}), &buf
}

func TestNewManagerDefaultTimeout(t *testing.T) {
	log, _ := newTestLogger()
	if m := NewManager(log, 0); m.timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", m.timeout)
	}
}

func TestShutdownRunsInReverseOrder(t *testing.T) {
	log, _ := newTestLogger()
	m := NewManager(log, time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	m.RegisterSimple("database", record("database"))
	m.RegisterSimple("redis", record("redis"))
	m.RegisterSimple("http", record("http"))

	m.Shutdown()

	if got := strings.Join(order, ","); got != "http,redis,database" {
		t.Errorf("expected LIFO order, got %s", got)
	}
}

func TestShutdownContinuesAfterFailure(t *testing.T) {
	log, buf := newTestLogger()
	m := NewManager(log, time.Second)

	var ran bool
	m.RegisterSimple("first", func() { ran = true })
	m.Register("failing", func(context.Context) error { return fmt.Errorf("close failed") })

	m.Shutdown()

	if !ran {
		t.Error("expected remaining handlers to run after a failure")
	}
	if !strings.Contains(buf.String(), "close failed") {
		t.Errorf("expected failure to be logged, got: %s", buf.String())
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	log, _ := newTestLogger()
	m := NewManager(log, time.Second)

	calls := 0
	m.RegisterSimple("counter", func() { calls++ })

	m.Shutdown()
	m.Shutdown()

	if calls != 1 {
		t.Errorf("expected one call, got %d", calls)
	}
	select {
	case <-m.Done():
	default:
		t.Error("expected Done to be closed")
	}
}

func TestShutdownTimeoutSkipsRemaining(t *testing.T) {
	log, buf := newTestLogger()
	m := NewManager(log, 20*time.Millisecond)

	var skippedRan bool
	m.RegisterSimple("skipped", func() { skippedRan = true })
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	m.Shutdown()

	if skippedRan {
		t.Error("expected handler after the deadline to be skipped")
	}
	if !strings.Contains(buf.String(), "shutdown timeout exceeded") {
		t.Errorf("expected timeout warning, got: %s", buf.String())
	}
}

func TestWaitReturnsOnContextCancel(t *testing.T) {
	log, _ := newTestLogger()
	m := NewManager(log, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		m.Wait(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after context cancel")
	}
}

func TestContextCanceledAfterShutdown(t *testing.T) {
	log, _ := newTestLogger()
	m := NewManager(log, time.Second)
	ctx := m.Context()

	m.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected context to be canceled")
	}
}
