package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric any
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"OverlayJobsTotal", OverlayJobsTotal},
		{"OverlayStageDuration", OverlayStageDuration},
		{"OverlayInputBytes", OverlayInputBytes},
		{"OverlayCleanupWarnings", OverlayCleanupWarnings},
		{"FontResolutions", FontResolutions},
		{"WorkerJobsInFlight", WorkerJobsInFlight},
		{"QueueOperations", QueueOperations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestRecordJob(t *testing.T) {
	before := testutil.ToFloat64(OverlayJobsTotal.WithLabelValues("failed", "VALIDATION_ERROR"))
	RecordJob("failed", "VALIDATION_ERROR")
	after := testutil.ToFloat64(OverlayJobsTotal.WithLabelValues("failed", "VALIDATION_ERROR"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestObserveStage(t *testing.T) {
	ObserveStage("encoding", time.Now().Add(-time.Second))

	if n := testutil.CollectAndCount(OverlayStageDuration); n == 0 {
		t.Error("expected at least one stage series after observing")
	}
}
