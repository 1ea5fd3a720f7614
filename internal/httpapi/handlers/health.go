package handlers

import (
	"context"
	"net/http"
	"os/exec"
	"time"

	"adstudio/internal/httpkit"
	"adstudio/internal/ports"
)

// Health performs a health check of the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	health := map[string]any{
		"status":  "ok",
		"service": "adstudio-api",
		"version": h.version,
		"async":   h.asyncEnabled(),
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				log.Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := map[string]map[string]any{
		"ffmpeg":  checkBinary(h.ffmpegPath),
		"ffprobe": checkBinary("ffprobe"),
	}
	if h.jobs != nil {
		checks["postgres"] = timed(ctx, h.jobs.Ping)
	}
	if h.queue != nil {
		checks["redis"] = timed(ctx, h.queue.Ping)
	}
	if h.sp != nil {
		checks["storage"] = h.checkStorage(ctx)
	}
	return checks
}

func timed(ctx context.Context, ping func(context.Context) error) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkStorage(ctx context.Context) map[string]any {
	result := map[string]any{"status": "ok"}
	if hc, ok := h.sp.(ports.HealthChecker); ok {
		result = timed(ctx, hc.Check)
	}
	result["provider"] = h.sp.Provider()
	return result
}

func checkBinary(name string) map[string]any {
	path, err := exec.LookPath(name)
	if err != nil {
		return map[string]any{"status": "error", "error": err.Error()}
	}
	return map[string]any{"status": "ok", "path": path}
}
