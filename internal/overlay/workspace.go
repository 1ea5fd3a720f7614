package overlay

import (
	"fmt"
	"os"
	"sync"

	"adstudio/internal/metrics"
	"adstudio/internal/pkg/logger"
)

// Workspace owns every temporary file a single job creates. Components create
// files through it; only Finalize deletes them, and each exactly once.
type Workspace struct {
	dir string
	log *logger.Logger

	mu        sync.Mutex
	files     []string
	finalized bool
}

// NewWorkspace creates a private directory under root for one job.
func NewWorkspace(root string, log *logger.Logger) (*Workspace, error) {
	dir, err := os.MkdirTemp(root, "overlay-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir, log: log}, nil
}

// Dir is the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// CreateTemp creates and registers a new file in the workspace. pattern
// follows os.CreateTemp, e.g. "input-*.mp4".
func (w *Workspace) CreateTemp(pattern string) (*os.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return nil, fmt.Errorf("workspace %s already finalized", w.dir)
	}
	f, err := os.CreateTemp(w.dir, pattern)
	if err != nil {
		return nil, err
	}
	w.files = append(w.files, f.Name())
	return f, nil
}

// Files returns the registered paths in creation order.
func (w *Workspace) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.files...)
}

// Finalize deletes every registered file and then the directory. Failures are
// logged as cleanup warnings and returned for inspection but must never
// replace the job's own result. Subsequent calls do nothing.
func (w *Workspace) Finalize() []error {
	w.mu.Lock()
	if w.finalized {
		w.mu.Unlock()
		return nil
	}
	w.finalized = true
	files := w.files
	w.files = nil
	w.mu.Unlock()

	var errs []error
	for _, p := range files {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			w.warn(p, err)
		}
	}
	// Remove, not RemoveAll: anything left here was not created through us.
	if err := os.Remove(w.dir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
		w.warn(w.dir, err)
	}
	return errs
}

func (w *Workspace) warn(path string, err error) {
	metrics.OverlayCleanupWarnings.Inc()
	w.log.Warn("cleanup warning", "path", path, "error", err.Error())
}
