package overlay

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"adstudio/internal/pkg/logger"
)

// fakeProber returns a fixed MediaInfo, or err.
type fakeProber struct {
	info MediaInfo
	err  error

	mu    sync.Mutex
	paths []string
}

func (p *fakeProber) probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func (p *fakeProber) Probe(_ context.Context, path string) (MediaInfo, error) {
	p.mu.Lock()
	p.paths = append(p.paths, path)
	p.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return MediaInfo{}, err
	}
	return p.info, p.err
}

// fakeEncoder writes a small file the way FFmpegEncoder does, including a
// private intermediate it removes itself.
type fakeEncoder struct {
	mu    sync.Mutex
	err   error
	comps []*Composition
}

func (e *fakeEncoder) Encode(_ context.Context, ws *Workspace, comp *Composition) (*OutputArtifact, error) {
	e.mu.Lock()
	e.comps = append(e.comps, comp)
	e.mu.Unlock()

	out, err := ws.CreateTemp("output-*.mp4")
	if err != nil {
		return nil, err
	}
	defer out.Close()

	scratch, err := os.MkdirTemp(ws.Dir(), "encode-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)
	if err := os.WriteFile(filepath.Join(scratch, "audio.aac"), []byte("aac"), 0o600); err != nil {
		return nil, err
	}

	if e.err != nil {
		return nil, e.err
	}
	if _, err := out.Write([]byte("encoded:" + comp.Layer.Text)); err != nil {
		return nil, err
	}
	return &OutputArtifact{Path: out.Name(), Size: int64(len("encoded:" + comp.Layer.Text))}, nil
}

func (e *fakeEncoder) last() *Composition {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.comps) == 0 {
		return nil
	}
	return e.comps[len(e.comps)-1]
}

// listTree returns every path under root, relative and sorted.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(root, func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p != root {
			rel, _ := filepath.Rel(root, p)
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	sort.Strings(out)
	return out
}

func f64(v float64) *float64 { return &v }

func inlineVideo() string {
	return base64.StdEncoding.EncodeToString([]byte("not really an mp4 but the prober is fake"))
}

func testLogger() *logger.Logger { return logger.NewNop() }
