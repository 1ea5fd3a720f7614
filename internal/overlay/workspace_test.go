package overlay

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adstudio/internal/pkg/logger"
)

func TestWorkspaceFinalizeRemovesEverything(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"input-*.mp4", "output-*.mp4"} {
		f, err := ws.CreateTemp(p)
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	if n := len(ws.Files()); n != 2 {
		t.Fatalf("expected 2 tracked files, got %d", n)
	}

	if errs := ws.Finalize(); len(errs) != 0 {
		t.Fatalf("unexpected cleanup errors: %v", errs)
	}
	if left := listTree(t, root); len(left) != 0 {
		t.Errorf("expected empty root, found %v", left)
	}
}

func TestWorkspaceFinalizeOnce(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	ws.Finalize()

	if errs := ws.Finalize(); errs != nil {
		t.Errorf("second Finalize should do nothing, got %v", errs)
	}
	if _, err := ws.CreateTemp("late-*"); err == nil {
		t.Error("expected CreateTemp to fail after Finalize")
	}
}

func TestWorkspaceToleratesAlreadyRemovedFiles(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	f, _ := ws.CreateTemp("input-*.mp4")
	f.Close()
	os.Remove(f.Name())

	if errs := ws.Finalize(); len(errs) != 0 {
		t.Errorf("missing files are not cleanup failures, got %v", errs)
	}
}

func TestWorkspaceLeavesForeignFiles(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "warn", Output: &buf})

	ws, err := NewWorkspace(t.TempDir(), log)
	if err != nil {
		t.Fatal(err)
	}
	foreign := filepath.Join(ws.Dir(), "not-ours.txt")
	if err := os.WriteFile(foreign, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	errs := ws.Finalize()

	if len(errs) != 1 {
		t.Fatalf("expected one cleanup error for the non-empty dir, got %v", errs)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("file not created through the workspace must survive: %v", err)
	}
	if !strings.Contains(buf.String(), "cleanup warning") {
		t.Errorf("expected cleanup warning log, got: %s", buf.String())
	}
}
