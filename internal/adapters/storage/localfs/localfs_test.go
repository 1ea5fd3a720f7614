package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adstudio/internal/ports"
)

var _ ports.StorageProvider = (*LocalFS)(nil)
var _ ports.HealthChecker = (*LocalFS)(nil)

func TestPutGetDelete(t *testing.T) {
	root := t.TempDir()
	fs := New(root)
	ctx := context.Background()

	out, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   "overlays/job_1/meta.json",
		ContentType: "application/json",
		Reader:      strings.NewReader(`{"a":1234}`),
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if out.ObjectKey != "overlays/job_1/meta.json" || out.Size != 10 {
		t.Errorf("unexpected output %+v", out)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "overlays", "job_1"))
	if len(entries) != 1 {
		t.Errorf("expected only the final object, found %d entries", len(entries))
	}

	rc, ct, size, err := fs.GetObject(ctx, out.ObjectKey)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()

	if string(body) != `{"a":1234}` || size != 10 {
		t.Errorf("unexpected body %q size %d", body, size)
	}
	if ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	if err := fs.DeleteObject(ctx, out.ObjectKey); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if _, _, _, err := fs.GetObject(ctx, out.ObjectKey); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist after delete, got %v", err)
	}
}

func TestGetObjectSniffsContentType(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "blob"), []byte("plain text here"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, ct, _, err := New(root).GetObject(context.Background(), "blob")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	defer rc.Close()

	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected sniffed text/plain, got %s", ct)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "plain text here" {
		t.Errorf("sniffing must not consume the body, got %q", body)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	fs := New(t.TempDir())
	for _, key := range []string{"", "../outside", "a/../../outside"} {
		_, err := fs.PutObject(context.Background(), ports.PutObjectInput{ObjectKey: key, Reader: strings.NewReader("x")})
		if err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestCheck(t *testing.T) {
	if err := New(t.TempDir()).Check(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := New(filepath.Join(t.TempDir(), "missing")).Check(context.Background()); err == nil {
		t.Error("expected error for missing root")
	}
}
