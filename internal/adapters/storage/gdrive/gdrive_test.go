package gdrive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"adstudio/internal/ports"
)

var _ ports.StorageProvider = (*Client)(nil)
var _ ports.HealthChecker = (*Client)(nil)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	srv, err := drive.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/drive/v3/"),
		option.WithHTTPClient(ts.Client()),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("drive.NewService: %v", err)
	}
	return NewClient(srv, "")
}

func TestGetObjectDownloads(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/files/file123") || r.URL.Query().Get("alt") != "media" {
			http.Error(w, "unexpected "+r.URL.String(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = io.WriteString(w, "video")
	})

	rc, ct, _, err := c.GetObject(context.Background(), "file123")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	defer rc.Close()

	body, _ := io.ReadAll(rc)
	if string(body) != "video" || ct != "video/mp4" {
		t.Errorf("unexpected body %q content type %q", body, ct)
	}
}

func TestGetObjectNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"File not found"}}`)
	})

	if _, _, _, err := c.GetObject(context.Background(), "missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteObject(t *testing.T) {
	var method string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteObject(context.Background(), "file123"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("expected DELETE, got %s", method)
	}
}

func TestPutObjectRequiresKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := c.PutObject(context.Background(), ports.PutObjectInput{Reader: strings.NewReader("x")}); err == nil {
		t.Fatal("expected error for empty key")
	}
}
