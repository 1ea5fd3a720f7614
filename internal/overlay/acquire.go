package overlay

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adstudio/internal/metrics"
)

// StagedVideo is the job's local copy of the input, owned by its Workspace.
type StagedVideo struct {
	Path string
	MediaInfo
}

// Acquirer stages the request's video source as a workspace file.
type Acquirer struct {
	client       *http.Client
	prober       Prober
	fetchTimeout time.Duration
	maxBytes     int64
}

// NewAcquirer builds an Acquirer. A nil client means http.DefaultClient.
func NewAcquirer(client *http.Client, prober Prober, fetchTimeout time.Duration, maxBytes int64) *Acquirer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Acquirer{client: client, prober: prober, fetchTimeout: fetchTimeout, maxBytes: maxBytes}
}

// Acquire writes the source bytes to a new workspace file and probes it.
func (a *Acquirer) Acquire(ctx context.Context, ws *Workspace, req Request) (*StagedVideo, error) {
	var src io.ReadCloser
	var err error
	if req.VideoURL != "" {
		src, err = a.fetch(ctx, req.VideoURL)
	} else {
		src, err = a.decodeInline(req.VideoBase64)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()

	f, err := ws.CreateTemp("input-*.mp4")
	if err != nil {
		return nil, StagingError(err)
	}
	dst := &errWriter{w: f}
	n, copyErr := io.Copy(dst, io.LimitReader(src, a.maxBytes+1))
	closeErr := f.Close()

	switch {
	case dst.err != nil:
		return nil, StagingError(dst.err)
	case copyErr != nil:
		return nil, a.readError(req, copyErr)
	case n > a.maxBytes:
		return nil, a.tooLarge(req.VideoURL != "")
	case closeErr != nil:
		return nil, StagingError(closeErr)
	case n == 0:
		return nil, MediaDecodeError("video payload is empty", nil)
	}
	metrics.OverlayInputBytes.Observe(float64(n))

	info, err := a.prober.Probe(ctx, f.Name())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, MediaDecodeError("input is not a readable video", err)
	}
	return &StagedVideo{Path: f.Name(), MediaInfo: info}, nil
}

func (a *Acquirer) fetch(ctx context.Context, raw string) (io.ReadCloser, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, MediaFetchError(0, "video_url must be an absolute http or https URL", nil).
			WithField("field", "video_url")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, MediaFetchError(0, "video_url is not a valid request target", nil)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, MediaFetchError(0, fmt.Sprintf("fetching video timed out after %s", a.fetchTimeout), err)
		}
		return nil, MediaFetchError(0, "fetching video failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		msg := fmt.Sprintf("fetching video returned %d", resp.StatusCode)
		if s := strings.TrimSpace(string(snippet)); s != "" {
			msg += ": " + s
		}
		return nil, MediaFetchError(resp.StatusCode, msg, nil)
	}
	if resp.ContentLength > a.maxBytes {
		resp.Body.Close()
		cancel()
		return nil, a.tooLarge(true)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (a *Acquirer) decodeInline(payload string) (io.ReadCloser, error) {
	payload = stripDataURI(strings.TrimSpace(payload))
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, payload)

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > a.maxBytes+2 {
		return nil, a.tooLarge(false)
	}

	enc := base64.StdEncoding
	if !strings.HasSuffix(payload, "=") && len(payload)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(payload)
	if err != nil {
		return nil, MediaDecodeError("video_base64 is not valid base64", err).WithField("field", "video_base64")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// stripDataURI drops a "data:<mime>;base64," prefix.
func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ";base64,"); i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}

func (a *Acquirer) readError(req Request, err error) error {
	if req.VideoURL != "" {
		return MediaFetchError(0, "reading video response failed", err)
	}
	return MediaDecodeError("reading video payload failed", err)
}

func (a *Acquirer) tooLarge(fromURL bool) error {
	msg := fmt.Sprintf("video exceeds the %d byte limit", a.maxBytes)
	if fromURL {
		return MediaFetchError(0, msg, nil)
	}
	return MediaDecodeError(msg, nil)
}

// errWriter remembers the first write error so local disk failures can be
// told apart from source read failures.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n, err
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
