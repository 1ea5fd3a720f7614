package overlay

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"adstudio/internal/pkg/logger"
)

// OutputArtifact is the encoded MP4, owned by the job's Workspace.
type OutputArtifact struct {
	Path string
	Size int64
}

// Encoder writes a composition to a new workspace file.
type Encoder interface {
	Encode(ctx context.Context, ws *Workspace, comp *Composition) (*OutputArtifact, error)
}

// FFmpegEncoder runs ffmpeg with libx264 video and AAC audio.
type FFmpegEncoder struct {
	Binary string
	Preset string
	CRF    int
	Log    *logger.Logger
}

// stderrTail is how much ffmpeg diagnostic output is kept for errors.
const stderrTail = 2048

// Encode renders into a private scratch directory and moves the finished
// file into the workspace, so a partial output never becomes the artifact.
// The scratch directory is removed before returning.
func (e FFmpegEncoder) Encode(ctx context.Context, ws *Workspace, comp *Composition) (*OutputArtifact, error) {
	out, err := ws.CreateTemp("output-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	outPath := out.Name()
	out.Close()

	scratch, err := os.MkdirTemp(ws.Dir(), "encode-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			e.Log.Warn("cleanup warning", "path", scratch, "error", err.Error())
		}
	}()

	partial := filepath.Join(scratch, "encode.mp4")
	args := e.Args(comp, partial)

	var stderr tailBuffer
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	cmd.Dir = scratch
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	e.Log.Debug("running ffmpeg", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, EncodeError(stderr.String(), err)
	}

	if err := os.Rename(partial, outPath); err != nil {
		return nil, EncodeError("", fmt.Errorf("move output: %w", err))
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return nil, EncodeError("", err)
	}
	if st.Size() == 0 {
		return nil, EncodeError(stderr.String(), fmt.Errorf("ffmpeg produced an empty file"))
	}
	return &OutputArtifact{Path: outPath, Size: st.Size()}, nil
}

// Args is the ffmpeg command line for comp written to path.
func (e FFmpegEncoder) Args(comp *Composition, path string) []string {
	kw := ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   e.Preset,
		"crf":      strconv.Itoa(e.CRF),
		"pix_fmt":  "yuv420p",
		"movflags": "+faststart",
	}
	if comp.Staged.HasAudio {
		// AAC sources are carried through untouched; anything else becomes AAC.
		if comp.Staged.AudioCodec == "aac" {
			kw["c:a"] = "copy"
		} else {
			kw["c:a"] = "aac"
		}
	}
	return ffmpeg.Output(comp.Streams(), path, kw).OverWriteOutput().GetArgs()
}

// tailBuffer keeps the last stderrTail bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf.Write(p)
	if over := t.buf.Len() - stderrTail; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(t.buf.String())
}
