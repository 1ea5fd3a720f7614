package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaInfo is what the pipeline needs to know about a staged video.
type MediaInfo struct {
	Duration   float64
	Width      int
	Height     int
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Prober opens a media file and reports its properties.
type Prober interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
}

// FFprobe probes with ffprobe found on PATH.
type FFprobe struct {
	Timeout time.Duration
}

func (p FFprobe) Probe(ctx context.Context, path string) (MediaInfo, error) {
	timeout := p.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return MediaInfo{}, err
	}
	out, err := ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe([]byte(out))
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseProbe reads ffprobe's JSON. Video stream duration wins over the
// container duration when both are present.
func parseProbe(data []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var info MediaInfo
	var video *probeStream
	for i := range out.Streams {
		s := &out.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			if !info.HasAudio {
				info.HasAudio = true
				info.AudioCodec = s.CodecName
			}
		}
	}
	if video == nil {
		return MediaInfo{}, fmt.Errorf("no video stream found")
	}

	info.Width, info.Height, info.VideoCodec = video.Width, video.Height, video.CodecName
	info.Duration = parseSeconds(video.Duration)
	if info.Duration <= 0 {
		info.Duration = parseSeconds(out.Format.Duration)
	}
	if info.Duration <= 0 {
		return MediaInfo{}, fmt.Errorf("video duration unknown")
	}
	return info, nil
}

func parseSeconds(s string) float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return d
}
