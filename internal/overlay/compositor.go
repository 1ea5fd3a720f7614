package overlay

import (
	"math"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// minStrokePadding is the smallest margin kept around the glyphs.
const minStrokePadding = 20.0

// TextLayer is the resolved, time-bounded text element.
type TextLayer struct {
	Text        string
	FontSize    float64
	FontColor   string
	StrokeColor string
	StrokeWidth float64
	Margin      float64
	Alignment   Alignment
	Font        ResolvedFont
	// X, Y is the layer's top-left corner in output pixels.
	X, Y float64
	// Start and End bound the half-open visibility window [Start, End).
	Start, End float64
}

// Duration is the visible span in seconds.
func (l TextLayer) Duration() float64 { return l.End - l.Start }

// Visible reports whether the layer paints pixels at time t.
func (l TextLayer) Visible(t float64) bool { return t >= l.Start && t < l.End }

// Composition is a staged video with a text layer on top of its video track,
// ready for encoding.
type Composition struct {
	Staged *StagedVideo
	Layer  TextLayer

	video *ffmpeg.Stream
	audio *ffmpeg.Stream
}

// Streams returns the output streams: the composited video, then the
// original audio when the source has any.
func (c *Composition) Streams() []*ffmpeg.Stream {
	if c.audio == nil {
		return []*ffmpeg.Stream{c.video}
	}
	return []*ffmpeg.Stream{c.video, c.audio}
}

// Compositor builds the filter graph that burns a text layer into a video.
type Compositor struct{}

// Build resolves timing and styling into a TextLayer and stacks it over the
// staged video track.
func (Compositor) Build(staged *StagedVideo, req Request, font ResolvedFont) *Composition {
	layer := NewTextLayer(staged.Duration, req, font)

	in := ffmpeg.Input(staged.Path)
	comp := &Composition{
		Staged: staged,
		Layer:  layer,
		video:  in.Video().Filter("drawtext", ffmpeg.Args{}, drawtextOptions(layer)),
	}
	if staged.HasAudio {
		comp.audio = in.Audio()
	}
	return comp
}

// NewTextLayer derives the layer for a video of the given length.
func NewTextLayer(videoDuration float64, req Request, font ResolvedFont) TextLayer {
	effective := EffectiveDuration(videoDuration, req.StartTime, req.Duration)
	pos := req.Position()
	return TextLayer{
		Text:        singleLine(req.Text),
		FontSize:    *req.FontSize,
		FontColor:   req.FontColor,
		StrokeColor: req.StrokeColor,
		StrokeWidth: *req.StrokeWidth,
		Margin:      StrokePadding(*req.StrokeWidth),
		Alignment:   req.Alignment,
		Font:        font,
		X:           pos.X,
		Y:           pos.Y,
		Start:       req.StartTime,
		End:         req.StartTime + effective,
	}
}

// EffectiveDuration is the requested duration (or the rest of the video)
// clamped to what remains after start. A non-positive result means the
// overlay is never visible; it is returned as 0.
func EffectiveDuration(videoDuration, start float64, duration *float64) float64 {
	remaining := videoDuration - start
	effective := remaining
	if duration != nil {
		effective = math.Min(*duration, remaining)
	}
	if effective <= 0 {
		return 0
	}
	return effective
}

// StrokePadding is the margin that keeps the stroke inside the layer box.
func StrokePadding(strokeWidth float64) float64 {
	return math.Max(strokeWidth*3, minStrokePadding)
}

// drawtextOptions maps a layer onto drawtext. Glyphs start one margin inside
// the layer's top-left corner and only glyph and stroke pixels are painted.
// Alignment is not passed: the box is exactly one line wide, so justifying
// inside it changes nothing.
func drawtextOptions(l TextLayer) ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{
		"text":        escapeOptionValue(l.Text),
		"expansion":   "none",
		"fontsize":    num(l.FontSize),
		"fontcolor":   l.FontColor,
		"bordercolor": l.StrokeColor,
		"borderw":     num(l.StrokeWidth),
		"x":           num(l.X + l.Margin),
		"y":           num(l.Y + l.Margin),
		"enable":      enableExpr(l),
	}
	if !l.Font.IsDefault() {
		kw["fontfile"] = escapeOptionValue(l.Font.Path)
	}
	return kw
}

// optionEscaper escapes a free-form value for ffmpeg's option parser.
// ffmpeg-go only escapes option keys and applies graph-level escaping to the
// whole filter, so values carrying `:` or `'` would otherwise split options.
var optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `=`, `\=`)

func escapeOptionValue(s string) string {
	return optionEscaper.Replace(s)
}

// enableExpr encodes [Start, End) for drawtext's timeline support.
func enableExpr(l TextLayer) string {
	if l.Duration() <= 0 {
		return "0"
	}
	return "gte(t," + num(l.Start) + ")*lt(t," + num(l.End) + ")"
}

// singleLine collapses line breaks; the layer never wraps.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
