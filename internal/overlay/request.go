package overlay

import (
	"regexp"
	"strings"
)

// Alignment is the horizontal justification of the text inside its layer.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Request defaults.
const (
	DefaultFontSize    = 50.0
	DefaultFontColor   = "white"
	DefaultStrokeColor = "black"
	DefaultStrokeWidth = 2.0
)

// Request is a single overlay job as received from a caller. Optional
// numbers are pointers so an explicit zero can be told apart from "unset".
type Request struct {
	Text        string    `json:"text"`
	VideoBase64 string    `json:"video_base64,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	PositionX   *float64  `json:"position_x"`
	PositionY   *float64  `json:"position_y"`
	FontSize    *float64  `json:"font_size,omitempty"`
	FontColor   string    `json:"font_color,omitempty"`
	FontFamily  string    `json:"font_family,omitempty"`
	StrokeColor string    `json:"stroke_color,omitempty"`
	StrokeWidth *float64  `json:"stroke_width,omitempty"`
	StartTime   float64   `json:"start_time,omitempty"`
	Duration    *float64  `json:"duration,omitempty"`
	Alignment   Alignment `json:"alignment,omitempty"`
}

// Position is the top-left anchor of the text layer in output pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// colorPattern accepts ffmpeg color names, #RRGGBB[AA] / 0xRRGGBB[AA] and an
// optional @alpha suffix.
var colorPattern = regexp.MustCompile(`^(#|0x)?[A-Za-z0-9]{1,32}(@[0-9]*\.?[0-9]+)?$`)

// Normalized returns a copy with defaults filled in. It never fails;
// Validate reports what is wrong with the result.
func (r Request) Normalized() Request {
	n := r
	n.Text = strings.TrimSpace(r.Text)
	n.VideoURL = strings.TrimSpace(r.VideoURL)
	n.VideoBase64 = strings.TrimSpace(r.VideoBase64)
	n.FontFamily = strings.TrimSpace(r.FontFamily)
	if n.FontSize == nil {
		n.FontSize = ptr(DefaultFontSize)
	}
	if n.StrokeWidth == nil {
		n.StrokeWidth = ptr(DefaultStrokeWidth)
	}
	if n.FontColor == "" {
		n.FontColor = DefaultFontColor
	}
	if n.StrokeColor == "" {
		n.StrokeColor = DefaultStrokeColor
	}
	if n.Alignment == "" {
		n.Alignment = AlignCenter
	}
	n.Alignment = Alignment(strings.ToLower(string(n.Alignment)))
	return n
}

// Validate checks a normalized request. It performs no I/O.
func (r Request) Validate() error {
	switch {
	case r.Text == "":
		return ValidationError("text", "text is required")
	case r.VideoBase64 == "" && r.VideoURL == "":
		return ValidationError("video", "one of video_base64 or video_url is required")
	case r.VideoBase64 != "" && r.VideoURL != "":
		return ValidationError("video", "video_base64 and video_url are mutually exclusive")
	case r.PositionX == nil || r.PositionY == nil:
		return ValidationError("position", "position_x and position_y are required")
	case r.FontSize == nil || *r.FontSize <= 0:
		return ValidationError("font_size", "font_size must be positive")
	case r.StrokeWidth == nil || *r.StrokeWidth < 0:
		return ValidationError("stroke_width", "stroke_width must be non-negative")
	case r.StartTime < 0:
		return ValidationError("start_time", "start_time must be non-negative")
	case r.Duration != nil && *r.Duration <= 0:
		return ValidationError("duration", "duration must be positive when set")
	case !colorPattern.MatchString(r.FontColor):
		return ValidationError("font_color", "font_color is not a valid color")
	case !colorPattern.MatchString(r.StrokeColor):
		return ValidationError("stroke_color", "stroke_color is not a valid color")
	}

	switch r.Alignment {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		return ValidationError("alignment", "alignment must be one of left, center, right")
	}
	return nil
}

// Position returns the anchor. Only valid after Validate succeeded.
func (r Request) Position() Position {
	return Position{X: *r.PositionX, Y: *r.PositionY}
}

func ptr[T any](v T) *T { return &v }
