package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"adstudio/internal/config"
	"adstudio/internal/overlay"
	"adstudio/internal/pkg/errors"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Overlay text on a video file or URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.EnsureTempDir(); err != nil {
			return err
		}

		res, err := overlay.New(cfg.Overlay, newLogger(cmd)).Run(cmd.Context(), req)
		if err != nil {
			return describe(err)
		}

		if err := os.WriteFile(output, res.Video, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"output":    output,
			"bytes":     len(res.Video),
			"mime_type": res.MimeType,
			"text":      res.Text,
			"position":  res.Position,
			"start":     res.Layer.Start,
			"end":       res.Layer.End,
			"font":      res.Layer.Font.Path,
		})
	},
}

// requestFromFlags maps flags onto an overlay request. A local input file is
// sent inline; http(s) inputs are fetched by the pipeline.
func requestFromFlags(cmd *cobra.Command) (overlay.Request, error) {
	f := cmd.Flags()
	input, _ := f.GetString("input")
	text, _ := f.GetString("text")

	req := overlay.Request{Text: text}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		req.VideoURL = input
	} else {
		b, err := os.ReadFile(input)
		if err != nil {
			return overlay.Request{}, fmt.Errorf("reading input: %w", err)
		}
		req.VideoBase64 = base64.StdEncoding.EncodeToString(b)
	}

	x, _ := f.GetFloat64("x")
	y, _ := f.GetFloat64("y")
	req.PositionX, req.PositionY = &x, &y

	if f.Changed("font-size") {
		v, _ := f.GetFloat64("font-size")
		req.FontSize = &v
	}
	if f.Changed("stroke-width") {
		v, _ := f.GetFloat64("stroke-width")
		req.StrokeWidth = &v
	}
	if f.Changed("duration") {
		v, _ := f.GetFloat64("duration")
		req.Duration = &v
	}
	req.StartTime, _ = f.GetFloat64("start")
	req.FontColor, _ = f.GetString("font-color")
	req.FontFamily, _ = f.GetString("font-family")
	req.StrokeColor, _ = f.GetString("stroke-color")
	align, _ := f.GetString("alignment")
	req.Alignment = overlay.Alignment(align)

	return req, nil
}

// describe turns a pipeline error into a one-line CLI message.
func describe(err error) error {
	msg := fmt.Sprintf("%s: %s", errors.GetCode(err), errors.GetMessage(err))
	if fields := errors.GetFields(err); len(fields) > 0 {
		if d, ok := fields["diagnostic"].(string); ok && d != "" {
			msg += "\n" + d
		} else if field, ok := fields["field"].(string); ok {
			msg += " (" + field + ")"
		}
	}
	return fmt.Errorf("%s", msg)
}

func registerRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("input", "i", "", "Input video file or http(s) URL")
	f.StringP("text", "t", "", "Text to overlay")
	f.StringP("output", "o", "", "Output MP4 path")
	f.Float64("x", 0, "Left edge of the text in pixels")
	f.Float64("y", 0, "Top edge of the text in pixels")
	f.Float64("font-size", overlay.DefaultFontSize, "Font size in pixels")
	f.String("font-color", "", "Font color (name, #RRGGBB or 0xRRGGBB, optional @alpha)")
	f.String("font-family", "", "Font family to look up in the font directories")
	f.String("stroke-color", "", "Outline color")
	f.Float64("stroke-width", overlay.DefaultStrokeWidth, "Outline width in pixels")
	f.Float64("start", 0, "Second at which the text appears")
	f.Float64("duration", 0, "How long the text stays visible (default: until the end)")
	f.String("alignment", "", "Text alignment (left, center, right)")

	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("text")
	cmd.MarkFlagRequired("output")
}

func init() {
	registerRenderFlags(renderCmd)
}
