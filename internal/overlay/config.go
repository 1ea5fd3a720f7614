package overlay

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config carries every tunable of the pipeline. Nothing in this package reads
// the environment; callers build a Config and pass it in.
type Config struct {
	// TempDir is the root under which each job gets its own workspace.
	// Empty means os.TempDir().
	TempDir string
	// FetchTimeout bounds a single video_url download.
	FetchTimeout time.Duration
	// ProbeTimeout bounds ffprobe on the staged file.
	ProbeTimeout time.Duration
	// MaxInputBytes caps the decoded or downloaded input size.
	MaxInputBytes int64
	// FontDirs is searched in order by the font resolver.
	FontDirs []string
	// VerifyFonts rejects candidate files that do not parse as fonts.
	VerifyFonts bool
	// FFmpegPath is the ffmpeg binary used for encoding.
	FFmpegPath string
	// X264Preset and CRF are passed to libx264.
	X264Preset string
	CRF        int
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		TempDir:       os.TempDir(),
		FetchTimeout:  60 * time.Second,
		ProbeTimeout:  30 * time.Second,
		MaxInputBytes: 200 << 20,
		FontDirs:      DefaultFontDirs(),
		VerifyFonts:   true,
		FFmpegPath:    "ffmpeg",
		X264Preset:    "medium",
		CRF:           23,
	}
}

// DefaultFontDirs lists the platform font directories in search order.
func DefaultFontDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		dirs := []string{"/System/Library/Fonts", "/System/Library/Fonts/Supplemental", "/Library/Fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
		return dirs
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Fonts")}
	default:
		dirs := []string{
			"/usr/share/fonts/truetype",
			"/usr/share/fonts/truetype/dejavu",
			"/usr/share/fonts/truetype/liberation",
			"/usr/share/fonts/opentype",
			"/usr/share/fonts",
			"/usr/local/share/fonts",
		}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".fonts"), filepath.Join(home, ".local", "share", "fonts"))
		}
		return dirs
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TempDir == "" {
		c.TempDir = d.TempDir
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.MaxInputBytes <= 0 {
		c.MaxInputBytes = d.MaxInputBytes
	}
	if c.FontDirs == nil {
		c.FontDirs = d.FontDirs
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = d.FFmpegPath
	}
	if c.X264Preset == "" {
		c.X264Preset = d.X264Preset
	}
	if c.CRF <= 0 {
		c.CRF = d.CRF
	}
	return c
}
