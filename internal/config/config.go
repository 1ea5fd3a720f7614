// Package config loads adstudio settings from the environment.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"adstudio/internal/overlay"
)

// DefaultAllowedOrigins are the browser origins allowed when
// CORS_ALLOWED_ORIGINS is unset.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"https://*.web.app",
	"https://*.firebaseapp.com",
}

type HTTP struct {
	Port           string
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

type Queue struct {
	DatabaseURL string
	RedisAddr   string
	Name        string
	Concurrency int
}

type Storage struct {
	Provider  string
	LocalRoot string

	GDriveClientID     string
	GDriveClientSecret string
	GDriveRefreshToken string
	GDriveFolderID     string
}

// Config is everything the binaries need.
type Config struct {
	HTTP    HTTP
	Overlay overlay.Config
	Queue   Queue
	Storage Storage
}

// Load reads the environment. Missing optional values fall back to
// defaults; malformed numbers and durations are errors.
func Load() (Config, error) {
	var p parser
	def := overlay.DefaultConfig()
	maxInput := p.int64("OVERLAY_MAX_INPUT_BYTES", def.MaxInputBytes)

	cfg := Config{
		HTTP: HTTP{
			Port:           Env("HTTP_PORT", "8080"),
			AllowedOrigins: CSVEnv("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins),
			RequestTimeout: p.duration("REQUEST_TIMEOUT", 300*time.Second),
			MaxBodyBytes:   p.int64("MAX_BODY_BYTES", BodyLimitFor(maxInput)),
		},
		Overlay: overlay.Config{
			TempDir:       Env("OVERLAY_TEMP_DIR", def.TempDir),
			FetchTimeout:  p.duration("OVERLAY_FETCH_TIMEOUT", def.FetchTimeout),
			ProbeTimeout:  p.duration("OVERLAY_PROBE_TIMEOUT", def.ProbeTimeout),
			MaxInputBytes: maxInput,
			FontDirs:      ListEnv("OVERLAY_FONT_DIRS", def.FontDirs),
			VerifyFonts:   BoolEnv("OVERLAY_VERIFY_FONTS", def.VerifyFonts),
			FFmpegPath:    Env("FFMPEG_PATH", def.FFmpegPath),
			X264Preset:    Env("OVERLAY_X264_PRESET", def.X264Preset),
			CRF:           p.int("OVERLAY_CRF", def.CRF),
		},
		Queue: Queue{
			DatabaseURL: Env("DATABASE_URL", ""),
			RedisAddr:   Env("REDIS_ADDR", ""),
			Name:        Env("JOB_QUEUE_NAME", "adstudio:overlay_jobs"),
			Concurrency: p.int("WORKER_CONCURRENCY", 1),
		},
		Storage: Storage{
			Provider:           Env("STORAGE_PROVIDER", "localfs"),
			LocalRoot:          Env("STORAGE_LOCAL_ROOT", "/data"),
			GDriveClientID:     Env("GDRIVE_CLIENT_ID", ""),
			GDriveClientSecret: Env("GDRIVE_CLIENT_SECRET", ""),
			GDriveRefreshToken: Env("GDRIVE_REFRESH_TOKEN", ""),
			GDriveFolderID:     Env("GDRIVE_FOLDER_ID", ""),
		},
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	if cfg.Queue.Concurrency < 1 {
		return Config{}, fmt.Errorf("invalid configuration: WORKER_CONCURRENCY must be at least 1")
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid configuration: REQUEST_TIMEOUT must be positive")
	}
	return cfg, nil
}

// bodyHeadroom covers the JSON envelope around the base64 video.
const bodyHeadroom = 1 << 20

// BodyLimitFor is the smallest request body that still fits an inline video
// of maxInput bytes.
func BodyLimitFor(maxInput int64) int64 {
	return int64(base64.StdEncoding.EncodedLen(int(maxInput))) + bodyHeadroom
}

// AsyncEnabled reports whether both Postgres and Redis are configured.
func (c Config) AsyncEnabled() bool {
	return c.Queue.DatabaseURL != "" && c.Queue.RedisAddr != ""
}

// RequireAsync fails when the job store or queue is not configured.
func (c Config) RequireAsync() error {
	var missing []string
	if c.Queue.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Queue.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env: %v", missing)
	}
	return nil
}

// EnsureTempDir creates the overlay temp root if it does not exist.
func (c Config) EnsureTempDir() error {
	return os.MkdirAll(c.Overlay.TempDir, 0o700)
}
