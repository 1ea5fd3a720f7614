// Package overlay burns a timed text layer into a video.
//
// The Orchestrator runs one job through a fixed sequence of states:
//
//	validating -> acquiring -> resolving -> compositing -> encoding -> finalizing -> succeeded|failed
//
// Any state may fail. Finalizing always runs and removes every temporary
// file the job created, whatever happened before it.
package overlay

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"adstudio/internal/metrics"
	"adstudio/internal/pkg/errors"
	"adstudio/internal/pkg/logger"
)

// MimeType of every output.
const MimeType = "video/mp4"

// State is a step of the job state machine.
type State string

const (
	StateValidating  State = "validating"
	StateAcquiring   State = "acquiring"
	StateResolving   State = "resolving"
	StateCompositing State = "compositing"
	StateEncoding    State = "encoding"
	StateFinalizing  State = "finalizing"
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
)

// failureCode classifies errors a state produced without classifying them
// itself. Typed errors keep their own code.
var failureCode = map[State]errors.Code{
	StateValidating:  errors.CodeValidation,
	StateAcquiring:   errors.CodeMediaFetch,
	StateResolving:   errors.CodeInternal,
	StateCompositing: errors.CodeEncode,
	StateEncoding:    errors.CodeEncode,
	StateFinalizing:  errors.CodeInternal,
}

// Result is the finished video plus the echo fields.
type Result struct {
	Video    []byte
	MimeType string
	Text     string
	Position Position
	Layer    TextLayer
}

// Response is the transport form of a Result.
type Response struct {
	VideoBase64 string   `json:"video_base64"`
	MimeType    string   `json:"mime_type"`
	Text        string   `json:"text"`
	Position    Position `json:"position"`
}

// Response base64-encodes the video for JSON transport.
func (r *Result) Response() Response {
	return Response{
		VideoBase64: base64.StdEncoding.EncodeToString(r.Video),
		MimeType:    r.MimeType,
		Text:        r.Text,
		Position:    r.Position,
	}
}

// Orchestrator sequences the pipeline components for one job at a time.
// It holds no per-job state and is safe for concurrent use.
type Orchestrator struct {
	tempDir    string
	acquirer   *Acquirer
	fonts      *FontResolver
	compositor Compositor
	encoder    Encoder
	log        *logger.Logger

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithProber replaces ffprobe.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) { o.acquirer.prober = p }
}

// WithEncoder replaces the ffmpeg encoder.
func WithEncoder(e Encoder) Option {
	return func(o *Orchestrator) { o.encoder = e }
}

// WithHTTPClient sets the client used for video_url downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.acquirer.client = c }
}

// WithFontResolver replaces the directory-based resolver.
func WithFontResolver(r *FontResolver) Option {
	return func(o *Orchestrator) { o.fonts = r }
}

// New wires the default components from cfg.
func New(cfg Config, log *logger.Logger, opts ...Option) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		tempDir:  cfg.TempDir,
		acquirer: NewAcquirer(nil, FFprobe{Timeout: cfg.ProbeTimeout}, cfg.FetchTimeout, cfg.MaxInputBytes),
		fonts:    NewFontResolver(cfg.FontDirs, cfg.VerifyFonts, log),
		encoder: FFmpegEncoder{
			Binary: cfg.FFmpegPath,
			Preset: cfg.X264Preset,
			CRF:    cfg.CRF,
			Log:    log.WithComponent("encoder"),
		},
		log: log.WithComponent("overlay"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Overlay runs a job and returns its JSON response form.
func (o *Orchestrator) Overlay(ctx context.Context, req Request) (*Response, error) {
	res, err := o.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := res.Response()
	return &resp, nil
}

// job tracks the state of one Run call.
type job struct {
	o       *Orchestrator
	log     *logger.Logger
	state   State
	started time.Time
}

func (j *job) enter(next State) {
	metrics.ObserveStage(string(j.state), j.started)
	j.log.Debug("state transition", "from", string(j.state), "to", string(next))
	if j.o.OnTransition != nil {
		j.o.OnTransition(j.state, next)
	}
	j.state = next
	j.started = time.Now()
}

// Run executes the job. Every returned error is an *errors.Error carrying
// one of the pipeline codes.
func (o *Orchestrator) Run(ctx context.Context, req Request) (res *Result, err error) {
	j := &job{o: o, log: o.log.FromContext(ctx), state: StateValidating, started: time.Now()}
	start := j.started

	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, j.fail(err, StateValidating, start)
	}

	ws, err := NewWorkspace(o.tempDir, j.log)
	if err != nil {
		return nil, j.fail(errors.Wrap(err, "overlay.workspace", "cannot create workspace"), StateValidating, start)
	}

	defer func() {
		failedIn := j.state
		j.enter(StateFinalizing)
		ws.Finalize()
		if err != nil {
			err = j.fail(err, failedIn, start)
			return
		}
		j.enter(StateSucceeded)
		metrics.RecordJob(string(StateSucceeded), "")
		j.log.Info("overlay succeeded",
			"bytes", len(res.Video),
			"overlay_start", res.Layer.Start,
			"overlay_end", res.Layer.End,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	j.enter(StateAcquiring)
	staged, err := o.acquirer.Acquire(ctx, ws, req)
	if err != nil {
		return nil, j.classify(err)
	}
	j.log.Debug("input staged", "duration", staged.Duration, "width", staged.Width, "height", staged.Height, "audio", staged.HasAudio)

	j.enter(StateResolving)
	font := o.fonts.Resolve(req.FontFamily)

	j.enter(StateCompositing)
	comp := o.compositor.Build(staged, req, font)
	if comp.Layer.Duration() <= 0 {
		j.log.Warn("overlay window is empty, text will not be visible",
			"start_time", req.StartTime, "video_duration", staged.Duration)
	}

	j.enter(StateEncoding)
	artifact, err := o.encoder.Encode(ctx, ws, comp)
	if err != nil {
		return nil, j.classify(err)
	}

	// The artifact is read back before finalizing deletes it.
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return nil, j.classify(EncodeError("", fmt.Errorf("read output: %w", err)))
	}

	return &Result{
		Video:    data,
		MimeType: MimeType,
		Text:     req.Text,
		Position: req.Position(),
		Layer:    comp.Layer,
	}, nil
}

// classify turns any error into a coded one. Context errors become TIMEOUT;
// untyped errors take the code of the state that produced them.
func (j *job) classify(err error) *errors.Error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.WrapWithCode(err, errors.CodeTimeout, "overlay."+string(j.state), "job deadline exceeded")
	}
	code := failureCode[j.state]
	return errors.WrapWithCode(err, code, "overlay."+string(j.state), string(j.state)+" failed")
}

func (j *job) fail(err error, failedIn State, start time.Time) *errors.Error {
	e := j.classify(err)
	j.enter(StateFailed)
	metrics.RecordJob(string(StateFailed), string(e.Code))

	logFn := j.log.Warn
	if e.HTTPStatus() >= 500 {
		logFn = j.log.Error
	}
	logFn("overlay failed",
		"state", string(failedIn),
		"code", string(e.Code),
		"error", e.Error(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return e
}
