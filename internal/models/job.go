package models

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobQueued  JobStatus = "QUEUED"
	JobRunning JobStatus = "RUNNING"
	JobDone    JobStatus = "DONE"
	JobFailed  JobStatus = "FAILED"
)

// Valid reports whether s is one of the known job states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobQueued, JobRunning, JobDone, JobFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions happen from s.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// OverlayJob is a queued overlay request. Params holds the request without
// any inline video; an inline payload is staged in storage under InputKey.
type OverlayJob struct {
	ID         string          `json:"id"`
	Status     JobStatus       `json:"status"`
	Params     json.RawMessage `json:"params"`
	InputKey   string          `json:"input_key,omitempty"`
	OutputKey  string          `json:"output_key,omitempty"`
	OutputSize int64           `json:"output_size,omitempty"`
	ErrorCode  string          `json:"error_code,omitempty"`
	ErrorText  string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// InputObjectKey is where an async job's inline video is staged.
func InputObjectKey(jobID string) string {
	return "overlays/" + jobID + "/input.b64"
}

// OutputObjectKey is where an async job's rendered video is stored.
func OutputObjectKey(jobID string) string {
	return "overlays/" + jobID + "/output.mp4"
}
