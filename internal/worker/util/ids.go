package util

import (
	"github.com/google/uuid"
)

// NewID returns prefix_<uuid>, e.g. job_0b6a...
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
