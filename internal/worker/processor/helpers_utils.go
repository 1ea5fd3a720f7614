package processor

import (
	"strings"

	"adstudio/internal/pkg/errors"
)

const maxErrorText = 2000

// failureDetails extracts the code and a bounded message for the job row.
func failureDetails(err error) (code, msg string) {
	code = string(errors.GetCode(err))
	msg = strings.TrimSpace(errors.GetMessage(err))
	if msg == "" {
		msg = err.Error()
	}
	var e *errors.Error
	if errors.As(err, &e) {
		if d, ok := e.Fields["diagnostic"].(string); ok && d != "" {
			msg += ": " + d
		}
	}
	return code, truncate(msg, maxErrorText)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
