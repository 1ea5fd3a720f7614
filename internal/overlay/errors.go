package overlay

import (
	"fmt"
	"net/http"

	"adstudio/internal/pkg/errors"
)

// ValidationError reports a missing or contradictory request field.
func ValidationError(field, msg string) *errors.Error {
	return errors.ValidationField(field, msg).WithOp("overlay.validate")
}

// MediaFetchError reports a failure retrieving a URL source. upstream is the
// HTTP status returned by the remote server, or 0 when no response arrived.
// Client-side statuses map to 400, server-side ones are surfaced as-is and a
// transport failure is a 500.
func MediaFetchError(upstream int, msg string, err error) *errors.Error {
	e := errors.WrapWithCode(err, errors.CodeMediaFetch, "overlay.acquire", msg)
	if e == nil {
		e = errors.New(errors.CodeMediaFetch, msg).WithOp("overlay.acquire")
	}
	switch {
	case upstream >= 500:
		e.WithStatus(upstream)
	case upstream == 0 && err != nil:
		e.WithStatus(http.StatusInternalServerError)
	}
	if upstream != 0 {
		e.WithField("upstream_status", fmt.Sprint(upstream))
	}
	return e
}

// MediaDecodeError reports an inline payload or staged file that cannot be
// decoded as video.
func MediaDecodeError(msg string, err error) *errors.Error {
	if err == nil {
		return errors.New(errors.CodeMediaDecode, msg).WithOp("overlay.acquire")
	}
	return errors.WrapWithCode(err, errors.CodeMediaDecode, "overlay.acquire", msg)
}

// StagingError reports a local I/O failure while writing the input into the
// workspace. It is the service's fault, never the caller's.
func StagingError(err error) *errors.Error {
	return errors.WrapWithCode(err, errors.CodeInternal, "overlay.acquire", "cannot stage input")
}

// EncodeError reports a codec or tool failure while compositing or writing
// the output. diagnostic is the tail of the tool's stderr.
func EncodeError(diagnostic string, err error) *errors.Error {
	var e *errors.Error
	if err == nil {
		e = errors.New(errors.CodeEncode, "encode failed").WithOp("overlay.encode")
	} else {
		e = errors.WrapWithCode(err, errors.CodeEncode, "overlay.encode", "encode failed")
	}
	if diagnostic != "" {
		e.WithField("diagnostic", diagnostic)
	}
	return e
}
