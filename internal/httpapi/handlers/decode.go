package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"adstudio/internal/httpkit"
	"adstudio/internal/overlay"
	"adstudio/internal/pkg/errors"
)

// decodeRequest reads an overlay request body. Malformed JSON, unknown
// fields and oversize bodies are 400/413 before any pipeline work starts.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (overlay.Request, error) {
	var req overlay.Request
	err := httpkit.DecodeJSON(w, r, &req, h.maxBody)
	if err == nil {
		return req, nil
	}

	var tooLarge *http.MaxBytesError
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &tooLarge):
		return req, errors.New(errors.CodeBadRequest, "request body too large").
			WithField("limit_bytes", tooLarge.Limit).
			WithStatus(http.StatusRequestEntityTooLarge)
	case errors.As(err, &typeErr):
		return req, errors.ValidationField(typeErr.Field, "field has the wrong type")
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return req, errors.New(errors.CodeBadRequest, "invalid json body")
	case errors.Is(err, io.EOF):
		return req, errors.New(errors.CodeBadRequest, "request body is empty")
	default:
		return req, errors.WrapWithCode(err, errors.CodeBadRequest, "http.decode", "invalid json body")
	}
}
