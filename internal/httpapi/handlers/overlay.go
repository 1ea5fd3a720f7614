package handlers

import (
	"net/http"

	"adstudio/internal/httpkit"
)

// PostOverlay renders synchronously and returns the MP4 inline as base64.
func (h *Handler) PostOverlay(w http.ResponseWriter, r *http.Request) error {
	req, err := h.decodeRequest(w, r)
	if err != nil {
		return err
	}

	resp, err := h.overlay.Overlay(r.Context(), req)
	if err != nil {
		return err
	}

	httpkit.WriteJSON(w, http.StatusOK, resp)
	return nil
}
