package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// sessionHandler rotates conversation sessions.
type sessionHandler struct {
	service QueryService
	logger  *slog.Logger
}

type sessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// rotate handles POST /api/session/new. The old session, when given, is
// cleared; the response carries a fresh session ID either way. An empty
// body is fine for first-time clients.
func (h *sessionHandler) rotate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}

	if req.SessionID != "" {
		h.service.ClearSession(req.SessionID)
	}

	writeJSON(w, http.StatusOK, sessionResponse{SessionID: h.service.NewSession()}, h.logger)
}
