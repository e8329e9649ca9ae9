package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lectern/lectern/internal/tools"
)

// maxQueryBodyBytes caps request bodies. Questions are short; anything
// approaching this limit is abuse.
const maxQueryBodyBytes = 64 * 1024

// queryHandler answers questions through the RAG system.
type queryHandler struct {
	service QueryService
	logger  *slog.Logger
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

// answer handles POST /api/query. A request without a session ID gets a
// fresh session, returned in the response so the client can continue the
// conversation.
func (h *queryHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	body := http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query_required", "query must not be empty", h.logger)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.service.NewSession()
	}

	answer, sources, err := h.service.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		h.logger.Error("answering query", "error", err, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, "query_failed", err.Error(), h.logger)
		return
	}

	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	}, h.logger)
}
