package api

import (
	"log/slog"
	"net/http"
)

// coursesHandler reports catalog analytics.
type coursesHandler struct {
	service QueryService
	logger  *slog.Logger
}

// list handles GET /api/courses.
func (h *coursesHandler) list(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Analytics(r.Context())
	if err != nil {
		h.logger.Error("loading course analytics", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics_failed", err.Error(), h.logger)
		return
	}

	if stats.CourseTitles == nil {
		stats.CourseTitles = []string{}
	}
	writeJSON(w, http.StatusOK, stats, h.logger)
}
