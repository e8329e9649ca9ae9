package api

import (
	"log/slog"
	"net/http"
)

// healthHandler serves the liveness probe for container orchestrators.
func healthHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}
