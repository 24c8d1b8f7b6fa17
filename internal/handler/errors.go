package handler

import (
	"log/slog"
	"net/http"

	"writeflow/internal/domain"
	"writeflow/internal/httputil"
)

// handleError converts domain errors to HTTP responses. Unmapped errors
// are logged and hidden behind a generic 500.
func handleError(w http.ResponseWriter, err error) {
	status := domain.StatusCode(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		httputil.RespondError(w, status, "internal server error")
		return
	}
	httputil.RespondError(w, status, err.Error())
}
