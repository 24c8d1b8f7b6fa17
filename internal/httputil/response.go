package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// RespondJSON writes a JSON response with the given status code.
// The payload is marshaled first so an encoding failure never leaves a
// partial response behind.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondAttachment sends data as a download named filename
func RespondAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ProblemDetail represents an RFC 7807 Problem Details response
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// RespondError writes an RFC 7807 Problem Details error response
func RespondError(w http.ResponseWriter, status int, detail string) {
	payload, err := json.Marshal(ProblemDetail{
		Type:   errorTypeFromStatus(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	w.Write(payload)
}

// errorTypeFromStatus returns the RFC 9110 section URI for a status code
func errorTypeFromStatus(status int) string {
	const base = "https://www.rfc-editor.org/rfc/rfc9110#section-"
	switch status {
	case http.StatusBadRequest:
		return base + "15.5.1"
	case http.StatusUnauthorized:
		return base + "15.5.2"
	case http.StatusForbidden:
		return base + "15.5.4"
	case http.StatusNotFound:
		return base + "15.5.5"
	case http.StatusConflict:
		return base + "15.5.10"
	case http.StatusPreconditionFailed:
		return base + "15.5.13"
	case http.StatusRequestEntityTooLarge:
		return base + "15.5.14"
	case http.StatusInternalServerError:
		return base + "15.6.1"
	default:
		return "about:blank"
	}
}
