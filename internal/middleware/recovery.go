package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"writeflow/internal/httputil"
)

// headerTracker notes whether a response has started
type headerTracker struct {
	http.ResponseWriter
	wrote bool
}

func (t *headerTracker) WriteHeader(status int) {
	t.wrote = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.wrote = true
	return t.ResponseWriter.Write(b)
}

// Flush keeps SSE streaming working through the wrapper
func (t *headerTracker) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		t.wrote = true
		f.Flush()
	}
}

func (t *headerTracker) Unwrap() http.ResponseWriter { return t.ResponseWriter }

// Recovery logs a handler panic and answers 500, unless the response had
// already started (an open event stream, say), in which case the connection
// is simply ended.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := &headerTracker{ResponseWriter: w}
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.Error("panic recovered",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"subject", httputil.GetSubject(r),
					"response_started", tw.wrote,
					"stack", string(debug.Stack()),
				)
				if !tw.wrote {
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(tw, r)
		})
	}
}
