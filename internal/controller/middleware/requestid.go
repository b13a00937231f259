package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"schemaplane/internal/logger"
)

// RequestID tags every request with a correlation ID. An inbound
// X-Request-ID header is honoured; otherwise a fresh ID is generated.
// The ID is echoed on the response and stored in the request context
// so handlers can log with it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), reqID)))
	})
}
