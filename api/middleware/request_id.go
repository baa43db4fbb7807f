package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"

	// Inbound IDs longer than this are replaced rather than echoed,
	// so a caller cannot stuff arbitrary blobs into every log line.
	maxRequestIDLen = 64
)

// RequestID echoes a caller-supplied request identifier or mints one,
// and seeds it into the logging context for the rest of the chain.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
