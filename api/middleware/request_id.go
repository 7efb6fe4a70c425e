package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Inbound ids are echoed into logs and error bodies, so only short opaque
// tokens are trusted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// RequestID tags the request, the response header and the log context with
// one id, reusing the caller's when it looks safe.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(reqID) {
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
