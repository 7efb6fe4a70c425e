package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/internal/ratelimit"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/metrics"
)

// RateLimit counts requests per caller (user id when signed in, client IP
// otherwise). A nil store disables the middleware.
func RateLimit(store ratelimit.Store, backend string, m *metrics.HTTPMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := rateLimitKey(r)

			decision, err := store.Allow(ctx, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}

			resetSeconds := int(math.Ceil(decision.ResetAfter.Seconds()))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

			if !decision.Allowed {
				if resetSeconds < 1 {
					resetSeconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(resetSeconds))
				m.IncThrottled(backend)
				respondRateLimited(ctx, logg, w, key, decision)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if userID := UserIDFromContext(r.Context()); userID != uuid.Nil {
		return "user:" + userID.String()
	}
	return "ip:" + clientIP(r)
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, key string, decision ratelimit.Decision) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"rate_key":      key,
			"limit":         decision.Limit,
			"reset_seconds": decision.ResetAfter.Seconds(),
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests").
		WithDetails(map[string]any{"retry_after_seconds": int(math.Ceil(decision.ResetAfter.Seconds()))})
	responses.WriteError(ctx, nil, w, err)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
