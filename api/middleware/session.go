package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/api/responses"
	pkgAuth "github.com/withmetravel/withme-backend/pkg/auth"
	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

// ProfileEnsurer creates the caller's profile row on first sight.
type ProfileEnsurer interface {
	Ensure(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error)
}

// Session resolves the caller from a bearer token or the auth cookie. Requests
// without credentials continue anonymously; a bad token is rejected.
func Session(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, cfg.CookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			userID, err := claims.UserID()
			if err != nil || userID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			ctx := WithUserID(r.Context(), userID, claims.Email)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous callers and makes sure a profile exists.
func RequireUser(profiles ProfileEnsurer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}

			ctx := r.Context()
			if profiles != nil {
				profile, err := profiles.Ensure(ctx, userID, EmailFromContext(ctx))
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				ctx = WithSystemAdmin(ctx, profile.IsAdmin)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireSystemAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsSystemAdmin(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request, cookieName string) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
