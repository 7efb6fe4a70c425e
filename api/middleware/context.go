package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxEmail       contextKey = "email"
	ctxSystemAdmin contextKey = "system_admin"
)

// UserIDFromContext returns uuid.Nil for anonymous requests.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxEmail).(string); ok {
		return v
	}
	return ""
}

// IsSystemAdmin is only populated once RequireUser has loaded the profile.
func IsSystemAdmin(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(ctxSystemAdmin).(bool)
	return v
}

// WithUserID injects the caller identity into the context.
func WithUserID(ctx context.Context, userID uuid.UUID, email string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxEmail, email)
}

func WithSystemAdmin(ctx context.Context, admin bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSystemAdmin, admin)
}
