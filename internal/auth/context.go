package auth

import (
	"context"
	"net/http"
)

const HeaderUserID = "X-User-ID"

type contextKey struct{}

// WithUserID stores the acting staff member for audit columns.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// GetUserID returns the acting staff member, or "" when the caller is anonymous.
func GetUserID(ctx context.Context) string {
	if val, ok := ctx.Value(contextKey{}).(string); ok {
		return val
	}
	return ""
}

// UserIDPtr is GetUserID for nullable columns.
func UserIDPtr(ctx context.Context) *string {
	if id := GetUserID(ctx); id != "" {
		return &id
	}
	return nil
}

// Middleware copies the caller identity header into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(HeaderUserID); id != "" {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
