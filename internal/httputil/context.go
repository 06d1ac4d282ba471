package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	userEmailKey contextKey = "userEmail"
	usernameKey  contextKey = "username"
)

// WithUser attaches the authenticated user's identity to the request.
func WithUser(r *http.Request, email, username string) *http.Request {
	ctx := context.WithValue(r.Context(), userEmailKey, email)
	ctx = context.WithValue(ctx, usernameKey, username)
	return r.WithContext(ctx)
}

// GetUserEmail returns the authenticated email, empty if not set.
func GetUserEmail(r *http.Request) string {
	email, _ := r.Context().Value(userEmailKey).(string)
	return email
}

// GetUsername returns the authenticated username, empty if not set.
func GetUsername(r *http.Request) string {
	username, _ := r.Context().Value(usernameKey).(string)
	return username
}
