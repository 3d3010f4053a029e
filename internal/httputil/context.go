package httputil

import (
	"context"
	"net/http"
)

// Unexported key type keeps request-scoped values collision-free.
type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a shallow copy of the request carrying the
// authenticated user's ID in its context.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID returns the authenticated user's ID, or "" for an
// unauthenticated request.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
