package auth

import (
	"context"
	"net/http"
)

// ContextKey is the type used for request context keys.
type ContextKey string

const (
	// ContextKeyUserID holds the uid of the signed-in user.
	ContextKeyUserID ContextKey = "userID"
	// ContextKeyToken holds the bearer token the request was authorized with.
	ContextKeyToken ContextKey = "token"
)

// WithUser returns ctx carrying the authenticated uid and token.
func WithUser(ctx context.Context, userID, token string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	return context.WithValue(ctx, ContextKeyToken, token)
}

// GetUserID retrieves the authenticated uid from the request context.
func GetUserID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyUserID).(string); ok {
		return id
	}
	return ""
}

// GetToken retrieves the bearer token from the request context.
func GetToken(r *http.Request) string {
	if token, ok := r.Context().Value(ContextKeyToken).(string); ok {
		return token
	}
	return ""
}
