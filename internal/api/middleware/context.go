package middleware

import (
	"context"
	"fmt"
)

// contextKey is a custom type for context keys to avoid collisions with
// other packages, grounded on the teacher's own context.go idiom.
type contextKey string

// Context keys for request-scoped values. There is no tenant concept in
// this domain, so only UserIDKey and EmailKey survive from the teacher's
// three-key set.
const (
	UserIDKey contextKey = "user_id"
	EmailKey  contextKey = "email"
)

// WithUser returns a derived context carrying the authenticated caller's
// id and email, set by AuthMiddleware after validating an access token.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, EmailKey, email)
}

// GetUserID safely extracts the authenticated user id from context.
func GetUserID(ctx context.Context) (string, error) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return "", fmt.Errorf("user_id not found in context")
	}
	id, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("user_id has wrong type: %T", val)
	}
	return id, nil
}

// MustGetUserID extracts the user id and panics if not found. Use only in
// handlers mounted behind AuthMiddleware, which guarantees it is set.
func MustGetUserID(ctx context.Context) string {
	id, err := GetUserID(ctx)
	if err != nil {
		panic(fmt.Sprintf("CRITICAL: %v", err))
	}
	return id
}
