package auth

import (
	"context"
	"fmt"
)

type contextKey string

const userContextKey contextKey = "user_context"

// UserContext carries the authenticated caller through the request.
type UserContext struct {
	UserID string
}

// WithUserContext stores the user context on the request context.
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext extracts the authenticated user.
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil || user.UserID == "" {
		return nil, fmt.Errorf("no authenticated user in context")
	}
	return user, nil
}
