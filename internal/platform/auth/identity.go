package auth

import (
	"context"
	"strings"
)

type contextKey string

const identityContextKey contextKey = "github.com/skillforge/api/internal/platform/auth/identity"

// Identity describes the authenticated user attached to a request.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// WithIdentity stores the identity on the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity from context when present.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil || strings.TrimSpace(identity.UserID) == "" {
		return nil, false
	}
	return identity, true
}
