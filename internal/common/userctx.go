package common

import "context"

// UserContext holds the authenticated identity for a request, populated by the
// bearer-token middleware from JWT claims.
type UserContext struct {
	Username string
	Name     string
	Role     string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveRole returns the role from context, or empty string when unauthenticated.
// An empty role carries no permissions anywhere in the permission model.
func ResolveRole(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.Role
	}
	return ""
}
