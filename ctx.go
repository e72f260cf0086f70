package identity

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithContext sets the verified identity in the given context
func WithContext(r context.Context, summary *UserSummary) context.Context {
	return context.WithValue(r, identityCtxKey, summary)
}

// FromContext finds the verified identity from the context.
func FromContext(ctx context.Context) (*UserSummary, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*UserSummary)
	return raw, ok
}

// GetRouterIdentity extracts the verified identity from the router context
func GetRouterIdentity(ctx router.Context, key string) (*UserSummary, bool) {
	if key == "" {
		key = IdentityLocalsKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	summary, ok := raw.(*UserSummary)
	return summary, ok
}
