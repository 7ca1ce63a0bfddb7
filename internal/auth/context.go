// Package auth implements Google OAuth login, valkey-backed sessions, and the
// middleware that puts the authenticated identity on the request context.
package auth

import "context"

// Identity is the authenticated user attached to a request.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type identityKey struct{}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
