package authapi

import (
	"context"

	"gradnet/cmd/identity"
)

// Identity is the authenticated principal attached to a request context by
// the auth gate. Role is always the store's current value, never whatever
// the token said at mint time.
type Identity struct {
	SubjectID string
	Role      identity.Role
}

type identityCtxKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFrom extracts the authenticated identity from the context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}
