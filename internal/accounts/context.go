package accounts

import "context"

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying the given user as the authenticated
// actor.
func WithActor(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, actorKey, u)
}

// ActorFromContext returns the authenticated user if present.
func ActorFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(actorKey).(*User)
	return u, ok
}
