package shared

import "context"

type contextKey string

const actorKey contextKey = "actor"

// Actor identifies the user performing a write. Authentication happens
// upstream; the core only records who created, updated or validated a figure.
type Actor struct {
	ID   int64
	Name string
}

// ContextWithActor stores the acting user in the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the acting user, or a zero Actor when the request
// carries no identity.
func ActorFromContext(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorKey).(Actor); ok {
		return actor
	}
	return Actor{}
}
