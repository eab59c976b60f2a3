package shared

import "context"

// Actor is the resolved identity of the current caller. It is carried in the
// request context by the authentication middleware; there is no process-wide
// "current user" state.
type Actor struct {
	SubjectID string
	Roles     []string
}

// RoleIdents returns the role identifiers attached to the actor.
func (a *Actor) RoleIdents() []string {
	if a == nil {
		return nil
	}
	return a.Roles
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
