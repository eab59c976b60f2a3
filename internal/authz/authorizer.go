// Package authz maps an actor's role set and a list of required privileges
// onto a single allow/deny decision.
package authz

import (
	"log/slog"

	"github.com/mosaic-cms/mosaic-auth/internal/observability"
)

// Actor exposes the role idents of an authenticated identity.
type Actor interface {
	RoleIdents() []string
}

// Engine is the access-resolution seam; satisfied by *acl.Engine.
type Engine interface {
	IsAllowed(role, resource, privilege string) (bool, error)
}

// Permission is a required privilege, optionally scoped to a resource.
// The variant is resolved once at the call boundary, never re-parsed.
type Permission struct {
	Resource  string
	Privilege string
}

// Global returns a resource-less permission requirement.
func Global(privilege string) Permission {
	return Permission{Privilege: privilege}
}

// ScopedTo returns a permission requirement bound to a resource.
func ScopedTo(resource, privilege string) Permission {
	return Permission{Resource: resource, Privilege: privilege}
}

// Authorizer applies all-roles-must-allow semantics over an Engine.
type Authorizer struct {
	engine       Engine
	logger       *slog.Logger
	metrics      *observability.Metrics
	requireRoles bool
}

// Option customizes an Authorizer.
type Option func(*Authorizer)

// WithRequireRoles makes an empty role set a refusal instead of a vacuous
// allow. Callers that can guarantee every actor carries at least one role
// should enable this.
func WithRequireRoles() Option {
	return func(a *Authorizer) { a.requireRoles = true }
}

// WithMetrics records access decisions on the given collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Authorizer) { a.metrics = metrics }
}

// New constructs an Authorizer.
func New(engine Engine, logger *slog.Logger, opts ...Option) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authorizer{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RolesAllowed reports whether every role independently satisfies every
// required permission. The first failing combination short-circuits to false.
//
// An empty permission list is vacuously true. An empty role list is vacuously
// true unless the authorizer was built with WithRequireRoles.
func (a *Authorizer) RolesAllowed(roles []string, permissions []Permission) (bool, error) {
	if len(roles) == 0 {
		if a.requireRoles {
			a.logger.Error("authz: refusing actor without roles")
			a.metrics.ObserveAccessDecision(false)
			return false, nil
		}
		a.metrics.ObserveAccessDecision(true)
		return true, nil
	}

	for _, role := range roles {
		for _, perm := range permissions {
			allowed, err := a.engine.IsAllowed(role, perm.Resource, perm.Privilege)
			if err != nil {
				return false, err
			}
			if !allowed {
				a.logger.Error("authz: permission refused",
					slog.String("role", role),
					slog.String("resource", perm.Resource),
					slog.String("privilege", perm.Privilege))
				a.metrics.ObserveAccessDecision(false)
				return false, nil
			}
		}
	}

	a.metrics.ObserveAccessDecision(true)
	return true, nil
}

// UserAllowed reports whether the actor may exercise every required
// permission through its role set.
func (a *Authorizer) UserAllowed(actor Actor, permissions []Permission) (bool, error) {
	return a.RolesAllowed(actor.RoleIdents(), permissions)
}
