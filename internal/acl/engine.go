package acl

import (
	"errors"
	"fmt"
	"log/slog"
)

// Usage errors: caller faults, distinct from a rule simply not matching.
var (
	// ErrUnknownRole is returned when the queried role ident is not registered.
	ErrUnknownRole = errors.New("acl: unknown role")
	// ErrNoRole is returned when the query omits the role ident.
	ErrNoRole = errors.New("acl: role ident required")
	// ErrEmptyQuery is returned when neither resource nor privilege is supplied.
	ErrEmptyQuery = errors.New("acl: at least one of resource and privilege required")
)

// Engine answers access queries against a compiled Registry. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
}

// NewEngine constructs an Engine over the given registry.
func NewEngine(registry *Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, logger: logger}
}

// Registry exposes the engine's compiled registry for introspection.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// IsAllowed reports whether the role may exercise the privilege on the
// resource. Resolution walks from the queried role up its parent chain; at
// each level the resource-scoped rules are consulted before the global ones,
// and the first match decides. No match anywhere means deny.
//
// Internal evaluation faults never escape: they are logged with the full
// query context and degrade to a refusal.
func (e *Engine) IsAllowed(role, resource, privilege string) (allowed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("acl: evaluation fault, refusing access",
				slog.Any("panic", rec),
				slog.String("role", role),
				slog.String("resource", resource),
				slog.String("privilege", privilege))
			allowed = false
			err = nil
		}
	}()

	if role == "" {
		return false, ErrNoRole
	}
	if resource == "" && privilege == "" {
		return false, ErrEmptyQuery
	}

	current, ok := e.registry.Role(role)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	for ; current != nil; current = current.Parent {
		if current.Superuser {
			return true, nil
		}
		if effect, ok := matchRules(current.Rules(), resource, privilege); ok {
			return effect == EffectAllow, nil
		}
	}

	return false, nil
}

// matchRules scans one hierarchy level, most specific first: a rule scoped to
// the queried resource wins over a global rule for the same privilege.
func matchRules(rules []Rule, resource, privilege string) (Effect, bool) {
	if resource != "" {
		for _, rule := range rules {
			if rule.Privilege.Resource == resource && rule.Privilege.ID == privilege {
				return rule.Effect, true
			}
		}
	}
	for _, rule := range rules {
		if rule.Privilege.IsGlobal() && rule.Privilege.ID == privilege {
			return rule.Effect, true
		}
	}
	return "", false
}
