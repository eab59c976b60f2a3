// Package acl implements the role and privilege resolution engine: a
// hierarchy of named roles compiled once from declarative configuration,
// queried read-only for allow/deny decisions.
package acl

import "fmt"

// Effect is the outcome a rule assigns to a privilege.
type Effect string

const (
	// EffectAllow grants the privilege.
	EffectAllow Effect = "allow"
	// EffectDeny refuses the privilege.
	EffectDeny Effect = "deny"
)

// Privilege identifies an action, optionally scoped to a resource.
// A zero Resource means the privilege is global (application-level actions
// not tied to a content model).
type Privilege struct {
	Resource string
	ID       string
}

// Global returns a privilege that applies regardless of resource.
func Global(id string) Privilege {
	return Privilege{ID: id}
}

// ScopedTo returns a privilege bound to a resource.
func ScopedTo(resource, id string) Privilege {
	return Privilege{Resource: resource, ID: id}
}

// IsGlobal reports whether the privilege is resource-less.
func (p Privilege) IsGlobal() bool {
	return p.Resource == ""
}

// Rule binds an effect to a privilege for one role.
type Rule struct {
	Effect    Effect
	Privilege Privilege
}

// String renders the rule in the flat introspection form:
// "effect.resource.privilege" or "effect.privilege" for global rules.
func (r Rule) String() string {
	if r.Privilege.IsGlobal() {
		return fmt.Sprintf("%s.%s", r.Effect, r.Privilege.ID)
	}
	return fmt.Sprintf("%s.%s.%s", r.Effect, r.Privilege.Resource, r.Privilege.ID)
}

// Role is a compiled role: immutable once the registry build completes.
type Role struct {
	Ident     string
	Parent    *Role
	Superuser bool

	rules []Rule
	flat  []string
}

// Rules returns the role's compiled rule set in declaration order.
func (r *Role) Rules() []Rule {
	return r.rules
}

// RuleStrings returns the human-readable flat rule listing.
func (r *Role) RuleStrings() []string {
	return r.flat
}
