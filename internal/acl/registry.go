package acl

import (
	"fmt"
	"log/slog"
	"sort"
)

// Registry holds the compiled role hierarchy. It is built once at startup and
// is read-only afterwards, so concurrent evaluations share it without locks.
type Registry struct {
	roles       map[string]*Role
	order       []string
	resources   map[string]struct{}
	defaultRole string
}

// Build compiles a declarative role configuration into a Registry.
//
// Declarations are processed in configuration order. A parent reference that
// does not resolve to an already-registered role is logged and dropped; it is
// not deferred or retried.
func Build(cfg Config, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg := &Registry{
		roles:       make(map[string]*Role, len(cfg.Roles)),
		resources:   make(map[string]struct{}),
		defaultRole: cfg.DefaultRole,
	}

	for _, decl := range cfg.Roles {
		if decl.Ident == "" {
			return nil, fmt.Errorf("%w: role declaration without ident", ErrConfig)
		}
		if _, exists := reg.roles[decl.Ident]; exists {
			return nil, fmt.Errorf("%w: duplicate role %q", ErrConfig, decl.Ident)
		}
		if decl.Parent == decl.Ident {
			return nil, fmt.Errorf("%w: role %q names itself as parent", ErrConfig, decl.Ident)
		}

		role := &Role{
			Ident:     decl.Ident,
			Superuser: decl.Superuser,
		}

		if decl.Parent != "" {
			parent, ok := reg.roles[decl.Parent]
			if !ok {
				logger.Warn("acl: parent role not registered yet, dropping parent link",
					slog.String("role", decl.Ident),
					slog.String("parent", decl.Parent))
			}
			role.Parent = parent
		}

		if err := reg.compileRules(role, decl); err != nil {
			return nil, err
		}

		reg.roles[role.Ident] = role
		reg.order = append(reg.order, role.Ident)
	}

	if cfg.DefaultRole != "" {
		if _, ok := reg.roles[cfg.DefaultRole]; !ok {
			return nil, fmt.Errorf("%w: default role %q is not declared", ErrConfig, cfg.DefaultRole)
		}
	}

	return reg, nil
}

// compileRules flattens a declaration's resource-scoped and global rule
// groups into the role's rule set and flat string listing.
func (reg *Registry) compileRules(role *Role, decl RoleDecl) error {
	// Resource names are sorted so the compiled rule order is deterministic
	// regardless of map iteration order.
	resources := make([]string, 0, len(decl.Resources))
	for resource := range decl.Resources {
		resources = append(resources, resource)
	}
	sort.Strings(resources)

	for _, resource := range resources {
		reg.resources[resource] = struct{}{}
		if err := appendRules(role, resource, decl.Resources[resource]); err != nil {
			return err
		}
	}

	return appendRules(role, "", decl.Global)
}

func appendRules(role *Role, resource string, groups RuleGroups) error {
	for effect := range groups {
		if effect != string(EffectAllow) && effect != string(EffectDeny) {
			return fmt.Errorf("%w: role %q uses unsupported effect %q", ErrConfig, role.Ident, effect)
		}
	}
	for _, effect := range []Effect{EffectAllow, EffectDeny} {
		for _, priv := range groups[string(effect)] {
			if priv == "" {
				return fmt.Errorf("%w: role %q declares an empty privilege", ErrConfig, role.Ident)
			}
			rule := Rule{Effect: effect, Privilege: Privilege{Resource: resource, ID: priv}}
			role.rules = append(role.rules, rule)
			role.flat = append(role.flat, rule.String())
		}
	}
	return nil
}

// Role looks up a compiled role by ident.
func (reg *Registry) Role(ident string) (*Role, bool) {
	role, ok := reg.roles[ident]
	return role, ok
}

// Roles returns the compiled roles in configuration order.
func (reg *Registry) Roles() []*Role {
	roles := make([]*Role, 0, len(reg.order))
	for _, ident := range reg.order {
		roles = append(roles, reg.roles[ident])
	}
	return roles
}

// HasResource reports whether a resource was declared during the build.
// Unknown resources are not an error at query time: they simply resolve
// through global rules and the default deny.
func (reg *Registry) HasResource(ident string) bool {
	_, ok := reg.resources[ident]
	return ok
}

// DefaultRole returns the role attributed to new users.
func (reg *Registry) DefaultRole() (string, error) {
	if reg.defaultRole == "" {
		return "", fmt.Errorf("%w: no default role configured", ErrConfig)
	}
	return reg.defaultRole, nil
}
