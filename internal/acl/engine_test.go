package acl

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	reg, err := Build(cfg, slog.Default())
	require.NoError(t, err)
	return NewEngine(reg, slog.Default())
}

func TestIsAllowedHierarchy(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	cases := []struct {
		name      string
		role      string
		resource  string
		privilege string
		want      bool
	}{
		{"editor edits articles", "editor", "articles", "edit", true},
		{"editor publishes articles", "editor", "articles", "publish", true},
		{"editor cannot delete articles", "editor", "articles", "delete", false},
		{"editor inherits global view", "editor", "", "view", true},
		{"guest cannot edit articles", "guest", "articles", "edit", false},
		{"guest views", "guest", "", "view", true},
		{"admin does anything", "admin", "anything", "anything", true},
		{"unknown resource denies", "editor", "pages", "edit", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.IsAllowed(tc.role, tc.resource, tc.privilege)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsAllowedSuperuserInheritance(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{
		{Ident: "admin", Superuser: true},
		{Ident: "operator", Parent: "admin"},
	}}
	engine := newTestEngine(t, cfg)

	allowed, err := engine.IsAllowed("operator", "anything", "anything")
	require.NoError(t, err)
	assert.True(t, allowed)
}

// A child's explicit deny is more specific than anything inherited.
func TestIsAllowedExplicitDenyWins(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{
		{Ident: "editor", Resources: map[string]RuleGroups{
			"articles": {"allow": {"edit"}},
		}},
		{Ident: "intern", Parent: "editor", Resources: map[string]RuleGroups{
			"articles": {"deny": {"edit"}},
		}},
	}}
	engine := newTestEngine(t, cfg)

	allowed, err := engine.IsAllowed("intern", "articles", "edit")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = engine.IsAllowed("editor", "articles", "edit")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowedScopedRuleBeatsGlobal(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{
		{
			Ident:  "publisher",
			Global: RuleGroups{"allow": {"publish"}},
			Resources: map[string]RuleGroups{
				"drafts": {"deny": {"publish"}},
			},
		},
	}}
	engine := newTestEngine(t, cfg)

	allowed, err := engine.IsAllowed("publisher", "drafts", "publish")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = engine.IsAllowed("publisher", "articles", "publish")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowedUsageErrors(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	_, err := engine.IsAllowed("ghost", "articles", "edit")
	require.ErrorIs(t, err, ErrUnknownRole)

	_, err = engine.IsAllowed("", "articles", "edit")
	require.ErrorIs(t, err, ErrNoRole)

	_, err = engine.IsAllowed("editor", "", "")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

// An internal fault must degrade to deny, not crash the caller.
func TestIsAllowedFailClosed(t *testing.T) {
	engine := NewEngine(nil, slog.Default())

	allowed, err := engine.IsAllowed("editor", "articles", "edit")
	require.NoError(t, err)
	assert.False(t, allowed)
}
