package acl

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		DefaultRole: "guest",
		Roles: []RoleDecl{
			{
				Ident:  "guest",
				Global: RuleGroups{"allow": {"view"}},
			},
			{
				Ident:  "editor",
				Parent: "guest",
				Resources: map[string]RuleGroups{
					"articles": {"allow": {"edit", "publish"}},
				},
			},
			{
				Ident:     "admin",
				Superuser: true,
			},
		},
	}
}

func TestBuildRegistry(t *testing.T) {
	reg, err := Build(testConfig(), slog.Default())
	require.NoError(t, err)

	roles := reg.Roles()
	require.Len(t, roles, 3)
	assert.Equal(t, "guest", roles[0].Ident)
	assert.Equal(t, "editor", roles[1].Ident)
	assert.Equal(t, "admin", roles[2].Ident)

	editor, ok := reg.Role("editor")
	require.True(t, ok)
	require.NotNil(t, editor.Parent)
	assert.Equal(t, "guest", editor.Parent.Ident)
	assert.False(t, editor.Superuser)

	admin, ok := reg.Role("admin")
	require.True(t, ok)
	assert.True(t, admin.Superuser)
	assert.Nil(t, admin.Parent)

	assert.True(t, reg.HasResource("articles"))
	assert.False(t, reg.HasResource("pages"))

	def, err := reg.DefaultRole()
	require.NoError(t, err)
	assert.Equal(t, "guest", def)
}

func TestBuildFlattensRules(t *testing.T) {
	reg, err := Build(Config{
		Roles: []RoleDecl{
			{
				Ident: "moderator",
				Resources: map[string]RuleGroups{
					"comments": {"allow": {"hide"}, "deny": {"purge"}},
				},
				Global: RuleGroups{"allow": {"review"}},
			},
		},
	}, slog.Default())
	require.NoError(t, err)

	moderator, ok := reg.Role("moderator")
	require.True(t, ok)
	assert.Equal(t, []string{
		"allow.comments.hide",
		"deny.comments.purge",
		"allow.review",
	}, moderator.RuleStrings())
}

func TestBuildDuplicateRole(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{{Ident: "guest"}, {Ident: "guest"}}}
	_, err := Build(cfg, slog.Default())
	require.ErrorIs(t, err, ErrConfig)
}

func TestBuildUnsupportedEffect(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{{
		Ident:  "guest",
		Global: RuleGroups{"grant": {"view"}},
	}}}
	_, err := Build(cfg, slog.Default())
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "grant")
}

func TestBuildEmptyPrivilege(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{{
		Ident:  "guest",
		Global: RuleGroups{"allow": {""}},
	}}}
	_, err := Build(cfg, slog.Default())
	require.ErrorIs(t, err, ErrConfig)
}

func TestBuildSelfParent(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{{Ident: "guest", Parent: "guest"}}}
	_, err := Build(cfg, slog.Default())
	require.ErrorIs(t, err, ErrConfig)
}

func TestBuildMissingIdent(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{{Parent: "guest"}}}
	_, err := Build(cfg, slog.Default())
	require.ErrorIs(t, err, ErrConfig)
}

func TestBuildUnknownDefaultRole(t *testing.T) {
	cfg := Config{DefaultRole: "root", Roles: []RoleDecl{{Ident: "guest"}}}
	_, err := Build(cfg, slog.Default())
	require.ErrorIs(t, err, ErrConfig)
}

// A parent declared after its child does not resolve; the child is simply
// registered without one.
func TestBuildParentDeclaredAfterChild(t *testing.T) {
	cfg := Config{Roles: []RoleDecl{
		{Ident: "editor", Parent: "guest"},
		{Ident: "guest", Global: RuleGroups{"allow": {"view"}}},
	}}
	reg, err := Build(cfg, slog.Default())
	require.NoError(t, err)

	editor, ok := reg.Role("editor")
	require.True(t, ok)
	assert.Nil(t, editor.Parent)
}

func TestDefaultRoleUnset(t *testing.T) {
	reg, err := Build(Config{Roles: []RoleDecl{{Ident: "guest"}}}, slog.Default())
	require.NoError(t, err)
	_, err = reg.DefaultRole()
	require.ErrorIs(t, err, ErrConfig)
}
