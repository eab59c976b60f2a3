package acl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoles(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeRoles(t, `
default_role: guest
roles:
  - ident: guest
    global:
      allow: [view]
  - ident: editor
    parent: guest
    resources:
      articles:
        allow: [edit, publish]
        deny: [delete]
  - ident: admin
    is_superuser: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "guest", cfg.DefaultRole)
	require.Len(t, cfg.Roles, 3)

	assert.Equal(t, "guest", cfg.Roles[0].Ident)
	assert.Equal(t, []string{"view"}, cfg.Roles[0].Global["allow"])

	assert.Equal(t, "editor", cfg.Roles[1].Ident)
	assert.Equal(t, "guest", cfg.Roles[1].Parent)
	require.Contains(t, cfg.Roles[1].Resources, "articles")
	assert.Equal(t, []string{"edit", "publish"}, cfg.Roles[1].Resources["articles"]["allow"])
	assert.Equal(t, []string{"delete"}, cfg.Roles[1].Resources["articles"]["deny"])

	assert.True(t, cfg.Roles[2].Superuser)
}

func TestLoadConfigPreservesOrder(t *testing.T) {
	path := writeRoles(t, `
roles:
  - ident: zeta
  - ident: alpha
  - ident: mid
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	idents := make([]string, 0, len(cfg.Roles))
	for _, decl := range cfg.Roles {
		idents = append(idents, decl.Ident)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, idents)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, ErrConfig)
}

func TestLoadConfigMalformedDocument(t *testing.T) {
	path := writeRoles(t, "roles: [:::")
	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrConfig)
}

// A rule group declared as a scalar instead of a mapping is a configuration
// error, not a silently empty group.
func TestLoadConfigMalformedRuleGroup(t *testing.T) {
	path := writeRoles(t, `
roles:
  - ident: guest
    global: view
`)
	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrConfig)
}
