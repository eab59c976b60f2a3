package authz

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine answers queries from a fixed decision table.
type stubEngine struct {
	allowed map[string]bool
	err     error
	calls   int
}

func (s *stubEngine) IsAllowed(role, resource, privilege string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.allowed[fmt.Sprintf("%s/%s/%s", role, resource, privilege)], nil
}

type stubActor struct {
	roles []string
}

func (a stubActor) RoleIdents() []string { return a.roles }

func TestRolesAllowedAllMustAllow(t *testing.T) {
	engine := &stubEngine{allowed: map[string]bool{
		"editor//publish": true,
		"admin//publish":  true,
	}}
	authorizer := New(engine, slog.Default())

	ok, err := authorizer.RolesAllowed([]string{"editor", "admin"}, []Permission{Global("publish")})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRolesAllowedAnyDenyRefuses(t *testing.T) {
	engine := &stubEngine{allowed: map[string]bool{
		"editor//publish": true,
		// guest denies publish
	}}
	authorizer := New(engine, slog.Default())

	ok, err := authorizer.RolesAllowed([]string{"editor", "guest"}, []Permission{Global("publish")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRolesAllowedShortCircuits(t *testing.T) {
	engine := &stubEngine{allowed: map[string]bool{}}
	authorizer := New(engine, slog.Default())

	ok, err := authorizer.RolesAllowed(
		[]string{"guest", "editor", "admin"},
		[]Permission{Global("publish"), Global("view")},
	)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, engine.calls)
}

func TestRolesAllowedScopedPermission(t *testing.T) {
	engine := &stubEngine{allowed: map[string]bool{
		"editor/articles/edit": true,
	}}
	authorizer := New(engine, slog.Default())

	ok, err := authorizer.RolesAllowed([]string{"editor"}, []Permission{ScopedTo("articles", "edit")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = authorizer.RolesAllowed([]string{"editor"}, []Permission{ScopedTo("pages", "edit")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRolesAllowedVacuousCases(t *testing.T) {
	engine := &stubEngine{allowed: map[string]bool{}}
	authorizer := New(engine, slog.Default())

	// No required permissions: allowed, no engine calls.
	ok, err := authorizer.RolesAllowed([]string{"guest"}, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, engine.calls)

	// No roles: vacuously allowed by default.
	ok, err = authorizer.RolesAllowed(nil, []Permission{Global("publish")})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, engine.calls)
}

// Strict mode pins the opposite resolution of the empty-role-set question.
func TestRolesAllowedRequireRoles(t *testing.T) {
	engine := &stubEngine{allowed: map[string]bool{}}
	authorizer := New(engine, slog.Default(), WithRequireRoles())

	ok, err := authorizer.RolesAllowed(nil, []Permission{Global("publish")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRolesAllowedPropagatesEngineError(t *testing.T) {
	wantErr := errors.New("unknown role")
	engine := &stubEngine{err: wantErr}
	authorizer := New(engine, slog.Default())

	_, err := authorizer.RolesAllowed([]string{"ghost"}, []Permission{Global("view")})
	require.ErrorIs(t, err, wantErr)
}

func TestUserAllowed(t *testing.T) {
	engine := &stubEngine{allowed: map[string]bool{
		"editor//view": true,
		"guest//view":  true,
	}}
	authorizer := New(engine, slog.Default())

	ok, err := authorizer.UserAllowed(stubActor{roles: []string{"editor", "guest"}}, []Permission{Global("view")})
	require.NoError(t, err)
	assert.True(t, ok)
}
