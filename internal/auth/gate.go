package auth

import (
	"errors"
	"net/http"

	"github.com/mosaic-cms/mosaic-auth/internal/authz"
	"github.com/mosaic-cms/mosaic-auth/internal/shared"
)

// Gate composes an Authenticator with the Authorizer: "is the current caller
// allowed to proceed". It is the only piece that touches both halves.
type Gate struct {
	authenticator Authenticator
	authorizer    *authz.Authorizer
}

// NewGate constructs a Gate.
func NewGate(authenticator Authenticator, authorizer *authz.Authorizer) *Gate {
	return &Gate{authenticator: authenticator, authorizer: authorizer}
}

// Authenticate resolves the current caller, or nil when the request carries
// no usable credentials.
func (g *Gate) Authenticate(r *http.Request) (*User, error) {
	user, err := g.authenticator.Authenticate(r)
	if err != nil {
		if errors.Is(err, shared.ErrNoCredentials) || errors.Is(err, shared.ErrInvalidCredentials) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Allowed resolves the caller and checks the required permissions in one
// step. A nil user with a true verdict only happens with an empty permission
// list against an authorizer that tolerates it; callers wanting a hard
// authentication requirement should test user for nil.
func (g *Gate) Allowed(r *http.Request, permissions []authz.Permission) (*User, bool, error) {
	user, err := g.Authenticate(r)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, nil
	}
	ok, err := g.authorizer.UserAllowed(user, permissions)
	if err != nil {
		return user, false, err
	}
	return user, ok, nil
}
