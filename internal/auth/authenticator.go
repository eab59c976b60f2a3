package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/mosaic-cms/mosaic-auth/internal/shared"
	"github.com/mosaic-cms/mosaic-auth/internal/token"
)

// Authenticator resolves "who is calling right now" from request state.
// An absent credential is shared.ErrNoCredentials; a present but unusable
// one is shared.ErrInvalidCredentials.
type Authenticator interface {
	Authenticate(r *http.Request) (*User, error)
}

// TokenAuthenticator resolves the caller from the persistent-token cookie.
type TokenAuthenticator struct {
	tokens     *token.Service
	users      Repository
	cookieName string
	logger     *slog.Logger
}

// NewTokenAuthenticator constructs a TokenAuthenticator.
func NewTokenAuthenticator(tokens *token.Service, users Repository, cookieName string, logger *slog.Logger) *TokenAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenAuthenticator{tokens: tokens, users: users, cookieName: cookieName, logger: logger}
}

// Authenticate verifies the cookie credential and loads the subject's user
// record. Token failures collapse to invalid-credentials for the caller; the
// token service has already logged and contained the interesting ones.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (*User, error) {
	cookie, err := r.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, shared.ErrNoCredentials
	}

	// The cookie value is URL-encoded; the separator is not a legal
	// cookie-value byte.
	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	cred, err := token.ParseCredential(raw)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}

	subjectID, err := a.tokens.Verify(r.Context(), cred.Ident, cred.Secret)
	if err != nil {
		if errors.Is(err, token.ErrStorageUnavailable) {
			return nil, err
		}
		return nil, shared.ErrInvalidCredentials
	}

	user, err := a.users.FindByID(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			a.logger.Warn("auth: token subject no longer exists", slog.String("subject_id", subjectID))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

var _ Authenticator = (*TokenAuthenticator)(nil)
