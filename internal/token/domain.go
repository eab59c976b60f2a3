// Package token manages long-lived authentication tokens: generation,
// persistence, verification, and revocation. A token's ident is the storage
// key and the non-secret half of the client credential; the secret half is
// only ever stored as a bcrypt hash.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Typed verification failures. Callers react differently to each: a missing
// or expired token prompts a re-login, a tampered one is a security event.
var (
	// ErrNotFound means no token exists under the presented ident.
	ErrNotFound = errors.New("token: not found")
	// ErrExpired means the token's expiry has passed; the record is purged.
	ErrExpired = errors.New("token: expired")
	// ErrTampered means the presented secret does not match the stored hash.
	ErrTampered = errors.New("token: tampered")
	// ErrStorageUnavailable means the backing store could not be reached.
	// The caller may retry; the service never retries internally.
	ErrStorageUnavailable = errors.New("token: storage unavailable")
)

// AuthToken is a persistent login token bound to a subject.
//
// Created and LastModified are stamped by the service on persist; caller
// supplied values are overridden.
type AuthToken struct {
	Ident        string
	SecretHash   string
	SubjectID    string
	Expiry       time.Time
	Created      time.Time
	LastModified time.Time

	// plaintext secret, present only between Generate and Persist
	secret string
}

// Credential is the two-part opaque value handed to the client exactly once,
// at generation time. Both halves are hex-encoded, so the separator cannot
// occur inside either component.
type Credential struct {
	Ident  string
	Secret string
}

const credentialSeparator = ";"

// String renders the transport form "ident;secret".
func (c Credential) String() string {
	return c.Ident + credentialSeparator + c.Secret
}

// ParseCredential splits a transport credential into its two halves.
func ParseCredential(raw string) (Credential, error) {
	ident, secret, ok := strings.Cut(raw, credentialSeparator)
	if !ok || ident == "" || secret == "" {
		return Credential{}, fmt.Errorf("token: malformed credential")
	}
	return Credential{Ident: ident, Secret: secret}, nil
}

// Credential returns the client-facing pair. It is only available before the
// token has been persisted; afterwards the plaintext secret is gone for good.
func (t *AuthToken) Credential() (Credential, bool) {
	if t.secret == "" {
		return Credential{}, false
	}
	return Credential{Ident: t.Ident, Secret: t.secret}, true
}
