package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-cms/mosaic-auth/internal/shared"
)

func testJWTHandler(t *testing.T) *JWTHandler {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	handler, err := NewJWTHandler(JWTConfig{
		PrivateKeyPEM: privatePEM,
		PublicKeyPEM:  publicPEM,
		Issuer:        "mosaic-auth",
		Audience:      "mosaic-cms",
		Expiry:        time.Hour,
	})
	require.NoError(t, err)
	return handler
}

func TestJWTRoundTrip(t *testing.T) {
	handler := testJWTHandler(t)

	raw, err := handler.GenerateForSubject("user-1")
	require.NoError(t, err)

	subject, err := handler.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestJWTGenerateRequiresSubject(t *testing.T) {
	handler := testJWTHandler(t)
	_, err := handler.GenerateForSubject("")
	require.Error(t, err)
}

func TestJWTRejectsForeignToken(t *testing.T) {
	issuing := testJWTHandler(t)
	verifying := testJWTHandler(t)

	raw, err := issuing.GenerateForSubject("user-1")
	require.NoError(t, err)

	// different key pair, signature cannot verify
	_, err = verifying.ParseToken(raw)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	handler := testJWTHandler(t)

	raw, err := handler.GenerateForSubject("user-1")
	require.NoError(t, err)

	_, err = handler.ParseToken(raw + "x")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestJWTSubjectFromRequest(t *testing.T) {
	handler := testJWTHandler(t)

	raw, err := handler.GenerateForSubject("user-1")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	subject, err := handler.SubjectFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = handler.SubjectFromRequest(r)
	require.ErrorIs(t, err, shared.ErrNoCredentials)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err = handler.SubjectFromRequest(r)
	require.ErrorIs(t, err, shared.ErrNoCredentials)
}
