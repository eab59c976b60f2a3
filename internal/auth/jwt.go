package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mosaic-cms/mosaic-auth/internal/shared"
)

// JWTConfig carries the signing material and claim defaults for the
// stateless bearer-token path.
type JWTConfig struct {
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
	Issuer        string
	Audience      string
	Expiry        time.Duration
}

// JWTHandler generates and validates RS256 bearer tokens carrying a "uid"
// claim. It is the stateless sibling of the persistent-token path: nothing
// is stored, revocation is expiry-only.
type JWTHandler struct {
	private  *rsa.PrivateKey
	public   *rsa.PublicKey
	issuer   string
	audience string
	expiry   time.Duration
}

type bearerClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// NewJWTHandler parses the configured key pair and constructs a handler.
func NewJWTHandler(cfg JWTConfig) (*JWTHandler, error) {
	private, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("auth: parse jwt private key: %w", err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("auth: parse jwt public key: %w", err)
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &JWTHandler{
		private:  private,
		public:   public,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		expiry:   expiry,
	}, nil
}

// GenerateForSubject builds and signs a token with a "uid" claim.
func (h *JWTHandler) GenerateForSubject(subjectID string) (string, error) {
	if subjectID == "" {
		return "", errors.New("auth: subject id required")
	}
	now := time.Now().UTC()
	claims := bearerClaims{
		UID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    h.issuer,
			Audience:  jwt.ClaimStrings{h.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(h.private)
}

// ParseToken validates a signed token and returns its subject id.
func (h *JWTHandler) ParseToken(raw string) (string, error) {
	var claims bearerClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return h.public, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(h.issuer),
		jwt.WithAudience(h.audience),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	if claims.UID == "" {
		return "", fmt.Errorf("%w: token has no uid claim", shared.ErrInvalidCredentials)
	}
	return claims.UID, nil
}

// SubjectFromRequest extracts and validates the bearer token from the
// Authorization header.
func (h *JWTHandler) SubjectFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", shared.ErrNoCredentials
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", shared.ErrNoCredentials
	}
	return h.ParseToken(strings.TrimSpace(raw))
}
