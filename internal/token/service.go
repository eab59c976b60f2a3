package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mosaic-cms/mosaic-auth/internal/observability"
)

const (
	identBytes  = 16 // 128-bit lookup key
	secretBytes = 32 // 256-bit secret
)

// Clock abstracts the time source so expiry is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service wraps the persistent-token lifecycle business rules.
type Service struct {
	repo    Repository
	clock   Clock
	random  io.Reader
	ttl     time.Duration
	cost    int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects a time source.
func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithRandom injects a random byte source.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// WithTTL sets the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithHashCost sets the bcrypt work factor. Stored hashes produced with a
// lower factor are transparently upgraded on the next successful verify.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithMetrics records verification results on the given collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:   repo,
		clock:  systemClock{},
		random: rand.Reader,
		ttl:    720 * time.Hour,
		cost:   bcrypt.DefaultCost,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL exposes the configured token lifetime (the cookie expiry must match).
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Generate produces a fresh token for the subject, in memory only. The
// plaintext secret lives inside the token until Persist hashes it away;
// read it through Credential before persisting.
func (s *Service) Generate(subjectID string) (*AuthToken, error) {
	if subjectID == "" {
		return nil, errors.New("token: subject id required")
	}

	ident, err := s.randomHex(identBytes)
	if err != nil {
		return nil, fmt.Errorf("token: generate ident: %w", err)
	}
	secret, err := s.randomHex(secretBytes)
	if err != nil {
		return nil, fmt.Errorf("token: generate secret: %w", err)
	}

	return &AuthToken{
		Ident:     ident,
		SubjectID: subjectID,
		Expiry:    s.clock.Now().Add(s.ttl),
		secret:    secret,
	}, nil
}

// Persist hashes the secret and writes the token to storage. The plaintext
// secret is destroyed in the process; timestamps are stamped here and caller
// supplied values are discarded.
func (s *Service) Persist(ctx context.Context, tok *AuthToken) error {
	if tok.secret == "" {
		return errors.New("token: nothing to persist, secret already consumed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tok.secret), s.cost)
	if err != nil {
		return fmt.Errorf("token: hash secret: %w", err)
	}
	tok.SecretHash = string(hash)
	tok.secret = ""

	now := s.clock.Now()
	tok.Created = now
	tok.LastModified = now

	if err := s.repo.Save(ctx, tok); err != nil {
		return storageErr(err)
	}
	return nil
}

// Verify checks a presented credential pair against storage and returns the
// authenticated subject id.
//
// Failure modes are typed: ErrNotFound (no side effect), ErrExpired (the
// record is purged on first touch), ErrTampered (every token of the subject
// is revoked — a mismatched secret under a valid ident means the credential
// leaked), ErrStorageUnavailable (transient, caller may retry).
func (s *Service) Verify(ctx context.Context, ident, presentedSecret string) (string, error) {
	tok, err := s.repo.Load(ctx, ident)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("auth token not found", slog.String("ident", ident))
			s.metrics.ObserveTokenVerification("not_found")
			return "", ErrNotFound
		}
		s.metrics.ObserveTokenVerification("storage_error")
		return "", storageErr(err)
	}

	now := s.clock.Now()
	if tok.Expiry.IsZero() || now.After(tok.Expiry) {
		s.logger.Warn("expired auth token", slog.String("ident", ident))
		if err := s.repo.Delete(ctx, ident); err != nil {
			s.logger.Error("purge expired token", slog.String("ident", ident), slog.Any("error", err))
		}
		s.metrics.ObserveTokenVerification("expired")
		return "", ErrExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tok.SecretHash), []byte(presentedSecret)); err != nil {
		s.panic(ctx, tok)
		s.metrics.ObserveTokenVerification("tampered")
		return "", ErrTampered
	}

	s.rehashIfNeeded(ctx, tok, presentedSecret)

	if err := s.repo.Touch(ctx, ident, now); err != nil {
		s.logger.Warn("touch token", slog.String("ident", ident), slog.Any("error", err))
	}

	s.metrics.ObserveTokenVerification("ok")
	return tok.SubjectID, nil
}

// Revoke deletes every token belonging to the subject. Used on logout and
// for explicit "log out everywhere".
func (s *Service) Revoke(ctx context.Context, subjectID string) error {
	if err := s.repo.DeleteBySubject(ctx, subjectID); err != nil {
		return storageErr(err)
	}
	return nil
}

// StorageReady reports whether the token store is reachable and provisioned.
func (s *Service) StorageReady(ctx context.Context) (bool, error) {
	ok, err := s.repo.Exists(ctx)
	if err != nil {
		return false, storageErr(err)
	}
	return ok, nil
}

// panic handles the security-breach path: a known ident presented a secret
// that does not hash-match. The whole subject's session set is invalidated,
// not just the offending token.
func (s *Service) panic(ctx context.Context, tok *AuthToken) {
	s.logger.Error("possible security breach: auth token found but its secret does not match",
		slog.String("ident", tok.Ident),
		slog.String("subject_id", tok.SubjectID))

	if tok.SubjectID == "" {
		return
	}
	if err := s.repo.DeleteBySubject(ctx, tok.SubjectID); err != nil {
		s.logger.Error("revoke subject tokens after tamper",
			slog.String("subject_id", tok.SubjectID),
			slog.Any("error", err))
	}
}

// rehashIfNeeded upgrades the stored hash when it was produced with an
// outdated work factor. The verification already succeeded; an upgrade
// failure is logged, never surfaced.
func (s *Service) rehashIfNeeded(ctx context.Context, tok *AuthToken, secret string) {
	cost, err := bcrypt.Cost([]byte(tok.SecretHash))
	if err != nil || cost >= s.cost {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		s.logger.Warn("rehash token secret", slog.String("ident", tok.Ident), slog.Any("error", err))
		return
	}
	if err := s.repo.UpdateHash(ctx, tok.Ident, string(hash), s.clock.Now()); err != nil {
		s.logger.Warn("store rehashed secret", slog.String("ident", tok.Ident), slog.Any("error", err))
	}
}

func (s *Service) randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func storageErr(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
