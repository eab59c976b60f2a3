package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for auth tokens. Delete and
// DeleteBySubject must be atomic single operations at the storage layer so a
// concurrent verify and revoke cannot interleave unsafely.
type Repository interface {
	Load(ctx context.Context, ident string) (*AuthToken, error)
	Save(ctx context.Context, tok *AuthToken) error
	UpdateHash(ctx context.Context, ident, hash string, modified time.Time) error
	Touch(ctx context.Context, ident string, modified time.Time) error
	Delete(ctx context.Context, ident string) error
	DeleteBySubject(ctx context.Context, subjectID string) error
	Exists(ctx context.Context) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Load fetches a token by ident.
func (r *PGRepository) Load(ctx context.Context, ident string) (*AuthToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT ident, secret_hash, subject_id, expiry, created, last_modified
		FROM auth_tokens WHERE ident = $1`, ident)

	var tok AuthToken
	if err := row.Scan(&tok.Ident, &tok.SecretHash, &tok.SubjectID, &tok.Expiry, &tok.Created, &tok.LastModified); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("token: load %s: %w", ident, err)
	}
	return &tok, nil
}

// Save inserts a token record.
func (r *PGRepository) Save(ctx context.Context, tok *AuthToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_tokens (ident, secret_hash, subject_id, expiry, created, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tok.Ident, tok.SecretHash, tok.SubjectID, tok.Expiry, tok.Created, tok.LastModified)
	if err != nil {
		return fmt.Errorf("token: save %s: %w", tok.Ident, err)
	}
	return nil
}

// UpdateHash replaces the stored secret hash (rehash-on-upgrade).
func (r *PGRepository) UpdateHash(ctx context.Context, ident, hash string, modified time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE auth_tokens SET secret_hash = $2, last_modified = $3 WHERE ident = $1`,
		ident, hash, modified)
	if err != nil {
		return fmt.Errorf("token: update hash %s: %w", ident, err)
	}
	return nil
}

// Touch stamps the last-modified time after a successful verification.
func (r *PGRepository) Touch(ctx context.Context, ident string, modified time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE auth_tokens SET last_modified = $2 WHERE ident = $1`, ident, modified)
	if err != nil {
		return fmt.Errorf("token: touch %s: %w", ident, err)
	}
	return nil
}

// Delete removes a token by ident.
func (r *PGRepository) Delete(ctx context.Context, ident string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE ident = $1`, ident); err != nil {
		return fmt.Errorf("token: delete %s: %w", ident, err)
	}
	return nil
}

// DeleteBySubject removes every token belonging to a subject in one statement.
func (r *PGRepository) DeleteBySubject(ctx context.Context, subjectID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE subject_id = $1`, subjectID); err != nil {
		return fmt.Errorf("token: delete by subject: %w", err)
	}
	return nil
}

// Exists reports whether the auth_tokens table is present.
func (r *PGRepository) Exists(ctx context.Context) (bool, error) {
	var present bool
	if err := r.pool.QueryRow(ctx, `SELECT to_regclass('auth_tokens') IS NOT NULL`).Scan(&present); err != nil {
		return false, fmt.Errorf("token: table check: %w", err)
	}
	return present, nil
}

var _ Repository = (*PGRepository)(nil)
