package token

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository on Redis hashes. A per-subject set
// indexes idents so subject-wide revocation stays a single pipelined call.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository constructs a Redis repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func tokenKey(ident string) string {
	return "authtoken:" + ident
}

func subjectKey(subjectID string) string {
	return "authtoken:subject:" + subjectID
}

// Load fetches a token by ident.
func (r *RedisRepository) Load(ctx context.Context, ident string) (*AuthToken, error) {
	fields, err := r.client.HGetAll(ctx, tokenKey(ident)).Result()
	if err != nil {
		return nil, fmt.Errorf("token: load %s: %w", ident, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	tok := &AuthToken{
		Ident:      ident,
		SecretHash: fields["secret_hash"],
		SubjectID:  fields["subject_id"],
	}
	for name, dst := range map[string]*time.Time{
		"expiry":        &tok.Expiry,
		"created":       &tok.Created,
		"last_modified": &tok.LastModified,
	} {
		if raw := fields[name]; raw != "" {
			parsed, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return nil, fmt.Errorf("token: load %s: bad %s: %w", ident, name, err)
			}
			*dst = parsed
		}
	}
	return tok, nil
}

// Save inserts a token record and indexes it under its subject.
func (r *RedisRepository) Save(ctx context.Context, tok *AuthToken) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, tokenKey(tok.Ident), map[string]any{
		"secret_hash":   tok.SecretHash,
		"subject_id":    tok.SubjectID,
		"expiry":        tok.Expiry.Format(time.RFC3339Nano),
		"created":       tok.Created.Format(time.RFC3339Nano),
		"last_modified": tok.LastModified.Format(time.RFC3339Nano),
	})
	pipe.SAdd(ctx, subjectKey(tok.SubjectID), tok.Ident)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("token: save %s: %w", tok.Ident, err)
	}
	return nil
}

// UpdateHash replaces the stored secret hash.
func (r *RedisRepository) UpdateHash(ctx context.Context, ident, hash string, modified time.Time) error {
	err := r.client.HSet(ctx, tokenKey(ident), map[string]any{
		"secret_hash":   hash,
		"last_modified": modified.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("token: update hash %s: %w", ident, err)
	}
	return nil
}

// Touch stamps the last-modified time.
func (r *RedisRepository) Touch(ctx context.Context, ident string, modified time.Time) error {
	err := r.client.HSet(ctx, tokenKey(ident), "last_modified", modified.Format(time.RFC3339Nano)).Err()
	if err != nil {
		return fmt.Errorf("token: touch %s: %w", ident, err)
	}
	return nil
}

// Delete removes a token and its subject index entry.
func (r *RedisRepository) Delete(ctx context.Context, ident string) error {
	subjectID, err := r.client.HGet(ctx, tokenKey(ident), "subject_id").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("token: delete %s: %w", ident, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, tokenKey(ident))
	if subjectID != "" {
		pipe.SRem(ctx, subjectKey(subjectID), ident)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("token: delete %s: %w", ident, err)
	}
	return nil
}

// DeleteBySubject removes every token belonging to a subject.
func (r *RedisRepository) DeleteBySubject(ctx context.Context, subjectID string) error {
	idents, err := r.client.SMembers(ctx, subjectKey(subjectID)).Result()
	if err != nil {
		return fmt.Errorf("token: delete by subject: %w", err)
	}

	pipe := r.client.TxPipeline()
	for _, ident := range idents {
		pipe.Del(ctx, tokenKey(ident))
	}
	pipe.Del(ctx, subjectKey(subjectID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("token: delete by subject: %w", err)
	}
	return nil
}

// Exists reports whether the store is reachable. Redis has no table to
// create, so reachability is the whole check.
func (r *RedisRepository) Exists(ctx context.Context) (bool, error) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return false, fmt.Errorf("token: ping: %w", err)
	}
	return true, nil
}

var _ Repository = (*RedisRepository)(nil)
