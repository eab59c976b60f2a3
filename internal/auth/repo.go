package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaic-cms/mosaic-auth/internal/shared"
)

// Repository defines persistence operations for user accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findWhere(ctx, "email = $1", email)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findWhere(ctx, "id = $1", id)
}

func (r *PGRepository) findWhere(ctx context.Context, clause string, arg any) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, roles, is_active, created_at, updated_at
		FROM users WHERE `+clause, arg)

	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Roles, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
