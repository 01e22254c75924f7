package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db{pool: pool}}
}

// FindOrCreateUser inserts candidate unless a user with the same email exists
// and returns whichever row owns the email. Concurrent first orders for one
// email converge on a single row through the unique index.
func (r *UserRepository) FindOrCreateUser(ctx context.Context, candidate domain.User) (domain.User, error) {
	const stmt = `
INSERT INTO users (id, name, email, balance, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO NOTHING`

	_, err := r.exec(ctx, stmt,
		candidate.ID,
		candidate.Name,
		candidate.Email,
		candidate.Balance,
		candidate.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.User{}, domain.ErrInvalidID
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	const query = `
SELECT id, name, email, balance, COALESCE(token, ''), created_at
FROM users
WHERE email = $1`

	var u domain.User
	err = r.queryRow(ctx, query, candidate.Email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Balance, &u.Token, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateUserToken(ctx context.Context, userID, token string) error {
	const stmt = `UPDATE users SET token = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, userID, token)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update user token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
