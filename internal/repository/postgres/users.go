package postgres

import (
	"context"
	"fmt"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

// Create - новый пользователь; занятый email -> repository.ErrAlreadyExists
func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	const query = `
	INSERT INTO users (id, email, password_hash, created_at)
	VALUES ($1, $2, $3, $4)`

	if _, err := r.db.Exec(ctx, query, u.ID, u.Email, u.PasswordHash, u.CreatedAt); err != nil {
		if isDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT id::text, email, password_hash, created_at FROM users WHERE email = $1`

	var u domain.User
	err := r.db.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return domain.User{}, repository.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, hash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, userID, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
