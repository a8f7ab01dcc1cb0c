// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snaparena/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

// Identity carries the identity-mirror fields of a verified Telegram login.
type Identity struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
	PhotoURL   string
}

// UserRepository handles user profile persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const profileColumns = `telegram_id, first_name, last_name, username, photo_url,
		balance, created_at, last_login_at, updated_at`

// Upsert reconciles a verified identity against the persisted profile in a
// single conditional write. A first login inserts the row with the starting
// balance and created_at = last_login_at = now; a returning login overwrites
// only the identity-mirror fields and last_login_at, leaving balance and
// created_at untouched. The create-vs-update branch is decided by the
// database, so two concurrent logins for the same Telegram id can never
// create two profiles or double-apply the starting grant.
// Returns the post-write row and whether it was newly created.
func (r *UserRepository) Upsert(ctx context.Context, identity Identity, startingBalance int64) (*model.UserProfile, bool, error) {
	const query = `
		INSERT INTO users (telegram_id, first_name, last_name, username, photo_url,
			balance, created_at, last_login_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), NOW())
		ON CONFLICT (telegram_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			photo_url = EXCLUDED.photo_url,
			last_login_at = NOW(),
			updated_at = NOW()
		RETURNING ` + profileColumns + `, (xmax = 0) AS created
	`

	var user model.UserProfile
	var created bool
	err := r.pool.QueryRow(ctx, query,
		identity.TelegramID,
		identity.FirstName,
		identity.LastName,
		identity.Username,
		identity.PhotoURL,
		startingBalance,
	).Scan(
		&user.TelegramID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.PhotoURL,
		&user.Balance,
		&user.CreatedAt,
		&user.LastLoginAt,
		&user.UpdatedAt,
		&created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &user, created, nil
}

// GetByID retrieves a profile by its Telegram ID.
// Returns ErrUserNotFound if the profile does not exist.
func (r *UserRepository) GetByID(ctx context.Context, telegramID int64) (*model.UserProfile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM users
		WHERE telegram_id = $1
	`

	var user model.UserProfile
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(
		&user.TelegramID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.PhotoURL,
		&user.Balance,
		&user.CreatedAt,
		&user.LastLoginAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Exists checks if a profile with the given Telegram ID exists.
func (r *UserRepository) Exists(ctx context.Context, telegramID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE telegram_id = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}
