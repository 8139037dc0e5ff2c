package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"storefront-chat-service/internal/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNoAdminAvailable = errors.New("no admin available")
)

// UserRepository exposes the account lookups the chat core needs.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	FirstSuperAdmin(ctx context.Context) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches an account by id.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, name, email, role, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// FirstSuperAdmin returns the oldest SUPER_ADMIN account. Arbitrary but
// deterministic within one query; chats are not load-balanced across admins.
func (r *UserRepo) FirstSuperAdmin(ctx context.Context) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, name, email, role, created_at FROM users WHERE role='SUPER_ADMIN' ORDER BY created_at ASC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNoAdminAvailable
	}
	return user, err
}
