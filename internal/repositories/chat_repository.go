package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront-chat-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	FindOrCreateChat(ctx context.Context, userID, superAdminID string) (models.Chat, error)
	ListChatsForUser(ctx context.Context, userID string) ([]models.ChatSummary, error)
	ListAllChats(ctx context.Context, adminID string) ([]models.ChatSummary, error)
	TouchLastMessage(ctx context.Context, chatID string, at time.Time) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, user_id, super_admin_id, is_active, last_message_at, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// FindOrCreateChat returns the existing thread between the pair or creates one.
func (r *ChatRepo) FindOrCreateChat(ctx context.Context, userID, superAdminID string) (models.Chat, error) {
	var chat models.Chat
	query := `SELECT id, user_id, super_admin_id, is_active, last_message_at, created_at FROM chats WHERE user_id=$1 AND super_admin_id=$2`
	err := r.db.GetContext(ctx, &chat, query, userID, superAdminID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, err
	}

	err = r.db.QueryRowxContext(ctx, `INSERT INTO chats (user_id, super_admin_id) VALUES ($1, $2)
        ON CONFLICT (user_id, super_admin_id) DO UPDATE SET is_active = TRUE
        RETURNING id, user_id, super_admin_id, is_active, last_message_at, created_at`, userID, superAdminID).
		StructScan(&chat)
	return chat, err
}

const chatSummaryColumns = `c.id, c.user_id, c.super_admin_id, c.is_active, c.last_message_at, c.created_at,
        (SELECT m.content FROM chat_messages m WHERE m.chat_id=c.id ORDER BY m.created_at DESC, m.seq DESC LIMIT 1) AS last_message,
        (SELECT COUNT(*) FROM chat_messages m WHERE m.chat_id=c.id AND m.sender_id<>$1 AND m.is_read=FALSE) AS unread_count`

// ListChatsForUser returns the user's threads, most recent activity first.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	var chats []models.ChatSummary
	query := `SELECT ` + chatSummaryColumns + ` FROM chats c WHERE c.user_id=$1 ORDER BY c.last_message_at DESC`
	err := r.db.SelectContext(ctx, &chats, query, userID)
	return chats, err
}

// ListAllChats returns every thread, for the admin back office. Unread
// counts are computed against the requesting admin.
func (r *ChatRepo) ListAllChats(ctx context.Context, adminID string) ([]models.ChatSummary, error) {
	var chats []models.ChatSummary
	query := `SELECT ` + chatSummaryColumns + ` FROM chats c ORDER BY c.last_message_at DESC`
	err := r.db.SelectContext(ctx, &chats, query, adminID)
	return chats, err
}

// TouchLastMessage bumps the chat's last-activity marker. Concurrent sends
// into the same chat race here; last write wins.
func (r *ChatRepo) TouchLastMessage(ctx context.Context, chatID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chats SET last_message_at=$2 WHERE id=$1`, chatID, at)
	return err
}
