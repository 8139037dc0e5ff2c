package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront-chat-service/internal/models"
)

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID, senderID, content string) (models.ChatMessage, error)
	ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	MarkReadForRecipient(ctx context.Context, chatID, readerID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message with is_read=false.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID, senderID, content string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_messages (chat_id, sender_id, content) VALUES ($1, $2, $3)
        RETURNING id, seq, chat_id, sender_id, content, is_read, created_at`, chatID, senderID, content).
		StructScan(&msg)
	return msg, err
}

type messageRow struct {
	models.ChatMessage
	SenderName  string `db:"sender_name"`
	SenderEmail string `db:"sender_email"`
	SenderRole  string `db:"sender_role"`
}

// ListMessages returns the full thread ascending by creation time, with the
// insertion counter as tie-break, each message carrying its resolved sender.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	query := `SELECT m.id, m.seq, m.chat_id, m.sender_id, m.content, m.is_read, m.created_at,
            u.name AS sender_name, u.email AS sender_email, u.role AS sender_role
        FROM chat_messages m
        JOIN users u ON u.id = m.sender_id
        WHERE m.chat_id=$1
        ORDER BY m.created_at ASC, m.seq ASC`
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, chatID); err != nil {
		return nil, err
	}

	msgs := make([]models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msg := row.ChatMessage
		msg.Sender = &models.Sender{
			ID:    msg.SenderID,
			Name:  row.SenderName,
			Email: row.SenderEmail,
			Role:  row.SenderRole,
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// MarkReadForRecipient flips is_read on every message in the chat not
// authored by the reader. Idempotent: already-read rows are untouched.
func (r *MessageRepo) MarkReadForRecipient(ctx context.Context, chatID, readerID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chat_messages SET is_read=TRUE
        WHERE chat_id=$1 AND sender_id<>$2 AND is_read=FALSE`, chatID, readerID)
	return err
}

// UnreadCount counts unread messages addressed to the user across all of
// their chats.
func (r *MessageRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chat_messages m
        JOIN chats c ON c.id = m.chat_id
        WHERE (c.user_id=$1 OR c.super_admin_id=$1)
        AND m.sender_id<>$1 AND m.is_read=FALSE`, userID)
	return count, err
}
