package models

import "time"

// ChatMessage is a persisted message. Immutable after creation except for
// IsRead, which flips when the other participant fetches the thread.
// Seq is an insertion counter used as the ordering tie-break when two
// messages share a creation timestamp.
type ChatMessage struct {
	ID        string    `db:"id" json:"id"`
	Seq       int64     `db:"seq" json:"-"`
	ChatID    string    `db:"chat_id" json:"chatId"`
	SenderID  string    `db:"sender_id" json:"senderId"`
	Content   string    `db:"content" json:"content"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Sender *Sender `db:"-" json:"sender,omitempty"`
}
