package models

import "time"

// Chat is a 1:1 support thread between a regular user and a super admin.
type Chat struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"userId"`
	SuperAdminID  string    `db:"super_admin_id" json:"superAdminId"`
	IsActive      bool      `db:"is_active" json:"isActive"`
	LastMessageAt time.Time `db:"last_message_at" json:"lastMessageAt"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// ChatSummary is the room-list view of a chat: the chat row plus the
// latest message preview and the caller's unread count.
type ChatSummary struct {
	Chat
	LastMessage *string `db:"last_message" json:"lastMessage,omitempty"`
	UnreadCount int     `db:"unread_count" json:"unreadCount"`

	// Presence flags, filled by the handler from the registry.
	IsUserOnline  *bool `db:"-" json:"isUserOnline,omitempty"`
	IsAdminOnline *bool `db:"-" json:"isAdminOnline,omitempty"`
}
