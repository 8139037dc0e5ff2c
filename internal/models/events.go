package models

import "encoding/json"

// Event is the websocket wire envelope, both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinChat    = "join_chat"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
)

// Outbound event names.
const (
	EventMessageReceived    = "message_received"
	EventUserTyping         = "user_typing"
	EventNewUserMessage     = "new_user_message"
	EventNewAdminMessage    = "new_admin_message"
	EventError              = "error"
	EventNewOrder           = "new_order"
	EventOrderStatusUpdated = "order_status_updated"
)

// SendMessagePayload is the body of a send_message event.
type SendMessagePayload struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

// UserTypingPayload is pushed to the other chat members while a
// participant types. Receivers expire it client-side after 3 seconds.
type UserTypingPayload struct {
	UserID string `json:"userId"`
}

// NewUserMessagePayload notifies the admin room of a user message without
// requiring the admin to have joined the chat room.
type NewUserMessagePayload struct {
	ChatID  string `json:"chatId"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// NewAdminMessagePayload notifies the user's direct room of an admin reply.
type NewAdminMessagePayload struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// ErrorPayload is surfaced only to the originating connection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried by ErrorPayload.
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodePersistence  = "PERSISTENCE"
	ErrCodeBadEvent     = "BAD_EVENT"
)

// NewOrderPayload is pushed to the admin room when an order is placed.
type NewOrderPayload struct {
	OrderID   string  `json:"orderId"`
	UserID    string  `json:"userId"`
	Total     float64 `json:"total"`
	CreatedAt string  `json:"createdAt"`
}

// OrderStatusPayload is pushed to the owning user's room on a status change.
type OrderStatusPayload struct {
	OrderID   string `json:"orderId"`
	NewStatus string `json:"newStatus"`
}
