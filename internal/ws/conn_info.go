package ws

import (
	"time"

	"storefront-chat-service/internal/auth"
)

// ConnInfo describes one live connection. The identity fields are fixed at
// handshake time and never change for the connection's lifetime.
type ConnInfo struct {
	ConnID      string
	UserID      string
	Email       string
	Role        auth.Role
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
