package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-chat-service/internal/auth"
	"storefront-chat-service/internal/middleware"
	"storefront-chat-service/internal/models"
	"storefront-chat-service/internal/repositories"
)

// PresenceReader answers online queries for room listings.
type PresenceReader interface {
	IsOnline(userID string) bool
}

// ChatHandler manages the HTTP chat surface.
type ChatHandler struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	presence PresenceReader
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats repositories.ChatRepository, messages repositories.MessageRepository, users repositories.UserRepository, presence PresenceReader) *ChatHandler {
	return &ChatHandler{
		chats:    chats,
		messages: messages,
		users:    users,
		presence: presence,
	}
}

// ListRooms returns the chats visible to the caller: all of them for a
// super admin, only their own for a regular user. Each row carries the
// other party's online flag.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var (
		chats []models.ChatSummary
		err   error
	)
	switch ident.Role {
	case auth.RoleSuperAdmin:
		chats, err = h.chats.ListAllChats(c.Request.Context(), ident.UserID)
	default:
		chats, err = h.chats.ListChatsForUser(c.Request.Context(), ident.UserID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	for i := range chats {
		switch ident.Role {
		case auth.RoleSuperAdmin:
			online := h.presence.IsOnline(chats[i].UserID)
			chats[i].IsUserOnline = &online
		default:
			online := h.presence.IsOnline(chats[i].SuperAdminID)
			chats[i].IsAdminOnline = &online
		}
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// CreateRoom opens (or returns) the caller's support thread with the first
// available super admin. Only regular users may initiate chats.
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if ident.Role != auth.RoleUser {
		c.JSON(http.StatusForbidden, gin.H{"error": "only users can initiate chats with admin"})
		return
	}

	admin, err := h.users.FirstSuperAdmin(c.Request.Context())
	if err != nil {
		if errors.Is(err, repositories.ErrNoAdminAvailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no admin available for chat"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to find admin"})
		return
	}

	chat, err := h.chats.FindOrCreateChat(c.Request.Context(), ident.UserID, admin.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// GetMessages returns the full thread ascending by creation time and, as a
// side effect, marks every message not authored by the caller as read.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	chatID := c.Param("chat_id")

	chat, err := h.chats.GetChat(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	if ident.UserID != chat.UserID && ident.UserID != chat.SuperAdminID {
		c.JSON(http.StatusForbidden, gin.H{"error": "you don't have access to this chat"})
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	if err := h.messages.MarkReadForRecipient(c.Request.Context(), chatID, ident.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update read state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// UnreadCount returns the caller's unread message count across all chats.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	count, err := h.messages.UnreadCount(c.Request.Context(), ident.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}
