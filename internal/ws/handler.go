package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"storefront-chat-service/internal/auth"
	"storefront-chat-service/internal/models"
	"storefront-chat-service/internal/observability"
	"storefront-chat-service/internal/repositories"
)

// SocketHandler authenticates websocket handshakes and drives the chat
// protocol state machine for each accepted connection.
type SocketHandler struct {
	hub      *Hub
	presence *Presence
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	verifier *auth.TokenVerifier
	log      *zap.SugaredLogger
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, presence *Presence, chats repositories.ChatRepository, messages repositories.MessageRepository, users repositories.UserRepository, verifier *auth.TokenVerifier, log *zap.SugaredLogger) *SocketHandler {
	return &SocketHandler{
		hub:      hub,
		presence: presence,
		chats:    chats,
		messages: messages,
		users:    users,
		verifier: verifier,
		log:      log,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// autoJoinRooms is the room assignment for a verified identity: everyone
// gets their direct room, super admins additionally join the broadcast group.
func autoJoinRooms(ident auth.Identity) []string {
	rooms := []string{UserRoom(ident.UserID)}
	switch ident.Role {
	case auth.RoleSuperAdmin:
		rooms = append(rooms, AdminRoom)
	case auth.RoleUser:
	}
	return rooms
}

// Handle verifies the credential, upgrades the connection and starts the
// read loop. Authentication failure is terminal for the attempt: the
// connection is rejected before any room join or event handling.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ident, err := h.verifier.FromRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed: " + err.Error()})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      ident.UserID,
		Email:       ident.Email,
		Role:        ident.Role,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	conn := h.hub.Register(wsConn, info)
	for _, room := range autoJoinRooms(ident) {
		h.hub.JoinRoom(conn, room)
	}
	h.presence.Register(ident.UserID, conn)

	h.log.Infow("user connected", "user_id", ident.UserID, "role", ident.Role, "conn_id", info.ConnID)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.chat",
		observability.NewEnvelope("ws_events", "ws_connect", connEventPayload(info, "ws_connect", "")),
		observability.BuildHeaders(info.RequestID, info.TraceID))

	// The request context is canceled as soon as this handler returns,
	// upgrade or not. The read loop outlives the request, so it gets a
	// detached context that still carries the handshake span.
	loopCtx := trace.ContextWithSpanContext(context.Background(), span.SpanContext())
	go h.readLoop(loopCtx, conn, ident)
}

func (h *SocketHandler) readLoop(ctx context.Context, conn *Conn, ident auth.Identity) {
	info := conn.Info
	var closeReason string
	defer func() {
		h.presence.Unregister(ident.UserID, conn)
		h.hub.Drop(conn)
		conn.Close()
		h.log.Infow("user disconnected", "user_id", ident.UserID, "conn_id", info.ConnID)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.chat",
			observability.NewEnvelope("ws_events", "ws_disconnect", connEventPayload(info, "ws_disconnect", closeReason)),
			observability.BuildHeaders(info.RequestID, info.TraceID))
	}()

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var event models.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			h.emitError(conn, models.ErrCodeBadEvent, "malformed event")
			continue
		}
		h.dispatch(ctx, conn, ident, event)
	}
}

func (h *SocketHandler) dispatch(ctx context.Context, conn *Conn, ident auth.Identity, event models.Event) {
	switch event.Event {
	case models.EventJoinChat:
		var chatID string
		if err := json.Unmarshal(event.Data, &chatID); err != nil || chatID == "" {
			h.emitError(conn, models.ErrCodeBadEvent, "join_chat requires a chat id")
			return
		}
		// Not authorization-checked at join time; membership is enforced
		// when a message is sent.
		h.hub.JoinRoom(conn, ChatRoom(chatID))
		observability.IncWSEvent("join_chat")

	case models.EventSendMessage:
		var payload models.SendMessagePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil || payload.ChatID == "" || payload.Content == "" {
			h.emitError(conn, models.ErrCodeBadEvent, "send_message requires chatId and content")
			return
		}
		h.handleSend(ctx, conn, ident, payload)

	case models.EventTyping:
		var chatID string
		if err := json.Unmarshal(event.Data, &chatID); err != nil || chatID == "" {
			h.emitError(conn, models.ErrCodeBadEvent, "typing requires a chat id")
			return
		}
		h.hub.EmitToRoomExcept(ChatRoom(chatID), conn, models.EventUserTyping, models.UserTypingPayload{UserID: ident.UserID})

	default:
		h.emitError(conn, models.ErrCodeBadEvent, "unknown event: "+event.Event)
	}
}

// handleSend runs the send state machine: existence check, participant
// check, persist, bump chat activity, fan out. Failures are reported only
// to the sender; persistence is at-most-once, the client re-sends if it
// never sees the echo.
func (h *SocketHandler) handleSend(ctx context.Context, conn *Conn, ident auth.Identity, payload models.SendMessagePayload) {
	chat, err := h.chats.GetChat(ctx, payload.ChatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			h.emitError(conn, models.ErrCodeNotFound, "chat not found")
			return
		}
		h.log.Errorw("load chat", "chat_id", payload.ChatID, "err", err)
		h.emitError(conn, models.ErrCodePersistence, "failed to send message")
		return
	}

	if ident.UserID != chat.UserID && ident.UserID != chat.SuperAdminID {
		h.emitError(conn, models.ErrCodeUnauthorized, "unauthorized to send message in this chat")
		return
	}

	msg, err := h.messages.CreateMessage(ctx, chat.ID, ident.UserID, payload.Content)
	if err != nil {
		h.log.Errorw("create message", "chat_id", chat.ID, "err", err)
		h.emitError(conn, models.ErrCodePersistence, "failed to send message")
		return
	}

	if err := h.chats.TouchLastMessage(ctx, chat.ID, msg.CreatedAt); err != nil {
		h.log.Errorw("touch last message", "chat_id", chat.ID, "err", err)
		h.emitError(conn, models.ErrCodePersistence, "failed to send message")
		return
	}

	msg.Sender = h.resolveSender(ctx, ident)

	h.hub.EmitToRoom(ChatRoom(chat.ID), models.EventMessageReceived, msg)
	observability.IncWSEvent("message_sent")

	switch ident.Role {
	case auth.RoleUser:
		h.hub.EmitToRoom(AdminRoom, models.EventNewUserMessage, models.NewUserMessagePayload{
			ChatID:  chat.ID,
			UserID:  ident.UserID,
			Message: payload.Content,
		})
	case auth.RoleSuperAdmin:
		h.hub.EmitToRoom(UserRoom(chat.UserID), models.EventNewAdminMessage, models.NewAdminMessagePayload{
			ChatID:  chat.ID,
			Message: payload.Content,
		})
	}
}

// resolveSender fills the sender block of a broadcast message. The account
// row is the source for the display name; identity fields cover a lookup
// failure so the broadcast never blocks on it.
func (h *SocketHandler) resolveSender(ctx context.Context, ident auth.Identity) *models.Sender {
	sender := &models.Sender{ID: ident.UserID, Email: ident.Email, Role: string(ident.Role)}
	if user, err := h.users.GetUser(ctx, ident.UserID); err == nil {
		sender.Name = user.Name
		sender.Email = user.Email
	}
	return sender
}

func (h *SocketHandler) emitError(conn *Conn, code, message string) {
	h.hub.EmitToConn(conn, models.EventError, models.ErrorPayload{Code: code, Message: message})
}

func connEventPayload(info ConnInfo, event, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"role":    string(info.Role),
			"ip":      info.IP,
		},
	}
}
