package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront-chat-service/internal/auth"
	"storefront-chat-service/internal/mocks"
	"storefront-chat-service/internal/models"
	"storefront-chat-service/internal/repositories"
)

const testSecret = "test-secret"

type socketFixture struct {
	server   *httptest.Server
	hub      *Hub
	presence *Presence
	verifier *auth.TokenVerifier
	chats    *mocks.ChatRepositoryMock
	messages *mocks.MessageRepositoryMock
	users    *mocks.UserRepositoryMock
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := &socketFixture{
		hub:      NewHub(zap.NewNop().Sugar()),
		presence: NewPresence(),
		verifier: auth.NewTokenVerifier(testSecret),
		chats:    new(mocks.ChatRepositoryMock),
		messages: new(mocks.MessageRepositoryMock),
		users:    new(mocks.UserRepositoryMock),
	}

	handler := NewSocketHandler(fx.hub, fx.presence, fx.chats, fx.messages, fx.users, fx.verifier, zap.NewNop().Sugar())
	router := gin.New()
	router.GET("/ws", handler.Handle)

	fx.server = httptest.NewServer(router)
	t.Cleanup(fx.server.Close)
	return fx
}

func (fx *socketFixture) wsURL() string {
	return "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/ws"
}

// dial opens a websocket for the identity and waits until the handshake
// finished registering rooms and presence.
func (fx *socketFixture) dial(t *testing.T, ident auth.Identity) *websocket.Conn {
	t.Helper()

	token, err := fx.verifier.Sign(ident, time.Minute)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Cookie", auth.CookieName+"="+token)
	conn, resp, err := websocket.DefaultDialer.Dial(fx.wsURL(), header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return fx.presence.IsOnline(ident.UserID)
	}, 2*time.Second, 10*time.Millisecond, "handshake never completed")
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(models.Event{Event: event, Data: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func TestHandshakeRejectsMissingCredential(t *testing.T) {
	fx := newSocketFixture(t)

	conn, resp, err := websocket.DefaultDialer.Dial(fx.wsURL(), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	fx := newSocketFixture(t)

	header := http.Header{}
	header.Set("Cookie", auth.CookieName+"=not-a-jwt")
	conn, resp, err := websocket.DefaultDialer.Dial(fx.wsURL(), header)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	fx := newSocketFixture(t)
	chat := models.Chat{ID: "chat-1", UserID: "u1", SuperAdminID: "a1", IsActive: true}
	now := time.Now().UTC()

	fx.chats.On("GetChat", mock.Anything, "chat-1").Return(chat, nil)
	fx.messages.On("CreateMessage", mock.Anything, "chat-1", "u1", "hello there").
		Return(models.ChatMessage{ID: "m1", ChatID: "chat-1", SenderID: "u1", Content: "hello there", CreatedAt: now}, nil)
	fx.chats.On("TouchLastMessage", mock.Anything, "chat-1", now).Return(nil)
	fx.users.On("GetUser", mock.Anything, "u1").
		Return(models.User{ID: "u1", Name: "Nora", Email: "nora@example.com", Role: "USER"}, nil)

	adminConn := fx.dial(t, auth.Identity{UserID: "a1", Email: "admin@example.com", Role: auth.RoleSuperAdmin})
	userConn := fx.dial(t, auth.Identity{UserID: "u1", Email: "nora@example.com", Role: auth.RoleUser})

	sendEvent(t, userConn, models.EventJoinChat, "chat-1")
	sendEvent(t, userConn, models.EventSendMessage, models.SendMessagePayload{ChatID: "chat-1", Content: "hello there"})

	// The sender sits in the chat room and gets the echo back.
	event := readEvent(t, userConn)
	require.Equal(t, models.EventMessageReceived, event.Event)
	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(event.Data, &msg))
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "hello there", msg.Content)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "Nora", msg.Sender.Name)

	// The admin never joined the chat room but is notified in the
	// broadcast group.
	notice := readEvent(t, adminConn)
	require.Equal(t, models.EventNewUserMessage, notice.Event)
	var payload models.NewUserMessagePayload
	require.NoError(t, json.Unmarshal(notice.Data, &payload))
	assert.Equal(t, "chat-1", payload.ChatID)
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, "hello there", payload.Message)

	fx.chats.AssertExpectations(t)
	fx.messages.AssertExpectations(t)
}

func TestSendMessageContextOutlivesHandshake(t *testing.T) {
	fx := newSocketFixture(t)
	chat := models.Chat{ID: "chat-1", UserID: "u1", SuperAdminID: "a1", IsActive: true}
	now := time.Now().UTC()

	ctxErrs := make(chan error, 1)
	fx.chats.On("GetChat", mock.Anything, "chat-1").Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		select {
		case ctxErrs <- ctx.Err():
		default:
		}
	}).Return(chat, nil)
	fx.messages.On("CreateMessage", mock.Anything, "chat-1", "u1", "still alive").
		Return(models.ChatMessage{ID: "m1", ChatID: "chat-1", SenderID: "u1", Content: "still alive", CreatedAt: now}, nil)
	fx.chats.On("TouchLastMessage", mock.Anything, "chat-1", now).Return(nil)
	fx.users.On("GetUser", mock.Anything, "u1").
		Return(models.User{ID: "u1", Name: "Nora", Email: "nora@example.com", Role: "USER"}, nil)

	conn := fx.dial(t, auth.Identity{UserID: "u1", Role: auth.RoleUser})

	// The handshake handler has returned by now and its request context
	// with it; the send must not be running on that dead context.
	time.Sleep(50 * time.Millisecond)
	sendEvent(t, conn, models.EventJoinChat, "chat-1")
	sendEvent(t, conn, models.EventSendMessage, models.SendMessagePayload{ChatID: "chat-1", Content: "still alive"})

	event := readEvent(t, conn)
	require.Equal(t, models.EventMessageReceived, event.Event)

	select {
	case err := <-ctxErrs:
		assert.NoError(t, err, "persistence saw a canceled context")
	case <-time.After(2 * time.Second):
		t.Fatal("repository was never called")
	}
}

func TestAdminReplyNotifiesUserRoom(t *testing.T) {
	fx := newSocketFixture(t)
	chat := models.Chat{ID: "chat-1", UserID: "u1", SuperAdminID: "a1", IsActive: true}
	now := time.Now().UTC()

	fx.chats.On("GetChat", mock.Anything, "chat-1").Return(chat, nil)
	fx.messages.On("CreateMessage", mock.Anything, "chat-1", "a1", "on it").
		Return(models.ChatMessage{ID: "m2", ChatID: "chat-1", SenderID: "a1", Content: "on it", CreatedAt: now}, nil)
	fx.chats.On("TouchLastMessage", mock.Anything, "chat-1", now).Return(nil)
	fx.users.On("GetUser", mock.Anything, "a1").
		Return(models.User{ID: "a1", Name: "Support", Email: "admin@example.com", Role: "SUPER_ADMIN"}, nil)

	userConn := fx.dial(t, auth.Identity{UserID: "u1", Role: auth.RoleUser})
	adminConn := fx.dial(t, auth.Identity{UserID: "a1", Role: auth.RoleSuperAdmin})

	sendEvent(t, adminConn, models.EventJoinChat, "chat-1")
	sendEvent(t, adminConn, models.EventSendMessage, models.SendMessagePayload{ChatID: "chat-1", Content: "on it"})

	// The user is not in the chat room; the reply reaches their direct room.
	notice := readEvent(t, userConn)
	require.Equal(t, models.EventNewAdminMessage, notice.Event)
	var payload models.NewAdminMessagePayload
	require.NoError(t, json.Unmarshal(notice.Data, &payload))
	assert.Equal(t, "chat-1", payload.ChatID)
	assert.Equal(t, "on it", payload.Message)
}

func TestSendMessageUnauthorized(t *testing.T) {
	fx := newSocketFixture(t)
	chat := models.Chat{ID: "chat-1", UserID: "someone-else", SuperAdminID: "a1"}
	fx.chats.On("GetChat", mock.Anything, "chat-1").Return(chat, nil)

	conn := fx.dial(t, auth.Identity{UserID: "u1", Role: auth.RoleUser})
	sendEvent(t, conn, models.EventSendMessage, models.SendMessagePayload{ChatID: "chat-1", Content: "hi"})

	event := readEvent(t, conn)
	require.Equal(t, models.EventError, event.Event)
	var payload models.ErrorPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, models.ErrCodeUnauthorized, payload.Code)

	fx.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageChatNotFound(t *testing.T) {
	fx := newSocketFixture(t)
	fx.chats.On("GetChat", mock.Anything, "missing").Return(nil, repositories.ErrChatNotFound)

	conn := fx.dial(t, auth.Identity{UserID: "u1", Role: auth.RoleUser})
	sendEvent(t, conn, models.EventSendMessage, models.SendMessagePayload{ChatID: "missing", Content: "hi"})

	event := readEvent(t, conn)
	require.Equal(t, models.EventError, event.Event)
	var payload models.ErrorPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, models.ErrCodeNotFound, payload.Code)
}

func TestMalformedEventReturnsError(t *testing.T) {
	fx := newSocketFixture(t)
	conn := fx.dial(t, auth.Identity{UserID: "u1", Role: auth.RoleUser})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	event := readEvent(t, conn)
	require.Equal(t, models.EventError, event.Event)
	var payload models.ErrorPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, models.ErrCodeBadEvent, payload.Code)
}

func TestUnknownEventReturnsError(t *testing.T) {
	fx := newSocketFixture(t)
	conn := fx.dial(t, auth.Identity{UserID: "u1", Role: auth.RoleUser})

	sendEvent(t, conn, "emote", "wave")

	event := readEvent(t, conn)
	require.Equal(t, models.EventError, event.Event)
	var payload models.ErrorPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, models.ErrCodeBadEvent, payload.Code)
}

func TestTypingExcludesSender(t *testing.T) {
	fx := newSocketFixture(t)
	sender := fx.dial(t, auth.Identity{UserID: "u1", Role: auth.RoleUser})
	viewer := fx.dial(t, auth.Identity{UserID: "a1", Role: auth.RoleSuperAdmin})

	sendEvent(t, sender, models.EventJoinChat, "chat-1")
	sendEvent(t, viewer, models.EventJoinChat, "chat-1")
	require.Eventually(t, func() bool {
		return fx.hub.RoomSize(ChatRoom("chat-1")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	sendEvent(t, sender, models.EventTyping, "chat-1")

	event := readEvent(t, viewer)
	require.Equal(t, models.EventUserTyping, event.Event)
	var payload models.UserTypingPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "u1", payload.UserID)
	assertNoEvent(t, sender)
}

func TestDisconnectClearsPresenceAndRooms(t *testing.T) {
	fx := newSocketFixture(t)
	conn := fx.dial(t, auth.Identity{UserID: "u1", Role: auth.RoleUser})

	sendEvent(t, conn, models.EventJoinChat, "chat-1")
	require.Eventually(t, func() bool {
		return fx.hub.RoomSize(ChatRoom("chat-1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return !fx.presence.IsOnline("u1") && fx.hub.RoomSize(ChatRoom("chat-1")) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, fx.hub.RoomSize(UserRoom("u1")))
}
