// Package client owns the consumer side of the chat connection: one
// persistent websocket per authenticated session, connection state, typed
// event subscriptions and the outbound chat actions.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"storefront-chat-service/internal/auth"
	"storefront-chat-service/internal/models"
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Handler receives the raw payload of a subscribed event.
type Handler func(data json.RawMessage)

// Store holds the single connection for a client session. Every outbound
// action is guarded by a must-be-connected precondition: calling one while
// logged out is a no-op, not an error, so UI races during logout are
// harmless.
type Store struct {
	url string

	mu            sync.RWMutex
	conn          *websocket.Conn
	writeMu       sync.Mutex
	state         State
	currentChatID string
	handlers      map[string][]Handler
}

// New builds a disconnected store pointing at the websocket endpoint.
func New(url string) *Store {
	return &Store{
		url:      url,
		state:    StateDisconnected,
		handlers: make(map[string][]Handler),
	}
}

// State returns the current connection state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// On subscribes a handler to an event such as message_received,
// user_typing, order_status_updated or new_order.
func (s *Store) On(event string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], fn)
}

// Connect opens the connection, presenting the signed access token the
// same way a browser would: as the accessToken cookie. Opening while
// already connected is a no-op.
func (s *Store) Connect(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	header := http.Header{}
	header.Set("Cookie", auth.CookieName+"="+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Disconnect ran while the dial was in flight; the session is
		// over, so the fresh connection is discarded.
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

// Disconnect tears the connection down, typically on logout.
func (s *Store) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.currentChatID = ""
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
}

// JoinChat signals intent to view a thread and remembers it as the
// current chat for Send and SetTyping.
func (s *Store) JoinChat(chatID string) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	s.currentChatID = chatID
	s.mu.Unlock()

	s.emit(models.EventJoinChat, chatID)
}

// Send delivers a message into the current chat.
func (s *Store) Send(content string) {
	s.mu.RLock()
	chatID := s.currentChatID
	connected := s.state == StateConnected
	s.mu.RUnlock()
	if !connected || chatID == "" {
		return
	}

	s.emit(models.EventSendMessage, models.SendMessagePayload{ChatID: chatID, Content: content})
}

// SetTyping tells other members of the current chat that the user is
// typing. Receivers expire the indicator after 3 seconds on their own.
func (s *Store) SetTyping() {
	s.mu.RLock()
	chatID := s.currentChatID
	connected := s.state == StateConnected
	s.mu.RUnlock()
	if !connected || chatID == "" {
		return
	}

	s.emit(models.EventTyping, chatID)
}

func (s *Store) emit(event string, data any) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	payload, err := json.Marshal(models.Event{Event: event, Data: raw})
	if err != nil {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Store) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.state = StateDisconnected
				s.currentChatID = ""
			}
			s.mu.Unlock()
			return
		}

		var event models.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}

		s.mu.RLock()
		handlers := make([]Handler, len(s.handlers[event.Event]))
		copy(handlers, s.handlers[event.Event])
		s.mu.RUnlock()

		for _, fn := range handlers {
			fn(event.Data)
		}
	}
}
