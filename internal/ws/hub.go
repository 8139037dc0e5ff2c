package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"storefront-chat-service/internal/models"
	"storefront-chat-service/internal/observability"
)

// Room names. Membership is connection-scoped and rebuilt on every
// handshake; nothing here is persisted.
const AdminRoom = "admin"

// UserRoom is the per-user direct push room.
func UserRoom(userID string) string { return "user:" + userID }

// ChatRoom groups the connections currently viewing a thread.
func ChatRoom(chatID string) string { return "chat:" + chatID }

// Conn wraps a websocket connection with a write lock and handshake info.
type Conn struct {
	ws   *websocket.Conn
	mu   sync.Mutex
	Info ConnInfo
}

func (c *Conn) write(payload []byte) error {
	if c.ws == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close tears down the underlying transport.
func (c *Conn) Close() {
	if c.ws != nil {
		c.ws.Close()
	}
}

// Hub routes outbound events to named rooms. Delivery is best effort: an
// emit to an empty room or a closed connection is a silent no-op.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[string]map[*Conn]bool
	connRooms map[*Conn]map[string]bool
	log       *zap.SugaredLogger
}

// NewHub creates an empty hub.
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms:     make(map[string]map[*Conn]bool),
		connRooms: make(map[*Conn]map[string]bool),
		log:       log,
	}
}

// Register wraps an accepted websocket connection for routing.
func (h *Hub) Register(wsConn *websocket.Conn, info ConnInfo) *Conn {
	conn := &Conn{ws: wsConn, Info: info}
	h.mu.Lock()
	h.connRooms[conn] = make(map[string]bool)
	h.mu.Unlock()
	return conn
}

// JoinRoom adds the connection to a room. Joining twice is a no-op.
func (h *Hub) JoinRoom(conn *Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Conn]bool)
	}
	h.rooms[room][conn] = true
	if _, ok := h.connRooms[conn]; !ok {
		h.connRooms[conn] = make(map[string]bool)
	}
	h.connRooms[conn][room] = true
}

// LeaveRoom removes the connection from a room.
func (h *Hub) LeaveRoom(conn *Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn, room)
}

func (h *Hub) removeLocked(conn *Conn, room string) {
	if conns, ok := h.rooms[room]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.connRooms[conn]; ok {
		delete(rooms, room)
	}
}

// Drop removes the connection from every room it joined. Runs on
// transport close, normal or not.
func (h *Hub) Drop(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.connRooms[conn] {
		h.removeLocked(conn, room)
	}
	delete(h.connRooms, conn)
}

// RoomSize reports current membership of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// EmitToRoom delivers an event to every connection in the room.
func (h *Hub) EmitToRoom(room, event string, data any) {
	h.emit(room, nil, event, data)
}

// EmitToRoomExcept delivers to the room minus one connection, used for
// typing indicators where the sender is excluded.
func (h *Hub) EmitToRoomExcept(room string, except *Conn, event string, data any) {
	h.emit(room, except, event, data)
}

func (h *Hub) emit(room string, except *Conn, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		h.log.Errorw("encode event", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[room]))
	for conn := range h.rooms[room] {
		if conn != except {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.write(payload); err != nil {
			h.log.Warnw("websocket write failed", "room", room, "conn_id", conn.Info.ConnID, "err", err)
			conn.Close()
			h.Drop(conn)
			observability.IncWSEvent("ws_error")
		}
	}
}

// EmitToConn delivers an event to a single connection.
func (h *Hub) EmitToConn(conn *Conn, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		h.log.Errorw("encode event", "event", event, "err", err)
		return
	}
	if err := conn.write(payload); err != nil {
		conn.Close()
		h.Drop(conn)
	}
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Event{Event: event, Data: raw})
}
