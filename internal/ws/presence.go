package ws

import "sync"

// Presence tracks which identities currently hold at least one live
// connection. Scoped to this process: it does not span multiple server
// instances. A production deployment across instances would back this
// with a shared external store.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]bool
}

// NewPresence creates an empty registry.
func NewPresence() *Presence {
	return &Presence{conns: make(map[string]map[*Conn]bool)}
}

// Register records a connection for the identity. Runs immediately after a
// successful handshake.
func (p *Presence) Register(userID string, conn *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.conns[userID]; !ok {
		p.conns[userID] = make(map[*Conn]bool)
	}
	p.conns[userID][conn] = true
}

// Unregister drops the connection. Runs on transport close, abnormal or not.
func (p *Presence) Unregister(userID string, conn *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conns, ok := p.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(p.conns, userID)
		}
	}
}

// IsOnline reports whether the identity holds at least one registered
// connection.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[userID]) > 0
}

// ListOnline returns the set of currently connected identities.
func (p *Presence) ListOnline() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	online := make([]string, 0, len(p.conns))
	for userID := range p.conns {
		online = append(online, userID)
	}
	return online
}
