package ws

import (
	"sync"
)

type Conn interface {
	Send(msg Message) error
	Close() error
}

// UserChannel returns the personal channel name for a user. Every
// authenticated connection joins it; user-targeted events land here.
func UserChannel(userID string) string { return "user:" + userID }

// Hub tracks which connections sit in which rooms. A chat room and a
// personal channel are the same thing to the hub, only the name differs.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // room -> set of connections
	conns map[Conn]map[string]struct{} // connection -> set of rooms
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[Conn]struct{}),
		conns: make(map[Conn]map[string]struct{}),
	}
}

func (h *Hub) Join(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[room] = rs
	}
	rs[c] = struct{}{}

	cs, ok := h.conns[c]
	if !ok {
		cs = make(map[string]struct{})
		h.conns[c] = cs
	}
	cs[room] = struct{}{}
}

func (h *Hub) Leave(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c Conn, room string) {
	if rs, ok := h.rooms[room]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, room)
		}
	}
	if cs, ok := h.conns[c]; ok {
		delete(cs, room)
		if len(cs) == 0 {
			delete(h.conns, c)
		}
	}
}

// RemoveConn drops the connection from every room it joined.
func (h *Hub) RemoveConn(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.conns[c] {
		if rs, ok := h.rooms[room]; ok {
			delete(rs, c)
			if len(rs) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.conns, c)
}

func (h *Hub) Broadcast(room string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[room]; ok {
		for c := range rs {
			_ = c.Send(msg) // best-effort
		}
	}
}

// EmitToRoom and EmitToUser make the hub the realtime publisher the
// services fan events through.
func (h *Hub) EmitToRoom(room, event string, payload any) {
	h.Broadcast(room, Message{Type: event, Payload: payload})
}

func (h *Hub) EmitToUser(userID, event string, payload any) {
	h.Broadcast(UserChannel(userID), Message{Type: event, Payload: payload})
}
