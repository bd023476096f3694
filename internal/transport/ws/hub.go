package ws

import (
	"errors"
	"sync"

	"github.com/Rambha123/voxspace/internal/domain"
	"github.com/Rambha123/voxspace/internal/metrics"
)

var (
	ErrUnknownConn  = errors.New("connection not registered")
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("connection send buffer full")
)

// Conn is a live push connection. Send must not block.
type Conn interface {
	ID() string
	UserID() string
	Send(msg Message) error
	Close() error
}

type entry struct {
	conn  Conn
	rooms map[string]struct{}
}

// Hub is the connection registry: which connections are open and which rooms
// each one is subscribed to. All methods are safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*entry          // connID -> connection + its rooms
	rooms map[string]map[string]Conn // roomID -> connID -> connection
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*entry),
		rooms: make(map[string]map[string]Conn),
	}
}

// Register makes c known with no subscriptions. Registering the same id
// again replaces the connection and keeps its rooms.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.conns[c.ID()]; ok {
		e.conn = c
		for room := range e.rooms {
			h.rooms[room][c.ID()] = c
		}
		return
	}
	h.conns[c.ID()] = &entry{conn: c, rooms: make(map[string]struct{})}
	metrics.WSConnections.Inc()
}

// Unregister drops the connection and every subscription it held.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.conns[connID]
	if !ok {
		return
	}
	for room := range e.rooms {
		h.removeLocked(room, connID)
	}
	delete(h.conns, connID)
	metrics.WSConnections.Dec()
}

// Join subscribes the connection to room. It reports false when the
// connection was already subscribed, in which case nothing changes.
func (h *Hub) Join(connID, room string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.conns[connID]
	if !ok {
		return false, ErrUnknownConn
	}
	if _, joined := e.rooms[room]; joined {
		return false, nil
	}
	e.rooms[room] = struct{}{}

	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[string]Conn)
		h.rooms[room] = rs
	}
	rs[connID] = e.conn
	return true, nil
}

// Leave is a no-op for rooms never joined and for unknown connections.
func (h *Hub) Leave(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.conns[connID]
	if !ok {
		return
	}
	if _, joined := e.rooms[room]; !joined {
		return
	}
	delete(e.rooms, room)
	h.removeLocked(room, connID)
}

func (h *Hub) removeLocked(room, connID string) {
	if rs, ok := h.rooms[room]; ok {
		delete(rs, connID)
		if len(rs) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) Subscribed(connID, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.conns[connID]
	if !ok {
		return false
	}
	_, joined := e.rooms[room]
	return joined
}

func (h *Hub) Rooms(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.conns[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.rooms))
	for room := range e.rooms {
		out = append(out, room)
	}
	return out
}

func (h *Hub) Subscribers(room string) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rs := h.rooms[room]
	out := make([]Conn, 0, len(rs))
	for _, c := range rs {
		out = append(out, c)
	}
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast delivers msg to every current subscriber of room and returns the
// number of successful deliveries. Subscribers are snapshotted under the
// read lock and written to outside it; a connection that has closed or
// cannot keep up is skipped.
func (h *Hub) Broadcast(room string, msg Message) int {
	delivered := 0
	for _, c := range h.Subscribers(room) {
		if err := c.Send(msg); err != nil {
			metrics.Deliveries.WithLabelValues("dropped").Inc()
			continue
		}
		delivered++
	}
	return delivered
}

// Publish wraps a stored message as receiveMessage for its room.
func (h *Hub) Publish(m domain.Message) int {
	return h.Broadcast(m.Room, Message{Type: TypeReceiveMessage, Payload: m})
}

// CloseAll closes every registered connection; used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for _, e := range h.conns {
		conns = append(conns, e.conn)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
