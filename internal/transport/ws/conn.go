package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 1 << 20
)

// wsConn owns one websocket. Writes happen only on writeLoop; Send just
// enqueues onto a bounded buffer.
type wsConn struct {
	id     string
	userID string
	name   string

	conn *websocket.Conn
	send chan Message

	closeOnce sync.Once
	closed    chan struct{}
}

func newWsConn(conn *websocket.Conn, id, userID, name string, buffer int) *wsConn {
	if buffer <= 0 {
		buffer = 64
	}
	return &wsConn{
		id:     id,
		userID: userID,
		name:   name,
		conn:   conn,
		send:   make(chan Message, buffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string     { return c.id }
func (c *wsConn) UserID() string { return c.userID }

// Send never blocks. A connection whose buffer is full is closed: the client
// reconnects and catches up through replay instead of silently missing
// messages.
func (c *wsConn) Send(msg Message) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.closed:
		return ErrConnClosed
	default:
		_ = c.Close()
		return ErrSlowConsumer
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	defer func() { _ = c.Close() }()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
