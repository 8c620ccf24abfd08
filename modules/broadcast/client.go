package broadcast

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Keepalive defaults.
const (
	DefaultWriteWait  = 10 * time.Second
	DefaultPongWait   = 60 * time.Second
	DefaultPingPeriod = (DefaultPongWait * 9) / 10
)

// Conn is the subset of *websocket.Conn the write pump needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one live socket and its outbound queue. Frames are written
// only by WritePump.
type Client struct {
	ID   string
	conn Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient wraps conn with a queue holding up to buffer frames.
func NewClient(id string, conn Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

// enqueue queues data without blocking. It reports false when the queue
// is full or already closed.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeQueue stops accepting frames. WritePump drains what is left, sends
// a close frame and closes the socket.
func (c *Client) closeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Closed reports whether the queue has been closed.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WritePump writes queued frames to the socket and pings it every
// pingPeriod. It returns when the queue is closed or a write fails, and
// always closes the socket on the way out.
func (c *Client) WritePump(writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
