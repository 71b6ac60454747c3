package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// sendQueueSize bounds how far a client may fall behind before it is
	// considered unresponsive and dropped during fan-out.
	sendQueueSize = 256

	writeTimeout = 10 * time.Second
)

// Client is the registry's handle to one open websocket connection. All
// outbound writes go through a single writer goroutine fed by a buffered
// queue, which serializes writes and preserves FIFO order per client.
type Client struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewClient wraps an upgraded websocket connection and starts its writer
// goroutine. Reading from the connection remains the caller's job.
func NewClient(conn *websocket.Conn) *Client {
	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	go c.writePump()

	return c
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr returns the remote network address of the connection.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Send enqueues one message for delivery. It never blocks; it reports false
// if the client is closed or its queue is full, in which case the message is
// not delivered.
func (c *Client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close shuts down the outbound queue. Idempotent. Queued messages are
// still flushed by the writer goroutine before the connection closes.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// The read loop observes the dead connection and removes the
			// client from the registry.
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}
