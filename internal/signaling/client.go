package signaling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicemesh/signal-relay/internal/ratelimit"
)

// Time allowed to write a single frame (including pings) to the peer.
const writeWait = 10 * time.Second

// Client is the per-connection context: the WebSocket, the server-assigned
// id, and the outbound queue. All server-to-client frames pass through the
// queue and are written by a single goroutine, so delivery to one client is
// FIFO.
type Client struct {
	id   string
	conn *websocket.Conn
	log  *slog.Logger

	limiter *ratelimit.TokenBucket

	mu     sync.Mutex
	closed bool
	send   chan serverMessage
}

func newClient(conn *websocket.Conn, log *slog.Logger, queueLen int, limiter *ratelimit.TokenBucket) *Client {
	return &Client{
		conn:    conn,
		log:     log,
		limiter: limiter,
		send:    make(chan serverMessage, queueLen),
	}
}

// ID returns the server-assigned connection id, stable for the connection's
// lifetime.
func (c *Client) ID() string {
	return c.id
}

// enqueue hands a frame to the writer goroutine without blocking. It reports
// false when the queue is full or the client is closing; the caller decides
// what a failed delivery means.
func (c *Client) enqueue(msg serverMessage) bool {
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

// closeSend closes the outbound queue exactly once. The writer goroutine
// drains what was already queued, then writes a close frame and exits.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writeLoop is the sole writer on the connection: it drains the outbound
// queue and keeps the connection alive with periodic pings.
func (c *Client) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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
