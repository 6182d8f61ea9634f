package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/config"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Client is one admitted websocket connection. The gateway owns it for
// its whole lifetime; the presence registry only holds it as a
// delivery handle. The connection is receive-only from the browser's
// perspective — every inbound data frame is drained and discarded.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	cfg    config.WebSocketConfig

	mu     sync.Mutex
	closed bool
}

func newClient(id, userID string, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		cfg:    cfg,
	}
}

// ID implements presence.Handle.
func (c *Client) ID() string { return c.id }

// UserID returns the identity this connection was admitted as.
func (c *Client) UserID() string { return c.userID }

// Push implements presence.Handle. It queues data without blocking; a
// slow consumer whose buffer is full gets the error, and the caller
// decides whether that costs the connection.
func (c *Client) Push(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// close tears down the transport exactly once.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.conn.Close()
}

// readPump consumes inbound frames until the transport errors or
// closes, keeping the pong deadline fresh. onClose fires exactly once
// when the pump exits.
func (c *Client) readPump(onClose func(*Client)) {
	defer func() {
		onClose(c)
		c.close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		// Data frames are intentionally discarded: all client writes go
		// through the REST API, which is the system of record.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump flushes queued events and keeps the connection alive with
// periodic pings. A silent peer misses pongs and is reaped by the read
// deadline.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
