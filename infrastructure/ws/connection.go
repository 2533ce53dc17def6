package ws

import (
	"context"
	"dispatch-lab/contract"
	"dispatch-lab/errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Endpoint is the core side of one hub, runtime.Hub satisfies it.
type Endpoint interface {
	Connect(ctx context.Context, ch contract.Channel) (string, error)
	Receive(ctx context.Context, connID string, raw []byte) error
	Disconnect(ctx context.Context, connID string) error
}

// Connection wraps one upgraded socket.
// Outbound messages go through a bounded queue drained by writePump.
type Connection struct {
	log    *slog.Logger
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
	closed bool
}

func newConnection(log *slog.Logger, conn *websocket.Conn, bufferSize int) *Connection {
	return &Connection{
		log:  log,
		conn: conn,
		send: make(chan []byte, bufferSize),
	}
}

// Send enqueues message without blocking.
// A full queue drops the message for this connection only.
func (c *Connection) Send(ctx context.Context, message []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.ErrChannelClosed
	}
	select {
	case c.send <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %d messages queued", errors.ErrSendBufferFull, len(c.send))
	}
}

func (c *Connection) Writable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Close stops accepting messages, writePump flushes what is queued
// and sends a close frame.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// readPump forwards every text frame to the endpoint until the peer goes away.
func (c *Connection) readPump(ctx context.Context, endpoint Endpoint, connID string) {
	defer func() {
		if err := endpoint.Disconnect(context.Background(), connID); err != nil {
			c.log.Debug("Disconnect not queued", "conn_id", connID, "error", err)
		}
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected close", "conn_id", connID, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Debug("Non text frame ignored", "conn_id", connID, "type", messageType)
			continue
		}
		if err := endpoint.Receive(ctx, connID, message); err != nil {
			c.log.Debug("Message not queued", "conn_id", connID, "error", err)
			return
		}
	}
}

// writePump is the only writer of the socket.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("Write failed", "error", err)
				c.markClosed()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.markClosed()
				return
			}
		}
	}
}

// markClosed makes the connection non writable after a transport failure.
func (c *Connection) markClosed() {
	_ = c.Close()
	_ = c.conn.Close()
}
