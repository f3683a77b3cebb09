// Package session - client.go
//
// Implements the Client type and the per-connection goroutines that move
// framed JSON messages between a browser's WebSocket and the room it has
// joined. Each client runs a readPump and a writePump; readPump decodes
// an incoming frame into a Message and hands it to the room's router,
// writePump drains the client's outgoing buffer onto the wire.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/metrics"
	"go.uber.org/zap"
)

// wsConnection abstracts the gorilla/websocket connection so tests can
// substitute a fake without opening a real socket.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// Roomer is the subset of Room a Client depends on, kept as an
// interface so client tests can inject a fake room.
type Roomer interface {
	router(ctx context.Context, client *Client, msg *Message)
	handleClientDisconnect(c *Client)
}

// Client represents one user's WebSocket connection to a room. A user
// may hold more than one Client at a time (multiple tabs); the room's
// presence tracker merges them by UserID.
type Client struct {
	conn        wsConnection
	send        chan []byte
	room        Roomer
	UserID      UserIDType
	DisplayName DisplayNameType
	RoomID      RoomIDType

	mu        sync.RWMutex
	connected bool
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}

// Connected reports whether the underlying socket is still open.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readPump decodes one JSON frame per WebSocket text message and hands
// it to the room's router. It exits, and triggers disconnect cleanup,
// as soon as the connection errors or closes.
func (c *Client) readPump() {
	defer func() {
		c.setConnected(false)
		c.room.handleClientDisconnect(c)
		c.conn.Close()
		metrics.DecConnection()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn(context.Background(), "failed to decode message",
				zap.String("user_id", string(c.UserID)), zap.Error(err))
			continue
		}

		ctx := context.Background()
		c.room.router(ctx, c, &msg)
	}
}

// writePump drains the client's outgoing buffer onto the socket until
// it's closed, then sends a close frame.
func (c *Client) writePump() {
	defer c.conn.Close()
	const writeWait = 10 * time.Second

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logging.Warn(context.Background(), "error writing message",
				zap.String("user_id", string(c.UserID)), zap.Error(err))
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// sendMessage marshals and enqueues msg for delivery. It never blocks:
// a full send buffer means a slow client, and the message is dropped
// rather than stall the room.
func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error(context.Background(), "failed to marshal message", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		logging.Warn(context.Background(), "client send channel full",
			zap.String("user_id", string(c.UserID)))
	}
}
