package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// PongWait is how long a silent client is kept before the read loop gives up.
	PongWait = 60 * time.Second
	// PingPeriod must stay below PongWait.
	PingPeriod = (PongWait * 9) / 10
)

// Conn serializes writes to a gorilla connection, which supports one
// concurrent writer at most.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// NewConn wraps c and installs the pong handler that extends the read deadline.
func NewConn(c *websocket.Conn) *Conn {
	c.SetReadDeadline(time.Now().Add(PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(PongWait))
	})
	return &Conn{Conn: c}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(errMsg string) error {
	return c.WriteTyped(ErrorResponse{Event: EventError, Error: errMsg})
}

// Ping sends a control ping.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ReadJSON reads and decodes a message, extending the read deadline.
func (c *Conn) ReadJSON(v interface{}) error {
	c.SetReadDeadline(time.Now().Add(PongWait))
	return c.Conn.ReadJSON(v)
}
