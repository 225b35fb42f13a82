package protocol

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/esimkit/esimctl/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 64 << 10
)

// Conn sends and receives Messages over a websocket. Send is safe for
// concurrent use; Receive must be called from one goroutine.
type Conn struct {
	ws     *websocket.Conn
	remote string

	mu sync.Mutex
}

// NewConn wraps an established websocket.
func NewConn(ws *websocket.Conn) *Conn {
	ws.SetReadLimit(maxMessageSize)
	return &Conn{ws: ws, remote: ws.RemoteAddr().String()}
}

// RemoteAddr identifies the peer in logs.
func (c *Conn) RemoteAddr() string {
	return c.remote
}

// Send writes one message.
func (c *Conn) Send(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	logging.LogWebSocketMessage(c.remote, "sent", string(m.Type), data)
	return nil
}

// Receive reads the next message. Decode errors are returned together with
// whatever could be decoded, so the caller can still answer the ID.
func (c *Conn) Receive() (*Message, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	m, err := Decode(data)
	msgType := "invalid"
	if m != nil {
		msgType = string(m.Type)
	}
	logging.LogWebSocketMessage(c.remote, "received", msgType, data)
	return m, err
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.ws.Close()
}

// IsClosed reports whether err is a normal end of the connection.
func IsClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
