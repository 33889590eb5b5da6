// Package websocket wraps gorilla/websocket with the read/write deadline
// handling and upgrade plumbing the session orchestrator needs, grounded
// on the teacher's pkg/agent/transport/websocket server.
package websocket

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ReadTimeout bounds how long the receive loop waits for the next frame
// before giving up; refreshed after every successful read. It is kept
// comfortably above the registry's 600s ping interval plus its 10s pong
// grace period so an idle-but-alive connection is never dropped for
// silence alone.
const ReadTimeout = 630 * time.Second

// WriteTimeout bounds a single outbound frame write.
const WriteTimeout = 10 * time.Second

// Upgrader is the shared gorilla/websocket upgrader. Origin checking is
// left permissive; this system authenticates over signed headers, not
// browser same-origin policy.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },

	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ErrNotText is returned by ReadTextFrame when the peer sends a binary
// frame, which the protocol never expects.
var ErrNotText = errors.New("websocket: frame is not a text message")

// Conn wraps one upgraded socket.
type Conn struct {
	ws *websocket.Conn
}

// Upgrade promotes an HTTP request to a WebSocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

// ReadTextFrame blocks for the next frame, enforcing ReadTimeout, and
// requires it be a text frame.
func (c *Conn) ReadTextFrame() ([]byte, error) {
	if err := c.ws.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		return nil, err
	}
	messageType, payload, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if messageType != websocket.TextMessage {
		return nil, ErrNotText
	}
	return payload, nil
}

// WriteTextFrame writes one already-encoded frame.
func (c *Conn) WriteTextFrame(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// IsUnexpectedClose reports whether err represents an abnormal close
// worth logging, as opposed to a normal client-initiated disconnect.
func IsUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure)
}
