package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/you/backoffice/domain"
)

const writeWait = 10 * time.Second

// WSConn adapts a websocket connection to domain.Conn. Writes are serialized
// because gorilla/websocket allows only one concurrent writer.
type WSConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws}
}

// Send writes msg as a JSON text frame.
func (c *WSConn) Send(msg domain.PushMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(msg)
}

func (c *WSConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// ReadLoop discards client frames until the peer goes away. It must run for
// control frames (ping, close) to be processed.
func (c *WSConn) ReadLoop() {
	for {
		if _, _, err := c.ws.NextReader(); err != nil {
			return
		}
	}
}

var _ domain.Conn = (*WSConn)(nil)
