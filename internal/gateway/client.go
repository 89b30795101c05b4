package gateway

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var errClientGone = errors.New("gateway: client disconnected")

// Client represents a single WebSocket peer receiving one run stream.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	gone chan struct{} // closed when the read side fails
	done chan struct{} // closed when writePump returns
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		gone: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// enqueue blocks until msg is queued or the peer goes away.
// A run stream must deliver every day, so nothing is dropped.
func (c *Client) enqueue(msg []byte) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.gone:
		return errClientGone
	case <-c.done:
		return errClientGone
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run complete"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.gone:
			return
		}
	}
}

// readPump only services control frames; the stream is server to client.
func (c *Client) readPump() {
	defer close(c.gone)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
