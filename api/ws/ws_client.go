// Package ws is the bidirectional-socket front end (spec §4.5, §6.3):
// it attaches a socket connection to a Session as a Subscriber,
// dispatches decoded frames into the Session's apply_* operations, and
// drains the Subscriber's outbound queue back to the wire.
package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkboard/boardserver/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024 * 16
)

// Client is the middleman between one websocket connection and its
// bound Session's Subscriber. ReadPump reads raw inbound frames and
// hands them to Handler's dispatch for decoding; WritePump drains the Subscriber's outbound
// queue (session.Subscriber.Out()) to the wire.
type Client struct {
	conn *websocket.Conn
	sub  *session.Subscriber
	sess *session.Session
}

// NewClient binds conn to sess as sub.
func NewClient(conn *websocket.Conn, sess *session.Session, sub *session.Subscriber) *Client {
	return &Client{conn: conn, sess: sess, sub: sub}
}

// ReadPump reads frames off the connection and passes each to
// dispatch until the connection errors or closes, then runs the
// detach sequence. It must run in its own goroutine; it owns the
// connection's read side for the lifetime of the client.
func (c *Client) ReadPump(dispatch func(raw []byte)) {
	defer func() {
		c.sess.Detach(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		dispatch(raw)
	}
}

// WritePump drains the subscriber's outbound queue to the connection,
// interleaving periodic pings, until the queue is closed (detach), a
// write fails, or shutdownCtx is done — in which case it sends a clean
// close frame instead of leaving the connection to be reset under the
// deploy.
func (c *Client) WritePump(shutdownCtx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	out := c.sub.Out()
	for {
		select {
		case frame, ok := <-out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-shutdownCtx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			)
			return
		}
	}
}
