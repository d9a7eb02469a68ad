// This file binds a Session to a gorilla/websocket connection: reading
// inbound frames into the dispatcher and writing queued envelopes out, with
// ping/pong liveness on the read side.
package chat

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// writeWait bounds a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long the read side tolerates silence before the
	// connection is considered dead.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait so pings arrive in time.
	pingPeriod = (pongWait * 9) / 10

	// maxFrameBytes bounds an inbound frame. Sized for the JSON framing
	// around a maximum-length message text.
	maxFrameBytes = 4 * MaxMessageChars
)

// Client pumps frames between one websocket connection and one session.
// ReadPump and WritePump each run in their own goroutine; either one exiting
// tears the connection down.
type Client struct {
	conn       *websocket.Conn
	session    *Session
	dispatcher *Dispatcher
	log        zerolog.Logger
}

// NewClient wires a websocket connection to an attached session.
func NewClient(conn *websocket.Conn, session *Session, dispatcher *Dispatcher, log zerolog.Logger) *Client {
	return &Client{
		conn:       conn,
		session:    session,
		dispatcher: dispatcher,
		log:        log,
	}
}

// ReadPump consumes inbound frames until the connection drops, submitting
// each message payload to the dispatcher. It detaches the session on exit,
// which in turn stops WritePump by closing the outbound channel.
func (c *Client) ReadPump() {
	defer func() {
		c.dispatcher.Detach(c.session)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Str("user_id", c.session.UserID).Msg("websocket closed unexpectedly")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Debug().Err(err).Str("user_id", c.session.UserID).Msg("dropping malformed frame")
			continue
		}
		if err := c.dispatcher.Submit(c.session, frame.Message); err != nil {
			if errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrMessageTooLong) {
				c.log.Debug().Err(err).Str("user_id", c.session.UserID).Msg("rejecting invalid message")
				continue
			}
			c.log.Error().Err(err).Str("user_id", c.session.UserID).Msg("message submission failed")
		}
	}
}

// WritePump drains the session's outbound queue onto the connection and keeps
// the peer alive with periodic pings. It exits when the queue closes (session
// detached) or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.session.Outbound():
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
		}
	}
}
