package live

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client pumps one subscriber's deltas down a websocket connection. Viewers
// and scorekeepers never send anything upstream on this socket; commands go
// through the HTTP surface.
type Client struct {
	hub    *Hub
	sub    *Subscriber
	conn   *websocket.Conn
	logger *slog.Logger
}

func NewClient(hub *Hub, sub *Subscriber, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{hub: hub, sub: sub, conn: conn, logger: logger}
}

// WritePump sends the initial backlog (full snapshot or replay tail), then
// streams deltas until the subscription or the connection dies.
func (c *Client) WritePump(initial []Delta) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for _, delta := range initial {
		if err := c.writeDelta(delta); err != nil {
			c.logger.Debug("live write failed",
				slog.Int("match_id", c.sub.MatchID), slog.Any("error", err))
			return
		}
	}

	for {
		select {
		case delta, ok := <-c.sub.C:
			if !ok {
				// Hub dropped us (slow consumer or room closed).
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeDelta(delta); err != nil {
				c.logger.Debug("live write failed",
					slog.Int("match_id", c.sub.MatchID), slog.Any("error", err))
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

func (c *Client) writeDelta(delta Delta) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	payload, err := json.Marshal(delta)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// ReadPump drains the connection to keep ping/pong alive and tears the
// subscription down when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("live connection closed unexpectedly",
					slog.Int("match_id", c.sub.MatchID), slog.Any("error", err))
			}
			return
		}
		// Inbound frames are ignored: this is a one-way feed.
	}
}
