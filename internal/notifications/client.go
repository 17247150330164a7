package notifications

import (
	"log/slog"
	"time"

	"bookswap/internal/middleware"
	"bookswap/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Socket keepalive. The server pings every pingEvery and drops a peer that
// has not answered within idleTimeout.
const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10
	inboundLimit = 4096
	outboxSize   = 64
)

// Client is one open socket of one profile. Events flow one way, server to
// browser. Inbound frames are read only to service pongs and detect closure.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn // nil when only the hub is exercised
	profile uuid.UUID
	outbox  chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, profile uuid.UUID) *Client {
	return &Client{hub: hub, conn: conn, profile: profile, outbox: make(chan []byte, outboxSize)}
}

// Serve pumps events to the socket until either side goes away, then removes
// the client from the hub. It blocks for the life of the connection.
func (c *Client) Serve() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop()
	}()

	c.readLoop()
	c.hub.UnregisterClient(c)
	<-done
}

func (c *Client) readLoop() {
	c.conn.SetReadLimit(inboundLimit)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) }
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket closed unexpectedly",
					slog.String("profile_id", c.profile.String()), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writeLoop exits when the outbox is closed by the hub or a write fails.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		var (
			kind    = websocket.PingMessage
			payload []byte
		)
		select {
		case msg, open := <-c.outbox:
			if !open {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind, payload = websocket.TextMessage, msg
		case <-ping.C:
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}

// TrySend queues msg without blocking. When the outbox is full the event is
// dropped; the browser re-fetches its notification list on reconnect.
func (c *Client) TrySend(msg []byte) bool {
	defer func() {
		// Sending on an outbox closed by a concurrent unregister.
		if recover() != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.outbox <- msg:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
		return false
	}
}
