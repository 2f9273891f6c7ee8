/*
 * file: connection.go
 * package: gateway
 * description:
 *     A single websocket connection: its identity, outbound send buffer,
 *     rate limiter, and read/write pumps. Adapted from the teacher's
 *     Client/readPump/writePump in services/websocket.go, generalized
 *     from a fixed 2-seat Tic-Tac-Toe client to an opaque identity
 *     connection that looks its current room up from the Room Manager
 *     instead of holding a mutable `room` field on itself (per the Design
 *     Notes on authoritative player_id -> room_id lookup).
 */
package gateway

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/juan10024/tictactoe-test/internal/core/players"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// connection is one websocket peer. playerID is assigned on connect and
// never changes; identify only attaches a display name to it.
type connection struct {
	gw   *Gateway
	conn *websocket.Conn
	send chan []byte

	playerID       players.ID
	displayName    string
	accountToken   string
	connectedAt    time.Time
	remoteAddr     string

	limiter *rate.Limiter

	subscribeMetrics bool
}

func newConnection(gw *Gateway, conn *websocket.Conn, playerID players.ID, rateLimitPerSecond, rateLimitBurst int) *connection {
	return &connection{
		gw:          gw,
		conn:        conn,
		send:        make(chan []byte, 256),
		playerID:    playerID,
		connectedAt: time.Now(),
		remoteAddr:  conn.RemoteAddr().String(),
		limiter:     rate.NewLimiter(rate.Limit(rateLimitPerSecond), rateLimitBurst),
	}
}

// enqueue pushes a pre-encoded envelope to the connection's outbound
// buffer, dropping it (and logging) rather than blocking if the buffer
// is full — the same backpressure policy the teacher's Hub.broadcast
// applies.
func (c *connection) enqueue(event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.gw.logger.WithFields(logrus.Fields{"event": event, "error": err}).Error("failed to marshal outbound payload")
		return
	}
	envelope, err := json.Marshal(map[string]any{"event": event, "payload": json.RawMessage(body)})
	if err != nil {
		return
	}
	select {
	case c.send <- envelope:
	default:
		c.gw.logger.WithFields(logrus.Fields{"player_id": c.playerID, "event": event}).
			Warn("dropping outbound message: connection send buffer full")
	}
}

func (c *connection) readPump() {
	defer func() {
		c.gw.onDisconnect(c)
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gw.logger.WithFields(logrus.Fields{"player_id": c.playerID, "error": err}).Debug("websocket read error")
			}
			return
		}

		if !c.gw.cfg.DevMode && !c.limiter.Allow() {
			c.enqueue("error", map[string]string{"code": "rate_limited", "message": "too many requests"})
			continue
		}

		start := time.Now()
		c.gw.dispatch(c, raw)
		if c.gw.monitor != nil {
			c.gw.monitor.ObserveInbound(time.Since(start))
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
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
