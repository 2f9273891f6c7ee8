/*
 * file: gateway.go
 * package: gateway
 * description:
 *     The Transport Gateway (component I): websocket upgrade, origin
 *     validation, connection registry, and Manager-event fan-out. The
 *     upgrade + connection bookkeeping is adapted from the teacher's
 *     Hub (register/unregister/rooms map), generalized from a
 *     room-keyed client set to a player-id-keyed connection set, since
 *     the Room Manager — not the gateway — now owns room membership.
 */
package gateway

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/juan10024/tictactoe-test/internal/adapters/dto"
	"github.com/juan10024/tictactoe-test/internal/core/monitor"
	"github.com/juan10024/tictactoe-test/internal/core/players"
	"github.com/juan10024/tictactoe-test/internal/core/registry"
	"github.com/juan10024/tictactoe-test/internal/core/room"
)

// Config tunes gateway-level policy.
type Config struct {
	DevMode        bool
	AllowedOrigins []string
	RoomListFlush  time.Duration
	MetricsCadence time.Duration

	// RateLimitPerSecond/RateLimitBurst tune each connection's inbound
	// token bucket; DevMode bypasses enforcement entirely regardless of
	// these values.
	RateLimitPerSecond int
	RateLimitBurst     int
}

// Gateway owns the websocket upgrade path and every live connection.
type Gateway struct {
	manager  *room.Manager
	registry *registry.Registry
	monitor  *monitor.Monitor
	logger   *logrus.Logger
	cfg      Config

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[players.ID]*connection

	roomListVersion uint64
	roomListDirty   atomic.Bool
}

// New constructs a Gateway bound to the Room Manager, Plugin Registry
// and Resource Monitor.
func New(manager *room.Manager, reg *registry.Registry, mon *monitor.Monitor, logger *logrus.Logger, cfg Config) *Gateway {
	if cfg.RoomListFlush == 0 {
		cfg.RoomListFlush = 50 * time.Millisecond
	}
	if cfg.MetricsCadence == 0 {
		cfg.MetricsCadence = 3 * time.Second
	}
	if cfg.RateLimitPerSecond == 0 {
		cfg.RateLimitPerSecond = 20
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 40
	}
	gw := &Gateway{
		manager:  manager,
		registry: reg,
		monitor:  mon,
		logger:   logger,
		cfg:      cfg,
		conns:    make(map[players.ID]*connection),
	}
	gw.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     gw.checkOrigin,
	}
	return gw
}

func (gw *Gateway) checkOrigin(r *http.Request) bool {
	if gw.cfg.DevMode {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients (no Origin header) are not subject to this check
	}
	for _, allowed := range gw.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	gw.logger.WithFields(logrus.Fields{"origin": origin}).Warn("rejected websocket upgrade: origin not allowed")
	return false
}

// ServeHTTP upgrades the request and starts the connection's pumps.
func (gw *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := gw.upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.logger.WithFields(logrus.Fields{"error": err}).Warn("websocket upgrade failed")
		return
	}

	playerID := players.ID(uuid.New().String())
	c := newConnection(gw, conn, playerID, gw.cfg.RateLimitPerSecond, gw.cfg.RateLimitBurst)

	gw.mu.Lock()
	gw.conns[playerID] = c
	gw.mu.Unlock()

	c.enqueue("availableGames", dto.FromDefinitions(gw.registry.List()))
	gw.sendRoomListTo(c)

	go c.writePump()
	go c.readPump()
}

func (gw *Gateway) onDisconnect(c *connection) {
	gw.mu.Lock()
	delete(gw.conns, c.playerID)
	gw.mu.Unlock()

	if roomID, ok := gw.manager.RoomOf(c.playerID); ok {
		if err := gw.manager.Disconnect(roomID, c.playerID); err != nil {
			gw.logger.WithFields(logrus.Fields{"player_id": c.playerID, "room_id": roomID, "error": err}).
				Debug("disconnect cleanup failed")
		}
	}
}

func (gw *Gateway) connectionFor(id players.ID) (*connection, bool) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	c, ok := gw.conns[id]
	return c, ok
}

func (gw *Gateway) sendRoomListTo(c *connection) {
	views := gw.manager.ListRooms()
	entries := make([]dto.RoomListEntry, 0, len(views))
	for _, v := range views {
		entries = append(entries, dto.RoomListEntry{
			RoomID:      v.RoomID,
			GameType:    v.GameID,
			Mode:        v.Mode,
			PlayerCount: len(v.Players),
			MaxPlayers:  v.MaxPlayers,
			HostID:      v.HostID,
		})
	}
	version := atomic.LoadUint64(&gw.roomListVersion)
	c.enqueue("updateRoomList", dto.UpdateRoomListPayload{
		Version:   version,
		Rooms:     entries,
		Timestamp: time.Now(),
	})
}

func (gw *Gateway) broadcastRoomList() {
	atomic.AddUint64(&gw.roomListVersion, 1)

	gw.mu.RLock()
	conns := make([]*connection, 0, len(gw.conns))
	for _, c := range gw.conns {
		conns = append(conns, c)
	}
	gw.mu.RUnlock()

	for _, c := range conns {
		gw.sendRoomListTo(c)
	}
}

// runRoomListCoalescer flushes at most one updateRoomList broadcast per
// tick, collapsing any number of roomCreated/roomUpdated/roomRemoved
// events that land within the same window — the §4.5 "coalesced if
// multiple arrive within the same scheduler cycle" rule.
func (gw *Gateway) runRoomListCoalescer(stop <-chan struct{}) {
	ticker := time.NewTicker(gw.cfg.RoomListFlush)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if gw.roomListDirty.CompareAndSwap(true, false) {
				gw.broadcastRoomList()
			}
		}
	}
}

func (gw *Gateway) markRoomListDirty() {
	gw.roomListDirty.Store(true)
}

// Run starts the Manager event pump and room-list coalescer. Blocks
// until stop is closed.
func (gw *Gateway) Run(stop <-chan struct{}) {
	events, unsubscribe := gw.manager.Subscribe()
	defer unsubscribe()

	go gw.runRoomListCoalescer(stop)
	go gw.runMetricsPusher(stop)
	go gw.runRegistryPusher(stop)

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			gw.handleManagerEvent(ev)
		}
	}
}

// membersOf resolves the connections belonging to a room, preferring the
// player list carried on the event itself (avoids a redundant Manager
// round trip for events that already snapshot it) and falling back to a
// fresh RoomView for events that only carry a RoomID.
func (gw *Gateway) membersOf(ev room.Event) []*connection {
	var ids []players.ID
	if len(ev.Room.Players) > 0 || ev.Room.RoomID != "" {
		for _, rec := range ev.Room.Players {
			ids = append(ids, rec.ID)
		}
	} else if ev.RoomID != "" {
		if v, err := gw.manager.RoomView(ev.RoomID); err == nil {
			for _, rec := range v.Players {
				ids = append(ids, rec.ID)
			}
		}
	}

	out := make([]*connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := gw.connectionFor(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func (gw *Gateway) handleManagerEvent(ev room.Event) {
	start := time.Now()
	defer func() {
		if gw.monitor != nil {
			gw.monitor.ObserveOutbound(time.Since(start))
		}
	}()

	switch ev.Kind {
	case room.KindRoomCreated, room.KindRoomUpdated, room.KindRoomRemoved:
		gw.markRoomListDirty()
		if ev.Kind != room.KindRoomRemoved {
			gw.broadcastRoomState(ev)
		}
	case room.KindPlayerLeft:
		payload, _ := ev.Payload.(room.PlayerLeftPayload)
		for _, c := range gw.membersOf(ev) {
			c.enqueue("playerLeft", dto.PlayerLeftPayload{Reason: payload.Reason})
		}
		gw.broadcastRoomState(ev)
	case room.KindGameStarted:
		payload, _ := ev.Payload.(room.GameStartedPayload)
		wire := dto.GameStartPayload{
			GameState: payload.GameState,
			Players:   dto.FromRoomView(ev.Room).Players,
			GameID:    payload.GameID,
			Mode:      ev.Room.Mode,
		}
		for _, c := range gw.membersOf(ev) {
			c.enqueue("gameStart", wire)
		}
	case room.KindGameStateUpdate:
		payload, _ := ev.Payload.(room.GameStateUpdatePayload)
		wire := dto.GameStateUpdatePayload{State: payload.State, Version: payload.Version, Context: payload.Context}
		for _, c := range gw.membersOf(ev) {
			c.enqueue("gameStateUpdate", wire)
		}
	case room.KindRoundEnd:
		payload, _ := ev.Payload.(room.RoundEndPayload)
		for _, c := range gw.membersOf(ev) {
			c.enqueue("roundEnd", dto.RoundEndPayload{Data: payload.Data})
		}
	case room.KindRoomClosing:
		payload, _ := ev.Payload.(room.RoomClosingPayload)
		for _, c := range gw.membersOf(ev) {
			c.enqueue("roomClosing", dto.RoomClosingPayload{
				RoomID: ev.RoomID, Reason: payload.Reason, SecondsRemaining: payload.SecondsRemaining,
			})
		}
	}

	if ev.Kind == room.KindRoomRemoved {
		payload, _ := ev.Payload.(room.RoomClosedPayload)
		for _, c := range gw.membersOf(ev) {
			c.enqueue("roomClosed", dto.RoomClosedPayload{RoomID: ev.RoomID, Reason: payload.Reason})
		}
	}
}

func (gw *Gateway) broadcastRoomState(ev room.Event) {
	wire := dto.FromRoomView(ev.Room)
	for _, c := range gw.membersOf(ev) {
		c.enqueue("roomStateUpdate", wire)
	}
}
