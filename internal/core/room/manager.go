/*
 * file: manager.go
 * package: room
 * description:
 *     Owns every Room keyed by room id (component G). Creates/deletes
 *     rooms, routes joins/ready-toggles/start/commands/undo/leave, emits
 *     room-lifecycle events, and runs the periodic sweep. The
 *     authoritative player_id -> room_id lookup lives here (never on a
 *     connection struct), per the Design Notes on replacing a
 *     per-connection mutable "currentRoom" with authoritative lookup.
 */
package room

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/juan10024/tictactoe-test/internal/core/apperr"
	"github.com/juan10024/tictactoe-test/internal/core/command"
	"github.com/juan10024/tictactoe-test/internal/core/players"
	"github.com/juan10024/tictactoe-test/internal/core/ports"
	"github.com/juan10024/tictactoe-test/internal/core/registry"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
	"github.com/juan10024/tictactoe-test/internal/core/state"
)

// PlayerLimits overrides a plugin's declared min/max players for one room.
type PlayerLimits struct {
	Min int
	Max int
}

// CreateRoomRequest is the input to Manager.CreateRoom.
type CreateRoomRequest struct {
	HostID          players.ID
	HostDisplayName string
	HostMetadata    map[string]string
	GameID          string
	Mode            string
	PreferredRoomID string
	PlayerLimits    *PlayerLimits
	Metadata        map[string]string
}

// Config tunes the Manager's janitor policy.
type Config struct {
	IDPrefix                string
	GraceWindow             time.Duration
	IdleWindow              time.Duration
	SweepInterval           time.Duration
	StartSingleFlightWindow time.Duration
}

func (c *Config) applyDefaults() {
	if c.IDPrefix == "" {
		c.IDPrefix = "room"
	}
	if c.GraceWindow == 0 {
		c.GraceWindow = 5 * time.Minute
	}
	if c.IdleWindow == 0 {
		c.IdleWindow = 30 * time.Minute
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 60 * time.Second
	}
	if c.StartSingleFlightWindow == 0 {
		c.StartSingleFlightWindow = 2 * time.Second
	}
}

// Manager is the Room Manager (component G).
type Manager struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	playerIndex map[players.ID]string

	registry *registry.Registry
	repo     ports.Repository
	logger   *logrus.Logger
	cfg      Config

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// NewManager constructs a Manager bound to a plugin registry and an
// optional repository (nil is valid: persistence is best-effort already,
// a nil repo simply skips it).
func NewManager(reg *registry.Registry, repo ports.Repository, logger *logrus.Logger, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		rooms:       make(map[string]*Room),
		playerIndex: make(map[players.ID]string),
		registry:    reg,
		repo:        repo,
		logger:      logger,
		cfg:         cfg,
		subs:        make(map[int]chan Event),
	}
}

// Subscribe registers a new event observer (the Transport Gateway).
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Event, 256)
	m.subs[id] = ch
	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if existing, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(existing)
		}
	}
}

func (m *Manager) publish(ev Event) {
	m.subMu.Lock()
	subs := make([]chan Event, 0, len(m.subs))
	for _, ch := range m.subs {
		subs = append(subs, ch)
	}
	m.subMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			m.logger.WithFields(logrus.Fields{"room_id": ev.RoomID, "kind": ev.Kind}).
				Warn("dropping manager event: subscriber buffer full")
		}
	}
}

// Run drives the periodic sweep until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) generateRoomID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return m.cfg.IDPrefix + "_" + raw[:8]
}

// CreateRoom validates the game id, resolves a room id (routing a
// colliding p2p invite code to JoinRoom instead of failing), and seats
// the host as the room's first, ready member.
func (m *Manager) CreateRoom(req CreateRoomRequest) (View, error) {
	def, ok := m.registry.Get(req.GameID)
	if !ok {
		return View{}, apperr.NotFound("unknown_game", "no rules plugin is registered for this game id")
	}

	if m.hasPlayer(req.HostID) {
		if existingRoomID, _ := m.RoomOf(req.HostID); existingRoomID != req.PreferredRoomID || req.Mode != "p2p" {
			return View{}, apperr.Conflict("already_in_room", "player is already a member of another room")
		}
	}

	useExisting := req.Mode == "p2p" && req.PreferredRoomID != ""
	var roomID string
	if useExisting {
		roomID = req.PreferredRoomID
		m.mu.RLock()
		_, exists := m.rooms[roomID]
		m.mu.RUnlock()
		if exists {
			return m.JoinRoom(roomID, req.HostID, req.HostDisplayName, req.HostMetadata)
		}
	} else {
		roomID = m.generateRoomID()
	}

	min, max := def.MinPlayers, def.MaxPlayers
	if req.PlayerLimits != nil {
		min, max = req.PlayerLimits.Min, req.PlayerLimits.Max
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["mode"] = req.Mode

	now := time.Now()

	m.mu.Lock()
	if _, exists := m.rooms[roomID]; exists {
		m.mu.Unlock()
		return m.JoinRoom(roomID, req.HostID, req.HostDisplayName, req.HostMetadata)
	}
	r := newRoom(roomID, req.HostID, req.GameID, req.Mode, metadata, min, max, now)
	r.logger = m.logger
	m.rooms[roomID] = r
	m.playerIndex[req.HostID] = roomID
	m.mu.Unlock()

	var view View
	if !r.exec(func() {
		rec, _ := r.Players.Add(req.HostID, req.HostDisplayName, req.HostMetadata, now)
		rec.IsReady = true
		view = r.snapshot()
	}) {
		return View{}, apperr.NotFound("not_found", "room was deleted before it could be created")
	}

	m.publish(Event{Kind: KindRoomCreated, RoomID: roomID, Room: view})
	return view, nil
}

func (m *Manager) hasPlayer(id players.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.playerIndex[id]
	return ok
}

// RoomOf returns the room currently holding playerID, if any.
func (m *Manager) RoomOf(playerID players.ID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.playerIndex[playerID]
	return roomID, ok
}

func (m *Manager) lookup(roomID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// JoinRoom adds a player to an existing room. Re-joining with the same id
// (e.g. a grace reconnect) is idempotent and clears any pending grace
// entry.
func (m *Manager) JoinRoom(roomID string, playerID players.ID, displayName string, metadata map[string]string) (View, error) {
	r, ok := m.lookup(roomID)
	if !ok {
		return View{}, apperr.NotFound("not_found", "room does not exist")
	}

	if existingRoomID, already := m.RoomOf(playerID); already && existingRoomID != roomID {
		return View{}, apperr.Conflict("already_in_room", "player is already a member of another room")
	}

	var (
		view    View
		joinErr error
	)
	if !r.exec(func() {
		if r.IsClosing {
			joinErr = apperr.Conflict("closing", "room is closing")
			return
		}
		now := time.Now()
		if _, err := r.Players.Add(playerID, displayName, metadata, now); err != nil {
			joinErr = err
			return
		}
		delete(r.DisconnectGrace, playerID)
		r.LastActivity = now
		view = r.snapshot()
	}) {
		return View{}, apperr.NotFound("not_found", "room does not exist")
	}
	if joinErr != nil {
		return View{}, joinErr
	}

	m.mu.Lock()
	m.playerIndex[playerID] = roomID
	m.mu.Unlock()

	m.publish(Event{Kind: KindRoomUpdated, RoomID: roomID, Room: view})
	return view, nil
}

// mutateReady implements SetReady/ToggleReady. Per spec, ready-flag
// changes during an active game are ignored, not rejected: no event is
// published and the prior view is returned unchanged.
func (m *Manager) mutateReady(roomID string, playerID players.ID, fn func(*players.Set) error) (View, error) {
	r, ok := m.lookup(roomID)
	if !ok {
		return View{}, apperr.NotFound("not_found", "room does not exist")
	}

	var (
		view      View
		mutateErr error
		ignored   bool
	)
	if !r.exec(func() {
		if r.hasActiveGame() {
			ignored = true
			view = r.snapshot()
			return
		}
		if err := fn(r.Players); err != nil {
			mutateErr = err
			return
		}
		r.LastActivity = time.Now()
		view = r.snapshot()
	}) {
		return View{}, apperr.NotFound("not_found", "room does not exist")
	}
	if mutateErr != nil {
		return View{}, mutateErr
	}
	if ignored {
		return view, nil
	}
	m.publish(Event{Kind: KindRoomUpdated, RoomID: roomID, Room: view})
	return view, nil
}

// SetReady sets the caller's ready flag.
func (m *Manager) SetReady(roomID string, playerID players.ID, ready bool) (View, error) {
	return m.mutateReady(roomID, playerID, func(ps *players.Set) error {
		_, err := ps.SetReady(playerID, ready)
		return err
	})
}

// ToggleReady flips the caller's ready flag.
func (m *Manager) ToggleReady(roomID string, playerID players.ID) (View, error) {
	return m.mutateReady(roomID, playerID, func(ps *players.Set) error {
		_, err := ps.ToggleReady(playerID)
		return err
	})
}

// StartGame attaches a fresh StateContainer and Command Bus built from
// the room's plugin, subscribes the Manager to forward its events, and
// assigns per-player roles the plugin returned.
func (m *Manager) StartGame(roomID string, playerID players.ID, options map[string]any) (View, error) {
	r, ok := m.lookup(roomID)
	if !ok {
		return View{}, apperr.NotFound("not_found", "room does not exist")
	}

	var (
		view     View
		startErr error
		payload  GameStartedPayload
	)
	if !r.exec(func() {
		if r.HostID != playerID {
			startErr = apperr.Authorization("not_host", "only the host may start the game")
			return
		}
		if !r.Players.IsReadyToStart() {
			startErr = apperr.Capacity("not_ready", "not enough ready players to start")
			return
		}
		now := time.Now()
		if !r.lastStartAttempt.IsZero() && now.Sub(r.lastStartAttempt) < m.cfg.StartSingleFlightWindow {
			startErr = apperr.Conflict("game_already_starting", "a start request for this room is already in flight")
			return
		}
		r.lastStartAttempt = now

		def, ok := m.registry.Get(r.GameID)
		if !ok {
			startErr = apperr.NotFound("unknown_game", "rules plugin is no longer registered")
			return
		}

		recs := r.Players.List()
		ctx := rules.RoomContext{RoomID: r.ID, Players: recs, Metadata: r.Metadata, Options: options}
		initial, strategies := def.Plugin.Create(ctx)

		// The plugin assigns roles (e.g. color) on the RoomContext.Players
		// slice it receives; copy any assigned role back onto the live set.
		for _, rec := range recs {
			if rec.Role == "" {
				continue
			}
			if live, ok := r.Players.Get(rec.ID); ok {
				live.Role = rec.Role
			}
		}

		container := state.New(initial)
		bus := command.New(container, r.Players, strategies)
		r.Container = container
		r.Bus = bus
		r.Plugin = def.Plugin

		stateCh, unsubState := container.Subscribe()
		roundCh, unsubRound := container.SubscribeRoundEnd()
		r.unsubState = unsubState
		r.unsubRound = unsubRound
		go m.pumpStateChanges(r.ID, stateCh)
		go m.pumpRoundEnd(r.ID, roundCh)

		r.LastActivity = now
		view = r.snapshot()
		payload = GameStartedPayload{GameState: initial, GameID: r.GameID}
	}) {
		return View{}, apperr.NotFound("not_found", "room does not exist")
	}
	if startErr != nil {
		return View{}, startErr
	}

	m.publish(Event{Kind: KindGameStarted, RoomID: roomID, Room: view, Payload: payload})
	return view, nil
}

func (m *Manager) pumpStateChanges(roomID string, ch <-chan state.Change) {
	for change := range ch {
		m.publish(Event{
			Kind:   KindGameStateUpdate,
			RoomID: roomID,
			Payload: GameStateUpdatePayload{
				State:   change.State,
				Version: change.Version,
				Context: change.Context,
			},
		})
		if m.repo == nil {
			continue
		}
		gameID := ""
		if r, ok := m.lookup(roomID); ok {
			gameID = r.GameID
		}
		go func(c state.Change, gameID string) {
			if err := m.repo.Save(roomID, gameID, c.Version, c.State); err != nil {
				m.logger.WithFields(logrus.Fields{"room_id": roomID, "version": c.Version, "error": err}).
					Warn("repository save failed; state remains authoritative in memory")
			}
		}(change, gameID)
	}
}

func (m *Manager) pumpRoundEnd(roomID string, ch <-chan state.RoundEnd) {
	for ev := range ch {
		m.publish(Event{Kind: KindRoundEnd, RoomID: roomID, Payload: RoundEndPayload{Data: ev.Payload}})
	}
}

// SubmitCommand dispatches a command descriptor through the room's
// Command Bus.
func (m *Manager) SubmitCommand(roomID string, descriptor rules.CommandDescriptor) error {
	r, ok := m.lookup(roomID)
	if !ok {
		return apperr.NotFound("not_found", "room does not exist")
	}

	var (
		dispatchErr error
		view        View
		ran         bool
	)
	if !r.exec(func() {
		if !r.hasActiveGame() {
			dispatchErr = apperr.GameNotActive("game_not_active", "room has no active game")
			return
		}
		if _, err := r.Bus.Dispatch(descriptor); err != nil {
			dispatchErr = err
			return
		}
		r.LastActivity = time.Now()
		view = r.snapshot()
		ran = true
	}) {
		return apperr.NotFound("not_found", "room does not exist")
	}
	if dispatchErr != nil {
		return dispatchErr
	}
	if ran {
		m.publish(Event{Kind: KindRoomUpdated, RoomID: roomID, Room: view})
	}
	return nil
}

// UndoLast pops and reverses the top undo record for a room.
func (m *Manager) UndoLast(roomID string, playerID players.ID) error {
	r, ok := m.lookup(roomID)
	if !ok {
		return apperr.NotFound("not_found", "room does not exist")
	}

	var undoErr error
	if !r.exec(func() {
		if !r.hasActiveGame() {
			undoErr = apperr.GameNotActive("game_not_active", "room has no active game")
			return
		}
		if _, err := r.Bus.UndoLast(playerID); err != nil {
			undoErr = err
			return
		}
		r.LastActivity = time.Now()
	}) {
		return apperr.NotFound("not_found", "room does not exist")
	}
	return undoErr
}

// LeaveRoom removes a player immediately: promotes a new host if the
// leaver was host, deletes the room if it becomes empty, and closes a
// room whose live game drops below the plugin's minimum player count.
func (m *Manager) LeaveRoom(roomID string, playerID players.ID, reason string) error {
	r, ok := m.lookup(roomID)
	if !ok {
		return apperr.NotFound("not_found", "room does not exist")
	}

	var (
		view        View
		removed     bool
		becameEmpty bool
		needsClose  bool
	)
	if !r.exec(func() {
		_, removed = r.Players.Remove(playerID)
		if !removed {
			return
		}
		delete(r.DisconnectGrace, playerID)
		r.LastActivity = time.Now()

		if r.Players.Len() == 0 {
			r.IsClosing = true
			becameEmpty = true
		} else {
			if r.HostID == playerID {
				next, _ := r.Players.Earliest()
				r.HostID = next
			}
			if r.hasActiveGame() && r.Players.Len() < r.Players.Min() {
				r.IsClosing = true
				needsClose = true
			}
		}
		view = r.snapshot()
	}) {
		return apperr.NotFound("not_found", "room does not exist")
	}
	if !removed {
		return apperr.NotFound("unknown_player", "player is not a member of this room")
	}

	m.mu.Lock()
	delete(m.playerIndex, playerID)
	m.mu.Unlock()

	m.publish(Event{Kind: KindPlayerLeft, RoomID: roomID, Room: view, Payload: PlayerLeftPayload{Reason: reason}})

	switch {
	case becameEmpty:
		return m.DeleteRoom(roomID, "empty")
	case needsClose:
		m.publish(Event{Kind: KindRoomClosing, RoomID: roomID, Room: view,
			Payload: RoomClosingPayload{Reason: "insufficient_players", SecondsRemaining: 1}})
		go func() {
			time.Sleep(1100 * time.Millisecond)
			_ = m.DeleteRoom(roomID, "insufficient_players")
		}()
		return nil
	default:
		m.publish(Event{Kind: KindRoomUpdated, RoomID: roomID, Room: view})
		return nil
	}
}

// Disconnect is called by the transport gateway on socket loss. During an
// active game the seat is held via the grace table for reconnect; in the
// lobby it is an immediate leave (there is nothing yet worth protecting).
func (m *Manager) Disconnect(roomID string, playerID players.ID) error {
	r, ok := m.lookup(roomID)
	if !ok {
		return apperr.NotFound("not_found", "room does not exist")
	}

	var immediate bool
	if !r.exec(func() {
		if r.hasActiveGame() {
			r.DisconnectGrace[playerID] = time.Now()
			return
		}
		immediate = true
	}) {
		return nil
	}
	if immediate {
		return m.LeaveRoom(roomID, playerID, "disconnected")
	}
	return nil
}

// DeleteRoom detaches any live game, removes the room from the map, asks
// the repository to forget it (best-effort), and stops the room's
// single-writer goroutine.
func (m *Manager) DeleteRoom(roomID string, reason string) error {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return apperr.NotFound("not_found", "room does not exist")
	}
	delete(m.rooms, roomID)
	m.mu.Unlock()

	var view View
	r.exec(func() {
		r.IsClosing = true
		r.detachGame()
		view = r.snapshot()
	})

	m.mu.Lock()
	for _, rec := range view.Players {
		if m.playerIndex[rec.ID] == roomID {
			delete(m.playerIndex, rec.ID)
		}
	}
	m.mu.Unlock()

	r.stop()

	if m.repo != nil {
		if err := m.repo.Remove(roomID); err != nil {
			m.logger.WithFields(logrus.Fields{"room_id": roomID, "error": err}).
				Warn("repository remove failed")
		}
	}

	m.publish(Event{Kind: KindRoomRemoved, RoomID: roomID, Room: view, Payload: RoomClosedPayload{Reason: reason}})
	return nil
}

// RoomView returns an immutable snapshot of one room.
func (m *Manager) RoomView(roomID string) (View, error) {
	r, ok := m.lookup(roomID)
	if !ok {
		return View{}, apperr.NotFound("not_found", "room does not exist")
	}
	var v View
	if !r.exec(func() { v = r.snapshot() }) {
		return View{}, apperr.NotFound("not_found", "room does not exist")
	}
	return v, nil
}

// ListRooms returns the lobby-visible room set: lan-mode, not full, not
// mid-teardown. Invite-only p2p rooms never appear.
func (m *Manager) ListRooms() []View {
	m.mu.RLock()
	roomsCopy := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		roomsCopy = append(roomsCopy, r)
	}
	m.mu.RUnlock()

	out := make([]View, 0, len(roomsCopy))
	for _, r := range roomsCopy {
		var v View
		if !r.exec(func() { v = r.snapshot() }) {
			// room was deleted between the map snapshot and exec; skip it.
			continue
		}
		if v.Mode != "lan" || v.IsClosing {
			continue
		}
		if len(v.Players) >= r.Players.Max() {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Counts reports live totals for the Resource Monitor's periodic sample:
// room count, rooms with an attached game, and total seated players.
func (m *Manager) Counts() (roomCount, activeGames, playerCount int) {
	m.mu.RLock()
	roomsCopy := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		roomsCopy = append(roomsCopy, r)
	}
	m.mu.RUnlock()

	roomCount = len(roomsCopy)
	for _, r := range roomsCopy {
		var hasGame bool
		var seated int
		if !r.exec(func() {
			hasGame = r.hasActiveGame()
			seated = len(r.Players.List())
		}) {
			// room was deleted between the map snapshot and exec.
			roomCount--
			continue
		}
		if hasGame {
			activeGames++
		}
		playerCount += seated
	}
	return roomCount, activeGames, playerCount
}

// Sweep purges expired grace entries (performing a synthetic leave for
// any player still seated) and reaps rooms that are empty and idle.
func (m *Manager) Sweep() {
	now := time.Now()

	m.mu.RLock()
	roomsCopy := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		roomsCopy = append(roomsCopy, r)
	}
	m.mu.RUnlock()

	for _, r := range roomsCopy {
		roomID := r.ID
		var (
			toLeave    []players.ID
			idleDelete bool
		)
		r.exec(func() {
			for pid, since := range r.DisconnectGrace {
				if now.Sub(since) >= m.cfg.GraceWindow {
					delete(r.DisconnectGrace, pid)
					if r.Players.Contains(pid) {
						toLeave = append(toLeave, pid)
					}
				}
			}
			if r.Players.Len() == 0 && now.Sub(r.LastActivity) >= m.cfg.IdleWindow {
				idleDelete = true
			}
		})

		for _, pid := range toLeave {
			if err := m.LeaveRoom(roomID, pid, "grace_expired"); err != nil {
				m.logger.WithFields(logrus.Fields{"room_id": roomID, "player_id": pid, "error": err}).
					Debug("sweep: synthetic leave failed (room likely already gone)")
			}
		}
		if idleDelete {
			if err := m.DeleteRoom(roomID, "idle"); err != nil {
				m.logger.WithFields(logrus.Fields{"room_id": roomID, "error": err}).
					Debug("sweep: idle delete failed (room likely already gone)")
			}
		}
	}
}
