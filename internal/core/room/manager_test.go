package room_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/tictactoe-test/internal/core/apperr"
	"github.com/juan10024/tictactoe-test/internal/core/players"
	"github.com/juan10024/tictactoe-test/internal/core/registry"
	"github.com/juan10024/tictactoe-test/internal/core/room"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
	"github.com/juan10024/tictactoe-test/internal/core/rules/checkers"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(noopWriter{})
	return l
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestManager(t *testing.T, cfg room.Config) *room.Manager {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(checkers.New()))
	return room.NewManager(reg, nil, testLogger(), cfg)
}

func drainEvents(t *testing.T, ch <-chan room.Event, kind room.Kind, timeout time.Duration) room.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %q", kind)
		}
	}
}

// S1: create, join, ready, start.
func TestManager_CreateJoinReadyStart(t *testing.T) {
	m := newTestManager(t, room.Config{})
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	created, err := m.CreateRoom(room.CreateRoomRequest{
		HostID: "ada", HostDisplayName: "Ada", GameID: "checkers", Mode: "lan",
	})
	require.NoError(t, err)
	drainEvents(t, events, room.KindRoomCreated, time.Second)

	require.Len(t, created.Players, 1)
	assert.Equal(t, players.ID("ada"), created.HostID)
	assert.True(t, created.Players[0].IsReady, "host is auto-seated ready")

	joined, err := m.JoinRoom(created.RoomID, "ben", "Ben", nil)
	require.NoError(t, err)
	drainEvents(t, events, room.KindRoomUpdated, time.Second)
	require.Len(t, joined.Players, 2)
	assert.False(t, joined.Players[1].IsReady)

	updated, err := m.ToggleReady(created.RoomID, "ben")
	require.NoError(t, err)
	drainEvents(t, events, room.KindRoomUpdated, time.Second)
	assert.True(t, updated.Players[1].IsReady)

	started, err := m.StartGame(created.RoomID, "ada", nil)
	require.NoError(t, err)
	startedEv := drainEvents(t, events, room.KindGameStarted, time.Second)
	assert.True(t, started.HasGame)

	payload := startedEv.Payload.(room.GameStartedPayload)
	assert.Equal(t, "checkers", payload.GameID)

	// B joined second, so B (ben) is assigned black; A (ada) is red.
	view, err := m.RoomView(created.RoomID)
	require.NoError(t, err)
	byID := map[players.ID]string{}
	for _, p := range view.Players {
		byID[p.ID] = p.Role
	}
	assert.Equal(t, "red", byID["ada"])
	assert.Equal(t, "black", byID["ben"])
}

// S6: duplicate p2p invite code routes to join rather than failing.
func TestManager_CreateRoomDuplicateP2PInviteCodeRoutesToJoin(t *testing.T) {
	m := newTestManager(t, room.Config{})

	first, err := m.CreateRoom(room.CreateRoomRequest{
		HostID: "conn-c", HostDisplayName: "C", GameID: "checkers", Mode: "p2p", PreferredRoomID: "WIZARD",
	})
	require.NoError(t, err)
	assert.Equal(t, "WIZARD", first.RoomID)

	second, err := m.CreateRoom(room.CreateRoomRequest{
		HostID: "conn-d", HostDisplayName: "D", GameID: "checkers", Mode: "p2p", PreferredRoomID: "WIZARD",
	})
	require.NoError(t, err)
	assert.Equal(t, "WIZARD", second.RoomID)
	assert.Len(t, second.Players, 2, "conn-d should have been routed into the existing room")
}

func TestManager_CreateRoomUnknownGameIDFails(t *testing.T) {
	m := newTestManager(t, room.Config{})
	_, err := m.CreateRoom(room.CreateRoomRequest{HostID: "a", GameID: "does-not-exist", Mode: "lan"})
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindNotFound))
}

func TestManager_JoinRoomNotFound(t *testing.T) {
	m := newTestManager(t, room.Config{})
	_, err := m.JoinRoom("ghost_00000000", "a", "A", nil)
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindNotFound))
}

func TestManager_JoinRoomFullFails(t *testing.T) {
	m := newTestManager(t, room.Config{})
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "a", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)
	_, err = m.JoinRoom(created.RoomID, "b", "B", nil)
	require.NoError(t, err)

	_, err = m.JoinRoom(created.RoomID, "c", "C", nil)
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindCapacity))
}

func startedCheckersRoom(t *testing.T, m *room.Manager) (roomID string, redID, blackID players.ID) {
	t.Helper()
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", HostDisplayName: "Ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)
	_, err = m.JoinRoom(created.RoomID, "ben", "Ben", nil)
	require.NoError(t, err)
	_, err = m.ToggleReady(created.RoomID, "ben")
	require.NoError(t, err)
	_, err = m.StartGame(created.RoomID, "ada", nil)
	require.NoError(t, err)
	return created.RoomID, "ada", "ben"
}

// S2: turn enforcement — wrong-turn submit is rejected as a rules rejection.
func TestManager_SubmitCommandRejectsOutOfTurn(t *testing.T) {
	m := newTestManager(t, room.Config{})
	roomID, _, blackID := startedCheckersRoom(t, m)

	err := m.SubmitCommand(roomID, rulesDescriptor(blackID, 1, 0, 2, 1))
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindRulesRejection))
}

// S3: version monotonicity under two valid moves from alternating players.
func TestManager_VersionMonotonicityAcrossValidMoves(t *testing.T) {
	m := newTestManager(t, room.Config{})
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()
	roomID, redID, blackID := startedCheckersRoom(t, m)

	err := m.SubmitCommand(roomID, rulesDescriptor(redID, 5, 0, 4, 1))
	require.NoError(t, err)
	first := drainEvents(t, events, room.KindGameStateUpdate, time.Second)
	firstPayload := first.Payload.(room.GameStateUpdatePayload)
	assert.Equal(t, uint64(1), firstPayload.Version)

	err = m.SubmitCommand(roomID, rulesDescriptor(blackID, 2, 1, 3, 0))
	require.NoError(t, err)
	second := drainEvents(t, events, room.KindGameStateUpdate, time.Second)
	secondPayload := second.Payload.(room.GameStateUpdatePayload)
	assert.Equal(t, uint64(2), secondPayload.Version)
	assert.Greater(t, secondPayload.Version, firstPayload.Version)
}

func rulesDescriptor(id players.ID, fr, fc, tr, tc int) rules.CommandDescriptor {
	return rules.CommandDescriptor{
		Type:     "movePiece",
		PlayerID: id,
		Payload: map[string]any{
			"fromRow": fr, "fromCol": fc, "toRow": tr, "toCol": tc,
		},
	}
}

// S4: host promotion when the host leaves before the game starts.
func TestManager_LeaveRoomPromotesHost(t *testing.T) {
	m := newTestManager(t, room.Config{})
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", HostDisplayName: "Ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)
	_, err = m.JoinRoom(created.RoomID, "ben", "Ben", nil)
	require.NoError(t, err)

	err = m.LeaveRoom(created.RoomID, "ada", "left")
	require.NoError(t, err)

	view, err := m.RoomView(created.RoomID)
	require.NoError(t, err)
	assert.Equal(t, players.ID("ben"), view.HostID)
}

func TestManager_LeaveRoomDeletesWhenEmpty(t *testing.T) {
	m := newTestManager(t, room.Config{})
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)

	err = m.LeaveRoom(created.RoomID, "ada", "left")
	require.NoError(t, err)

	_, err = m.RoomView(created.RoomID)
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindNotFound))
}

// Single-room membership invariant: joining a second room while already
// seated in one fails.
func TestManager_PlayerCannotJoinTwoRoomsAtOnce(t *testing.T) {
	m := newTestManager(t, room.Config{})
	first, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)
	second, err := m.CreateRoom(room.CreateRoomRequest{HostID: "cleo", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)

	_, err = m.JoinRoom(second.RoomID, "ada", "Ada", nil)
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindConflict))

	roomID, ok := m.RoomOf("ada")
	require.True(t, ok)
	assert.Equal(t, first.RoomID, roomID)
}

// S5 (partial, deterministic slice): disconnect during an active game
// enters the grace table rather than leaving immediately; the sweep
// reaps it once the grace window elapses.
func TestManager_DisconnectDuringGameGraceThenSweepReaps(t *testing.T) {
	m := newTestManager(t, room.Config{GraceWindow: 10 * time.Millisecond, SweepInterval: time.Hour})
	roomID, _, blackID := startedCheckersRoom(t, m)

	err := m.Disconnect(roomID, blackID)
	require.NoError(t, err)

	// Still a member immediately after disconnect: the seat is held.
	_, inRoom := m.RoomOf(blackID)
	assert.True(t, inRoom)

	time.Sleep(20 * time.Millisecond)
	m.Sweep()

	_, inRoom = m.RoomOf(blackID)
	assert.False(t, inRoom, "grace-expired player should have been swept out")
}

func TestManager_DisconnectInLobbyLeavesImmediately(t *testing.T) {
	m := newTestManager(t, room.Config{})
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)
	_, err = m.JoinRoom(created.RoomID, "ben", "Ben", nil)
	require.NoError(t, err)

	err = m.Disconnect(created.RoomID, "ben")
	require.NoError(t, err)

	_, inRoom := m.RoomOf("ben")
	assert.False(t, inRoom, "a lobby disconnect has nothing to protect, so it leaves immediately")
}

// Empty-room reaping (invariant 5) happens sooner than any sweep cycle
// could run: the last leave deletes the room immediately.
func TestManager_EmptyRoomIsDeletedImmediatelyOnLastLeave(t *testing.T) {
	m := newTestManager(t, room.Config{IdleWindow: time.Millisecond, SweepInterval: time.Hour})
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)

	require.NoError(t, m.LeaveRoom(created.RoomID, "ada", "left"))

	_, err = m.RoomView(created.RoomID)
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindNotFound))
}

func TestManager_ListRoomsExcludesP2PAndFullRooms(t *testing.T) {
	m := newTestManager(t, room.Config{})

	lan, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)
	_, err = m.CreateRoom(room.CreateRoomRequest{HostID: "cleo", GameID: "checkers", Mode: "p2p", PreferredRoomID: "SECRET"})
	require.NoError(t, err)

	list := m.ListRooms()
	require.Len(t, list, 1)
	assert.Equal(t, lan.RoomID, list[0].RoomID)

	_, err = m.JoinRoom(lan.RoomID, "ben", "Ben", nil)
	require.NoError(t, err)
	list = m.ListRooms()
	assert.Len(t, list, 0, "a full room must not be lobby-visible")
}

func TestManager_StartGameRequiresHost(t *testing.T) {
	m := newTestManager(t, room.Config{})
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)
	_, err = m.JoinRoom(created.RoomID, "ben", "Ben", nil)
	require.NoError(t, err)
	_, err = m.ToggleReady(created.RoomID, "ben")
	require.NoError(t, err)

	_, err = m.StartGame(created.RoomID, "ben", nil)
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindAuthorization))
}

func TestManager_StartGameSingleFlightRejectsRapidRetry(t *testing.T) {
	m := newTestManager(t, room.Config{StartSingleFlightWindow: time.Minute})
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)
	_, err = m.JoinRoom(created.RoomID, "ben", "Ben", nil)
	require.NoError(t, err)
	_, err = m.ToggleReady(created.RoomID, "ben")
	require.NoError(t, err)

	_, err = m.StartGame(created.RoomID, "ada", nil)
	require.NoError(t, err)

	_, err = m.StartGame(created.RoomID, "ada", nil)
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindConflict))
}

func TestManager_SubmitCommandWithoutActiveGameFails(t *testing.T) {
	m := newTestManager(t, room.Config{})
	created, err := m.CreateRoom(room.CreateRoomRequest{HostID: "ada", GameID: "checkers", Mode: "lan"})
	require.NoError(t, err)

	err = m.SubmitCommand(created.RoomID, rulesDescriptor("ada", 0, 0, 0, 0))
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindGameNotActive))
}
