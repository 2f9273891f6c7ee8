/*
 * file: room.go
 * package: room
 * description:
 *     A Room aggregates a PlayerSet plus an optional StateContainer and
 *     Command Bus, and owns a single-writer work queue: every mutating
 *     operation on this room is enqueued as a closure and executed in
 *     arrival order by one goroutine, so concurrent callers never
 *     interleave effects on the same room while different rooms proceed
 *     independently. Generalized from the teacher's Hub.Run() select loop
 *     and ludo-king-go's Room.Run() ticker+channel loop to an arbitrary
 *     closure queue.
 */
package room

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/juan10024/tictactoe-test/internal/core/command"
	"github.com/juan10024/tictactoe-test/internal/core/players"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
	"github.com/juan10024/tictactoe-test/internal/core/state"
)

// Room is the Room entity (component F).
type Room struct {
	ID       string
	HostID   players.ID
	GameID   string
	Mode     string
	Metadata map[string]string

	Players   *players.Set
	Container *state.Container
	Bus       *command.Bus
	Plugin    rules.Plugin

	CreatedAt      time.Time
	LastActivity   time.Time
	DisconnectGrace map[players.ID]time.Time
	IsClosing      bool

	lastStartAttempt time.Time

	unsubState func()
	unsubRound func()

	queue  chan func()
	logger *logrus.Logger

	lifecycleMu sync.RWMutex
	stopped     bool
}

// newRoom constructs a Room and starts its single-writer goroutine. Not
// exported: only the Manager constructs rooms, under its own map lock.
func newRoom(id string, hostID players.ID, gameID, mode string, metadata map[string]string, min, max int, now time.Time) *Room {
	r := &Room{
		ID:              id,
		HostID:          hostID,
		GameID:          gameID,
		Mode:            mode,
		Metadata:        metadata,
		Players:         players.NewSet(min, max),
		CreatedAt:       now,
		LastActivity:    now,
		DisconnectGrace: make(map[players.ID]time.Time),
		queue:           make(chan func(), 64),
	}
	go r.loop()
	return r
}

func (r *Room) loop() {
	for fn := range r.queue {
		fn()
	}
}

// exec runs fn on the room's single-writer goroutine and blocks until it
// completes, giving the caller a synchronous call with serialized
// semantics across all callers of this room. It reports false without
// running fn if the room has already been stopped (deleted) — the
// lifecycleMu read-lock is held for the full send-and-wait so a
// concurrent stop() cannot close the queue out from under an in-flight
// send, which would otherwise panic in the caller's own goroutine.
func (r *Room) exec(fn func()) bool {
	r.lifecycleMu.RLock()
	defer r.lifecycleMu.RUnlock()
	if r.stopped {
		return false
	}
	done := make(chan struct{})
	r.queue <- func() {
		defer func() {
			if rec := recover(); rec != nil && r.logger != nil {
				r.logger.WithFields(logrus.Fields{"room_id": r.ID, "panic": rec}).
					Error("recovered panic in room single-writer goroutine")
			}
			close(done)
		}()
		fn()
	}
	<-done
	return true
}

// stop drains and terminates the room's goroutine. Must only be called
// once, after the room has been removed from the Manager's map. Waits
// for every exec already in flight to finish before closing the queue,
// so no send ever races a close.
func (r *Room) stop() {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	r.stopped = true
	close(r.queue)
}

// hasActiveGame reports whether a game is currently attached.
func (r *Room) hasActiveGame() bool {
	return r.Container != nil && r.Bus != nil
}

// detachGame disposes the container/bus subscriptions, e.g. on teardown.
func (r *Room) detachGame() {
	if r.unsubState != nil {
		r.unsubState()
		r.unsubState = nil
	}
	if r.unsubRound != nil {
		r.unsubRound()
		r.unsubRound = nil
	}
	r.Container = nil
	r.Bus = nil
	r.Plugin = nil
}

// View is an immutable snapshot of room state, safe to hand outside the
// room's single-writer section.
type View struct {
	RoomID       string
	HostID       players.ID
	GameID       string
	Mode         string
	Metadata     map[string]string
	Players      []players.Record
	MaxPlayers   int
	IsClosing    bool
	HasGame      bool
	CreatedAt    time.Time
	LastActivity time.Time
}

// snapshot must be called from within the room's single-writer section.
func (r *Room) snapshot() View {
	metaCopy := make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		metaCopy[k] = v
	}
	return View{
		RoomID:       r.ID,
		HostID:       r.HostID,
		GameID:       r.GameID,
		Mode:         r.Mode,
		Metadata:     metaCopy,
		Players:      r.Players.List(),
		MaxPlayers:   r.Players.Max(),
		IsClosing:    r.IsClosing,
		HasGame:      r.hasActiveGame(),
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}
