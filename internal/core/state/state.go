/*
 * file: state.go
 * package: state
 * description:
 *     Holds the current authoritative GameState blob for one active game,
 *     a monotonic version, and two typed event streams (stateChanged,
 *     roundEnd). Replacement is atomic with respect to observers: a
 *     subscriber never sees a version go backwards, not even on undo,
 *     which is itself a forward replacement, never a rewind.
 */
package state

import (
	"sync"

	"github.com/juan10024/tictactoe-test/internal/core/rules"
)

// Change is published on every successful replace.
type Change struct {
	State   rules.GameState
	Version uint64
	Context any
}

// RoundEnd is published when a strategy surfaces a round-end signal
// without it being a state field.
type RoundEnd struct {
	Payload any
}

// Container is the State Container (component C).
type Container struct {
	mu      sync.RWMutex
	state   rules.GameState
	version uint64

	nextSubID int
	stateSubs map[int]chan Change
	roundSubs map[int]chan RoundEnd
}

// New constructs a Container seeded with the plugin's initial state.
func New(initial rules.GameState) *Container {
	return &Container{
		state:     initial,
		version:   0,
		stateSubs: make(map[int]chan Change),
		roundSubs: make(map[int]chan RoundEnd),
	}
}

// Snapshot returns the current state and version under the read lock.
func (c *Container) Snapshot() (rules.GameState, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.version
}

// Replace atomically increments the version, swaps the state, and
// publishes Change to every subscriber. Subscribers with a full buffer
// have their message dropped rather than blocking the replace — the
// same backpressure policy the teacher's Hub.broadcast applies to
// websocket clients.
func (c *Container) Replace(next rules.GameState, ctx any) Change {
	c.mu.Lock()
	c.version++
	c.state = next
	change := Change{State: next, Version: c.version, Context: ctx}
	subs := make([]chan Change, 0, len(c.stateSubs))
	for _, ch := range c.stateSubs {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
	return change
}

// Emit publishes a round-end signal without touching state or version.
func (c *Container) Emit(payload any) {
	c.mu.RLock()
	subs := make([]chan RoundEnd, 0, len(c.roundSubs))
	for _, ch := range c.roundSubs {
		subs = append(subs, ch)
	}
	c.mu.RUnlock()

	ev := RoundEnd{Payload: payload}
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new state-change observer. A subscriber added
// mid-game begins receiving events only from its subscription point
// forward, per the broadcast-ordering contract.
func (c *Container) Subscribe() (<-chan Change, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan Change, 32)
	c.stateSubs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.stateSubs[id]; ok {
			delete(c.stateSubs, id)
			close(existing)
		}
	}
}

// SubscribeRoundEnd registers a new round-end observer.
func (c *Container) SubscribeRoundEnd() (<-chan RoundEnd, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan RoundEnd, 8)
	c.roundSubs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.roundSubs[id]; ok {
			delete(c.roundSubs, id)
			close(existing)
		}
	}
}
