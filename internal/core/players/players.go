/*
 * file: players.go
 * package: players
 * description:
 *     Defines PlayerId, PlayerRecord and the ordered PlayerSet that a Room
 *     owns exclusively. Insertion order is preserved and observable, since
 *     role assignment at game start depends on join order.
 */
package players

import (
	"time"

	"github.com/juan10024/tictactoe-test/internal/core/apperr"
)

// ID is an opaque stable identifier for a connected participant. Equality
// is structural (plain string comparison).
type ID string

// Record is a participant's per-room state. Role is assigned at game
// start (e.g. a color or marker); nothing clears it afterwards.
type Record struct {
	ID         ID
	DisplayName string
	IsReady    bool
	Metadata   map[string]string
	JoinedAt   time.Time
	Role       string
}

// Set is an ordered mapping of PlayerId to Record, enforcing min/max
// capacity. The zero value is not usable; construct with NewSet.
type Set struct {
	min, max int
	order    []ID
	byID     map[ID]*Record
}

// NewSet constructs a PlayerSet with the given capacity bounds.
func NewSet(min, max int) *Set {
	return &Set{
		min:   min,
		max:   max,
		byID:  make(map[ID]*Record),
	}
}

func (s *Set) Min() int { return s.min }
func (s *Set) Max() int { return s.max }
func (s *Set) Len() int { return len(s.order) }

// Add inserts a player at the tail of join order. If the id already
// exists, the call is idempotent and returns the existing record.
func (s *Set) Add(id ID, displayName string, metadata map[string]string, now time.Time) (*Record, error) {
	if existing, ok := s.byID[id]; ok {
		return existing, nil
	}
	if len(s.order) >= s.max {
		return nil, apperr.Capacity("full", "room is full")
	}
	rec := &Record{
		ID:          id,
		DisplayName: displayName,
		Metadata:    metadata,
		JoinedAt:    now,
	}
	s.byID[id] = rec
	s.order = append(s.order, id)
	return rec, nil
}

// Remove deletes a player and returns their prior record, preserving the
// order of survivors. Returns (nil, false) if the player was absent.
func (s *Set) Remove(id ID) (*Record, bool) {
	rec, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	delete(s.byID, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return rec, true
}

// Get returns the player's record without copying ownership out of the set.
func (s *Set) Get(id ID) (*Record, bool) {
	rec, ok := s.byID[id]
	return rec, ok
}

// SetReady sets the ready flag for a player.
func (s *Set) SetReady(id ID, ready bool) (*Record, error) {
	rec, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound("unknown_player", "player is not a member of this room")
	}
	rec.IsReady = ready
	return rec, nil
}

// ToggleReady flips the ready flag for a player.
func (s *Set) ToggleReady(id ID) (*Record, error) {
	rec, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound("unknown_player", "player is not a member of this room")
	}
	rec.IsReady = !rec.IsReady
	return rec, nil
}

// IsReadyToStart reports whether the set has met capacity and every member
// is ready.
func (s *Set) IsReadyToStart() bool {
	if len(s.order) < s.min {
		return false
	}
	for _, id := range s.order {
		if !s.byID[id].IsReady {
			return false
		}
	}
	return true
}

// List returns an ordered snapshot of current members, by join order. The
// returned records are copies; mutating them does not affect the set.
func (s *Set) List() []Record {
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Earliest returns the id of the longest-tenured remaining member, used
// for host promotion. ok is false if the set is empty.
func (s *Set) Earliest() (ID, bool) {
	if len(s.order) == 0 {
		return "", false
	}
	return s.order[0], true
}

// Contains reports whether id is currently a member.
func (s *Set) Contains(id ID) bool {
	_, ok := s.byID[id]
	return ok
}
