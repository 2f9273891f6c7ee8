/*
 * file: registry.go
 * package: registry
 * description:
 *     In-memory catalog of available rules plugins, keyed by game id.
 *     Registration is append-only during normal operation; listing is
 *     lock-free via a published immutable snapshot, generalized from the
 *     teacher's register/unregister channel-pair idiom (Hub.register) to a
 *     plugin catalog rather than a client set.
 */
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/juan10024/tictactoe-test/internal/core/apperr"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
)

// Definition is the registry's catalog entry for one game id.
type Definition struct {
	GameID     string
	Name       string
	Category   string
	MinPlayers int
	MaxPlayers int
	Plugin     rules.Plugin
}

// ChangeEvent is published whenever the catalog changes shape.
type ChangeEvent struct {
	GameID string
	Kind   string // "registered"
}

// Registry is the Plugin Registry (component B).
type Registry struct {
	mu       sync.Mutex
	byID     map[string]Definition
	snapshot atomic.Pointer[[]Definition]
	changes  chan ChangeEvent
}

// New constructs an empty Registry.
func New() *Registry {
	r := &Registry{
		byID:    make(map[string]Definition),
		changes: make(chan ChangeEvent, 16),
	}
	empty := []Definition{}
	r.snapshot.Store(&empty)
	return r
}

// Register adds a plugin under GameID(). Re-registering the same id is an
// error.
func (r *Registry) Register(p rules.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.GameID()]; exists {
		return apperr.Conflict("duplicate_plugin", "a plugin is already registered for this game id")
	}

	def := Definition{
		GameID:     p.GameID(),
		Name:       p.Name(),
		Category:   p.Category(),
		MinPlayers: p.MinPlayers(),
		MaxPlayers: p.MaxPlayers(),
		Plugin:     p,
	}
	r.byID[p.GameID()] = def
	r.publishSnapshot()

	select {
	case r.changes <- ChangeEvent{GameID: p.GameID(), Kind: "registered"}:
	default:
		// A slow subscriber never blocks registration.
	}
	return nil
}

// Override replaces the display Name/Category of an already-registered
// definition, e.g. with operator-supplied catalog metadata. A no-op if
// the game id isn't registered.
func (r *Registry) Override(gameID, name, category string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.byID[gameID]
	if !ok {
		return
	}
	if name != "" {
		def.Name = name
	}
	if category != "" {
		def.Category = category
	}
	r.byID[gameID] = def
	r.publishSnapshot()
}

// Get looks up a plugin definition by id.
func (r *Registry) Get(gameID string) (Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.byID[gameID]
	return def, ok
}

// List returns an immutable snapshot of the current catalog. Safe to call
// without ever blocking a concurrent Register.
func (r *Registry) List() []Definition {
	return *r.snapshot.Load()
}

// Changes returns the change-notification stream.
func (r *Registry) Changes() <-chan ChangeEvent {
	return r.changes
}

// publishSnapshot must be called with r.mu held.
func (r *Registry) publishSnapshot() {
	next := make([]Definition, 0, len(r.byID))
	for _, def := range r.byID {
		next = append(next, def)
	}
	r.snapshot.Store(&next)
}
