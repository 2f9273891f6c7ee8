package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/tictactoe-test/internal/core/apperr"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
)

type stubPlugin struct {
	id       string
	min, max int
}

func (p stubPlugin) GameID() string   { return p.id }
func (p stubPlugin) Name() string     { return "Stub " + p.id }
func (p stubPlugin) Category() string { return "test" }
func (p stubPlugin) MinPlayers() int  { return p.min }
func (p stubPlugin) MaxPlayers() int  { return p.max }
func (p stubPlugin) Create(ctx rules.RoomContext) (rules.GameState, map[string]rules.Strategy) {
	return nil, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New()
	err := r.Register(stubPlugin{id: "checkers", min: 2, max: 2})
	require.NoError(t, err)

	def, ok := r.Get("checkers")
	require.True(t, ok)
	assert.Equal(t, "checkers", def.GameID)
	assert.Equal(t, 2, def.MinPlayers)

	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_DuplicateRegistrationFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubPlugin{id: "checkers", min: 2, max: 2}))

	err := r.Register(stubPlugin{id: "checkers", min: 2, max: 2})
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindConflict))
}

func TestRegistry_ListReturnsImmutableSnapshot(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubPlugin{id: "checkers", min: 2, max: 2}))

	first := r.List()
	require.Len(t, first, 1)

	require.NoError(t, r.Register(stubPlugin{id: "hearts", min: 4, max: 4}))
	second := r.List()

	assert.Len(t, first, 1, "previously taken snapshot must not observe later registrations")
	assert.Len(t, second, 2)
}

func TestRegistry_OverrideUpdatesCatalogMetadata(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubPlugin{id: "checkers", min: 2, max: 2}))

	r.Override("checkers", "American Checkers", "board-game")
	def, ok := r.Get("checkers")
	require.True(t, ok)
	assert.Equal(t, "American Checkers", def.Name)
	assert.Equal(t, "board-game", def.Category)

	r.Override("unknown", "x", "y") // no-op, must not panic
}

func TestRegistry_ChangeEventPublishedOnRegister(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubPlugin{id: "checkers", min: 2, max: 2}))

	select {
	case ev := <-r.Changes():
		assert.Equal(t, "checkers", ev.GameID)
		assert.Equal(t, "registered", ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a ChangeEvent to be published")
	}
}
