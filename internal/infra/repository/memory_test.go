package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_SaveLoadRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()

	_, _, found, err := repo.Load("room_1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Save("room_1", "checkers", 3, map[string]any{"turn": "red"}))

	state, version, found, err := repo.Load("room_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(3), version)
	assert.Equal(t, map[string]any{"turn": "red"}, state)
}

func TestMemoryRepository_SaveOverwritesPreviousVersion(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.Save("room_1", "checkers", 1, "a"))
	require.NoError(t, repo.Save("room_1", "checkers", 2, "b"))

	state, version, found, err := repo.Load("room_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(2), version)
	assert.Equal(t, "b", state)
}

func TestMemoryRepository_RemoveDeletesSnapshot(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.Save("room_1", "checkers", 1, "a"))
	require.NoError(t, repo.Remove("room_1"))

	_, _, found, err := repo.Load("room_1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryRepository_RemoveUnknownRoomIsNoOp(t *testing.T) {
	repo := NewMemoryRepository()
	assert.NoError(t, repo.Remove("never-existed"))
}
