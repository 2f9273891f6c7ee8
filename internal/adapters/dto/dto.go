/*
 * file: dto.go
 * package: dto
 * description:
 *     Wire-format types for the Transport Gateway, kept distinct from
 *     core/ domain types per §3's RoomSnapshot note so wire-format
 *     changes never ripple into core/. Mirrors the teacher's
 *     adapters/dto layering (formerly JoinRoomRequest/Response, now
 *     generalized to the full inbound/outbound event set).
 */
package dto

import (
	"encoding/json"
	"time"

	"github.com/juan10024/tictactoe-test/internal/core/players"
	"github.com/juan10024/tictactoe-test/internal/core/registry"
	"github.com/juan10024/tictactoe-test/internal/core/room"
)

// Envelope is the on-the-wire framing for every message in both
// directions: one event name plus a JSON payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- inbound payload shapes ---

type IdentifyPayload struct {
	Username string `json:"username"`
}

type CreateGamePayload struct {
	GameType string `json:"gameType"`
	Mode     string `json:"mode"`
	RoomCode string `json:"roomCode,omitempty"`
}

type JoinGamePayload struct {
	RoomID string `json:"roomId"`
}

// --- outbound payload shapes ---

// PlayerView is a player record shaped for the wire.
type PlayerView struct {
	PlayerID    players.ID `json:"playerId"`
	DisplayName string     `json:"displayName"`
	IsReady     bool       `json:"isReady"`
	Role        string     `json:"role,omitempty"`
}

// RoomView is the enriched room snapshot sent as roomStateUpdate /
// joinedMatchLobby.room.
type RoomView struct {
	RoomID       string       `json:"roomId"`
	HostID       players.ID   `json:"hostId"`
	GameID       string       `json:"gameId"`
	Mode         string       `json:"mode"`
	Players      []PlayerView `json:"players"`
	MaxPlayers   int          `json:"maxPlayers"`
	IsClosing    bool         `json:"isClosing"`
	HasGame      bool         `json:"hasGame"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastActivity time.Time    `json:"lastActivity"`
}

// FromRoomView converts a room.View into the wire shape.
func FromRoomView(v room.View) RoomView {
	playerViews := make([]PlayerView, 0, len(v.Players))
	for _, rec := range v.Players {
		playerViews = append(playerViews, PlayerView{
			PlayerID:    rec.ID,
			DisplayName: rec.DisplayName,
			IsReady:     rec.IsReady,
			Role:        rec.Role,
		})
	}
	return RoomView{
		RoomID:       v.RoomID,
		HostID:       v.HostID,
		GameID:       v.GameID,
		Mode:         v.Mode,
		Players:      playerViews,
		MaxPlayers:   v.MaxPlayers,
		IsClosing:    v.IsClosing,
		HasGame:      v.HasGame,
		CreatedAt:    v.CreatedAt,
		LastActivity: v.LastActivity,
	}
}

// RoomListEntry is one row of updateRoomList.rooms.
type RoomListEntry struct {
	RoomID      string     `json:"room_id"`
	GameType    string     `json:"game_type"`
	Mode        string     `json:"mode"`
	PlayerCount int        `json:"player_count"`
	MaxPlayers  int        `json:"max_players"`
	HostID      players.ID `json:"host_id"`
}

// UpdateRoomListPayload is the updateRoomList outbound event payload.
type UpdateRoomListPayload struct {
	Version   uint64          `json:"version"`
	Rooms     []RoomListEntry `json:"rooms"`
	Timestamp time.Time       `json:"timestamp"`
}

// AvailableGameEntry describes one registered plugin for the
// availableGames event.
type AvailableGameEntry struct {
	GameID     string `json:"gameId"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
}

// FromDefinitions converts the registry's catalog into wire entries.
func FromDefinitions(defs []registry.Definition) []AvailableGameEntry {
	out := make([]AvailableGameEntry, 0, len(defs))
	for _, d := range defs {
		out = append(out, AvailableGameEntry{
			GameID:     d.GameID,
			Name:       d.Name,
			Category:   d.Category,
			MinPlayers: d.MinPlayers,
			MaxPlayers: d.MaxPlayers,
		})
	}
	return out
}

// JoinedMatchLobbyPayload is sent to the joining connection only.
type JoinedMatchLobbyPayload struct {
	Room   RoomView   `json:"room"`
	YourID players.ID `json:"yourId"`
}

// GameStartPayload is the gameStart outbound event payload.
type GameStartPayload struct {
	GameState any          `json:"gameState"`
	Players   []PlayerView `json:"players"`
	GameID    string       `json:"gameId"`
	Mode      string       `json:"mode"`
}

// GameStateUpdatePayload is the gameStateUpdate outbound event payload.
type GameStateUpdatePayload struct {
	State   any    `json:"state"`
	Version uint64 `json:"version"`
	Context any    `json:"context,omitempty"`
}

// RoundEndPayload wraps a plugin-defined round-end signal.
type RoundEndPayload struct {
	Data any `json:"data"`
}

// RoomClosingPayload is the roomClosing outbound event payload.
type RoomClosingPayload struct {
	RoomID           string `json:"roomId"`
	Reason           string `json:"reason"`
	SecondsRemaining int    `json:"secondsRemaining"`
}

// RoomClosedPayload is the roomClosed outbound event payload.
type RoomClosedPayload struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// PlayerLeftPayload is the playerLeft outbound event payload.
type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload is the error outbound event payload.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Action  string `json:"action"`
}

// ServerMetricsPayload mirrors monitor.ServerMetricsSample on the wire
// (kept as a distinct type so adapters/gateway never imports
// core/monitor's concrete struct tags directly).
type ServerMetricsPayload struct {
	Rooms              int       `json:"rooms"`
	ActiveGames        int       `json:"active_games"`
	Players            int       `json:"players"`
	ProcessMemoryBytes uint64    `json:"process_memory_bytes"`
	CPULoad1m          float64   `json:"cpu_load_1m"`
	InboundLatencyP50  float64   `json:"inbound_latency_p50_ms"`
	InboundLatencyP95  float64   `json:"inbound_latency_p95_ms"`
	InboundLatencyP99  float64   `json:"inbound_latency_p99_ms"`
	OutboundLatencyP50 float64   `json:"outbound_latency_p50_ms"`
	OutboundLatencyP95 float64   `json:"outbound_latency_p95_ms"`
	OutboundLatencyP99 float64   `json:"outbound_latency_p99_ms"`
	SampledAt          time.Time `json:"sampled_at"`
}
