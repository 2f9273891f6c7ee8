/*
 * file: events.go
 * package: room
 * description:
 *     The event stream the Transport Gateway subscribes to. Replaces the
 *     source's string-keyed emitter with a single typed Event struct and a
 *     Kind enum, per the Design Notes on dropping emitter-with-string-names.
 */
package room

// Kind identifies the shape of an Event's Payload.
type Kind string

const (
	KindRoomCreated      Kind = "roomCreated"
	KindRoomUpdated      Kind = "roomUpdated"
	KindRoomRemoved      Kind = "roomRemoved"
	KindGameStarted      Kind = "gameStarted"
	KindGameStateUpdate  Kind = "gameStateUpdate"
	KindRoundEnd         Kind = "roundEnd"
	KindRoomClosing      Kind = "roomClosing"
	KindRoomClosed       Kind = "roomClosed"
	KindPlayerLeft       Kind = "playerLeft"
)

// Event is published by the Manager for every room-lifecycle and
// in-game transition. The gateway fans it out to the relevant
// subscribers: a single room's members for per-room kinds, all
// connections for lobby-visibility changes (RoomCreated/Updated/Removed).
type Event struct {
	Kind    Kind
	RoomID  string
	Room    View
	Payload any
}

// GameStartedPayload is the Payload for KindGameStarted.
type GameStartedPayload struct {
	GameState any
	GameID    string
}

// GameStateUpdatePayload is the Payload for KindGameStateUpdate.
type GameStateUpdatePayload struct {
	State   any
	Version uint64
	Context any
}

// RoundEndPayload is the Payload for KindRoundEnd.
type RoundEndPayload struct {
	Data any
}

// RoomClosingPayload is the Payload for KindRoomClosing.
type RoomClosingPayload struct {
	Reason            string
	SecondsRemaining  int
}

// RoomClosedPayload is the Payload the Manager attaches to KindRoomRemoved;
// the gateway turns it into the roomClosed message. KindRoomClosed itself
// is not published by the Manager.
type RoomClosedPayload struct {
	Reason string
}

// PlayerLeftPayload is the Payload for KindPlayerLeft.
type PlayerLeftPayload struct {
	Reason string
}
