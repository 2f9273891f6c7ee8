/*
 * file: dispatch.go
 * package: gateway
 * description:
 *     The inbound event switch table: decodes one envelope and drives the
 *     Room Manager accordingly, replying to the originating connection
 *     and letting Gateway.handleManagerEvent carry any resulting
 *     broadcast. Generalized from the teacher's Hub.handleMessage
 *     type-switch to the full event set this server understands.
 */
package gateway

import (
	"encoding/json"

	"github.com/juan10024/tictactoe-test/internal/adapters/dto"
	"github.com/juan10024/tictactoe-test/internal/core/apperr"
	"github.com/juan10024/tictactoe-test/internal/core/room"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
	"github.com/juan10024/tictactoe-test/internal/core/validate"
)

func (gw *Gateway) dispatch(c *connection, raw []byte) {
	var env dto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.enqueue("error", dto.ErrorPayload{Code: "bad_envelope", Message: "message is not a valid envelope", Action: "unknown"})
		return
	}

	switch env.Event {
	case "identify":
		gw.handleIdentify(c, env.Payload)
	case "createGame":
		gw.handleCreateGame(c, env.Payload)
	case "joinGame":
		gw.handleJoinGame(c, env.Payload)
	case "playerReady":
		gw.handlePlayerReady(c)
	case "startGame":
		gw.handleStartGame(c, env.Payload)
	case "submitMove", "movePiece":
		gw.handleSubmitMove(c, env.Event, env.Payload)
	case "undoMove":
		gw.handleUndoMove(c)
	case "leaveGame":
		gw.handleLeaveGame(c)
	case "getRoomState":
		gw.handleGetRoomState(c)
	case "subscribeMetrics":
		c.subscribeMetrics = true
	case "ping":
		c.enqueue("pong", map[string]any{})
	default:
		c.enqueue("error", dto.ErrorPayload{Code: "unknown_event", Message: "unrecognized event name", Action: env.Event})
	}
}

func (gw *Gateway) replyError(c *connection, err error, action string) {
	if ae, ok := err.(*apperr.Error); ok {
		if ae.Action == "" {
			ae = ae.WithAction(action)
		}
		c.enqueue("error", dto.ErrorPayload{Code: ae.Code, Message: ae.Message, Action: ae.Action})
		return
	}
	c.enqueue("error", dto.ErrorPayload{Code: "internal_error", Message: err.Error(), Action: action})
}

func (gw *Gateway) handleIdentify(c *connection, raw json.RawMessage) {
	var payload dto.IdentifyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		gw.replyError(c, apperr.Validation("bad_payload", "identify payload malformed"), "identify")
		return
	}
	name, ok := validate.DisplayName(payload.Username)
	if !ok {
		gw.replyError(c, apperr.Validation("invalid_display_name", "display name rejected"), "identify")
		return
	}
	c.displayName = name
	c.enqueue("identified", map[string]any{"playerId": c.playerID, "displayName": name})
}

func (gw *Gateway) handleCreateGame(c *connection, raw json.RawMessage) {
	var payload dto.CreateGamePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		gw.replyError(c, apperr.Validation("bad_payload", "createGame payload malformed"), "createGame")
		return
	}
	if !validate.GameType(payload.GameType) {
		gw.replyError(c, apperr.Validation("invalid_game_type", "game type rejected"), "createGame")
		return
	}
	if _, ok := gw.registry.Get(payload.GameType); !ok {
		gw.replyError(c, apperr.NotFound("unknown_game", "no plugin registered for this game id").WithAction("createGame"), "createGame")
		return
	}

	mode := payload.Mode
	if mode == "" {
		mode = "lan"
	}

	req := room.CreateRoomRequest{
		HostID:          c.playerID,
		HostDisplayName: c.displayNameOrDefault(),
		GameID:          payload.GameType,
		Mode:            mode,
	}
	if payload.RoomCode != "" {
		code, ok := validate.RoomCode(payload.RoomCode)
		if !ok {
			gw.replyError(c, apperr.Validation("invalid_room_code", "room code rejected"), "createGame")
			return
		}
		req.PreferredRoomID = code
	}

	view, err := gw.manager.CreateRoom(req)
	if err != nil {
		gw.replyError(c, err, "createGame")
		return
	}
	c.enqueue("joinedMatchLobby", dto.JoinedMatchLobbyPayload{Room: dto.FromRoomView(view), YourID: c.playerID})
}

func (gw *Gateway) handleJoinGame(c *connection, raw json.RawMessage) {
	var payload dto.JoinGamePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		gw.replyError(c, apperr.Validation("bad_payload", "joinGame payload malformed"), "joinGame")
		return
	}

	roomID := payload.RoomID
	if !validate.IsServerRoomID(roomID) {
		code, ok := validate.RoomCode(roomID)
		if !ok {
			gw.replyError(c, apperr.Validation("invalid_room_id", "room id rejected"), "joinGame")
			return
		}
		roomID = code
	}

	view, err := gw.manager.JoinRoom(roomID, c.playerID, c.displayNameOrDefault(), nil)
	if err != nil {
		gw.replyError(c, err, "joinGame")
		return
	}
	c.enqueue("joinedMatchLobby", dto.JoinedMatchLobbyPayload{Room: dto.FromRoomView(view), YourID: c.playerID})
}

func (gw *Gateway) currentRoom(c *connection, action string) (string, bool) {
	roomID, ok := gw.manager.RoomOf(c.playerID)
	if !ok {
		gw.replyError(c, apperr.NotFound("not_in_room", "you are not currently in a room").WithAction(action), action)
		return "", false
	}
	return roomID, true
}

func (gw *Gateway) handlePlayerReady(c *connection) {
	roomID, ok := gw.currentRoom(c, "playerReady")
	if !ok {
		return
	}
	if _, err := gw.manager.ToggleReady(roomID, c.playerID); err != nil {
		gw.replyError(c, err, "playerReady")
	}
}

func (gw *Gateway) handleStartGame(c *connection, raw json.RawMessage) {
	roomID, ok := gw.currentRoom(c, "startGame")
	if !ok {
		return
	}
	var options map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &options)
	}
	if _, err := gw.manager.StartGame(roomID, c.playerID, options); err != nil {
		gw.replyError(c, err, "startGame")
	}
}

func (gw *Gateway) handleSubmitMove(c *connection, eventName string, raw json.RawMessage) {
	roomID, ok := gw.currentRoom(c, "submitMove")
	if !ok {
		return
	}
	var payload map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			gw.replyError(c, apperr.Validation("bad_payload", "move payload malformed"), "submitMove")
			return
		}
	}
	// A plugin with several distinct command types may expect the client
	// to name one explicitly via payload.type; a client that omits it
	// (the common case for a single-strategy plugin like Checkers) gets
	// the event name itself, so "movePiece" reaches the strategy table
	// registered under "movePiece" without the client repeating it.
	commandType, _ := payload["type"].(string)
	if commandType == "" {
		commandType = eventName
	}
	descriptor := rules.CommandDescriptor{Type: commandType, Payload: payload, PlayerID: c.playerID}
	if err := gw.manager.SubmitCommand(roomID, descriptor); err != nil {
		gw.replyError(c, err, "submitMove")
	}
}

func (gw *Gateway) handleUndoMove(c *connection) {
	roomID, ok := gw.currentRoom(c, "undoMove")
	if !ok {
		return
	}
	if err := gw.manager.UndoLast(roomID, c.playerID); err != nil {
		gw.replyError(c, err, "undoMove")
	}
}

func (gw *Gateway) handleLeaveGame(c *connection) {
	roomID, ok := gw.currentRoom(c, "leaveGame")
	if !ok {
		return
	}
	if err := gw.manager.LeaveRoom(roomID, c.playerID, "left"); err != nil {
		gw.replyError(c, err, "leaveGame")
	}
}

func (gw *Gateway) handleGetRoomState(c *connection) {
	roomID, ok := gw.currentRoom(c, "getRoomState")
	if !ok {
		return
	}
	view, err := gw.manager.RoomView(roomID)
	if err != nil {
		gw.replyError(c, err, "getRoomState")
		return
	}
	c.enqueue("roomStateUpdate", dto.FromRoomView(view))
}

func (c *connection) displayNameOrDefault() string {
	if c.displayName != "" {
		return c.displayName
	}
	return "Player"
}
