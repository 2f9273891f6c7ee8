/*
 * file: checkers.go
 * package: checkers
 * description:
 *     Reference rules plugin for 8x8 American checkers: man/king
 *     promotion, mandatory capture, multi-jump chaining, and terminal
 *     detection (no pieces or no legal moves for the side to move). This
 *     is the conformance exemplar the room server ships out of the box.
 */
package checkers

import (
	"fmt"

	"github.com/juan10024/tictactoe-test/internal/core/players"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
)

const (
	boardSize = 8

	// GameID is the catalog key this plugin registers under.
	GameID = "checkers"
)

// Piece identifies what, if anything, occupies a square.
type Piece int

const (
	Empty Piece = iota
	RedMan
	RedKing
	BlackMan
	BlackKing
)

func (p Piece) isRed() bool   { return p == RedMan || p == RedKing }
func (p Piece) isBlack() bool { return p == BlackMan || p == BlackKing }
func (p Piece) isKing() bool  { return p == RedKing || p == BlackKing }

// Square is a board coordinate, row/col in [0, boardSize).
type Square struct {
	Row int
	Col int
}

func (s Square) dark() bool { return (s.Row+s.Col)%2 == 1 }

func (s Square) inBounds() bool {
	return s.Row >= 0 && s.Row < boardSize && s.Col >= 0 && s.Col < boardSize
}

// State is the Checkers GameState, satisfying rules.GameState and
// rules.Inspector.
type State struct {
	Board       [boardSize][boardSize]Piece
	ToMove      players.ID
	RedID       players.ID
	BlackID     players.ID
	MustContinueFrom *Square // non-nil mid multi-jump: only that piece may move
	terminal    bool
	winner      players.ID
	winnerName  string
}

// IsTerminal satisfies rules.GameState.
func (s State) IsTerminal() bool { return s.terminal }

// Inspect satisfies rules.Inspector.
func (s State) Inspect() rules.TerminalStatus {
	return rules.TerminalStatus{
		Terminal:      s.terminal,
		WinnerID:      s.winner,
		WinnerName:    s.winnerName,
		RoundComplete: s.terminal,
	}
}

func (s State) clone() State {
	next := s
	next.Board = s.Board
	return next
}

// Plugin implements rules.Plugin for American checkers.
type Plugin struct{}

// New constructs the Checkers plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) GameID() string   { return GameID }
func (p *Plugin) Name() string     { return "Checkers" }
func (p *Plugin) Category() string { return "board" }
func (p *Plugin) MinPlayers() int  { return 2 }
func (p *Plugin) MaxPlayers() int  { return 2 }

// Create lays out the standard 8x8 opening position and assigns colors
// by join order: the first player is Red and moves first.
func (p *Plugin) Create(ctx rules.RoomContext) (rules.GameState, map[string]rules.Strategy) {
	var state State
	if len(ctx.Players) > 0 {
		state.RedID = ctx.Players[0].ID
	}
	if len(ctx.Players) > 1 {
		state.BlackID = ctx.Players[1].ID
	}
	state.ToMove = state.RedID

	for row := 0; row < 3; row++ {
		for col := 0; col < boardSize; col++ {
			sq := Square{Row: row, Col: col}
			if sq.dark() {
				state.Board[row][col] = BlackMan
			}
		}
	}
	for row := boardSize - 3; row < boardSize; row++ {
		for col := 0; col < boardSize; col++ {
			sq := Square{Row: row, Col: col}
			if sq.dark() {
				state.Board[row][col] = RedMan
			}
		}
	}

	// rules.RoomContext.Players is a value slice; the Room Manager
	// re-reads Role off this same backing array after Create returns, so
	// assign by index rather than through a range copy.
	for i := range ctx.Players {
		if ctx.Players[i].ID == state.RedID {
			ctx.Players[i].Role = "red"
		} else if ctx.Players[i].ID == state.BlackID {
			ctx.Players[i].Role = "black"
		}
	}

	strategies := map[string]rules.Strategy{
		"movePiece": rules.StrategyFunc(executeMove),
	}
	return state, strategies
}

// movePayload is the expected shape of a movePiece command's Payload.
type movePayload struct {
	FromRow, FromCol int
	ToRow, ToCol     int
}

func parseMove(payload map[string]any) (movePayload, error) {
	get := func(key string) (int, error) {
		raw, ok := payload[key]
		if !ok {
			return 0, fmt.Errorf("missing %s", key)
		}
		switch v := raw.(type) {
		case int:
			return v, nil
		case float64:
			return int(v), nil
		default:
			return 0, fmt.Errorf("%s must be a number", key)
		}
	}
	fr, err := get("fromRow")
	if err != nil {
		return movePayload{}, err
	}
	fc, err := get("fromCol")
	if err != nil {
		return movePayload{}, err
	}
	tr, err := get("toRow")
	if err != nil {
		return movePayload{}, err
	}
	tc, err := get("toCol")
	if err != nil {
		return movePayload{}, err
	}
	return movePayload{FromRow: fr, FromCol: fc, ToRow: tr, ToCol: tc}, nil
}

func executeMove(ctx rules.CommandContext) rules.Outcome {
	state, ok := ctx.State.(State)
	if !ok {
		return rules.Rejected("invalid game state")
	}
	if state.terminal {
		return rules.Rejected("game has already ended")
	}
	if ctx.PlayerID != state.ToMove {
		return rules.Rejected("not your turn")
	}

	move, err := parseMove(ctx.Payload)
	if err != nil {
		return rules.Rejected(err.Error())
	}

	from := Square{Row: move.FromRow, Col: move.FromCol}
	to := Square{Row: move.ToRow, Col: move.ToCol}
	if !from.inBounds() || !to.inBounds() {
		return rules.Rejected("move is off the board")
	}

	if state.MustContinueFrom != nil && from != *state.MustContinueFrom {
		return rules.Rejected("must continue the in-progress jump with the same piece")
	}

	mover := state.Board[from.Row][from.Col]
	if mover == Empty {
		return rules.Rejected("no piece at the source square")
	}
	if mySide(ctx.PlayerID, state) == redSide && !mover.isRed() {
		return rules.Rejected("that piece is not yours")
	}
	if mySide(ctx.PlayerID, state) == blackSide && !mover.isBlack() {
		return rules.Rejected("that piece is not yours")
	}

	legalJumps := allJumpsFor(state, ctx.PlayerID)
	isJump, captured, err := validateStep(state, from, to, mover)
	if err != nil {
		return rules.Rejected(err.Error())
	}
	if len(legalJumps) > 0 && !isJump {
		return rules.Rejected("a capture is available and must be taken")
	}

	next := state.clone()
	next.Board[from.Row][from.Col] = Empty
	landed := mover
	if to.Row == 0 && mover == RedMan {
		landed = RedKing
	}
	if to.Row == boardSize-1 && mover == BlackMan {
		landed = BlackKing
	}
	next.Board[to.Row][to.Col] = landed

	if isJump {
		next.Board[captured.Row][captured.Col] = Empty
		if len(allJumpsFromSquare(next, to, landed)) > 0 {
			next.MustContinueFrom = &to
			// Same player continues; ToMove unchanged.
			return rules.Outcome{NextState: next}
		}
	}

	next.MustContinueFrom = nil
	next.ToMove = opponent(state, ctx.PlayerID)
	applyTermination(&next)

	return rules.Outcome{NextState: next}
}

type side int

const (
	redSide side = iota
	blackSide
)

func mySide(id players.ID, s State) side {
	if id == s.RedID {
		return redSide
	}
	return blackSide
}

func opponent(s State, id players.ID) players.ID {
	if id == s.RedID {
		return s.BlackID
	}
	return s.RedID
}

var directions = [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

// validateStep checks a single from->to move: either a one-square
// diagonal step (men only move forward; kings either way) or a two-square
// jump over an enemy piece onto an empty square. Returns whether it was a
// jump and, if so, the captured square.
func validateStep(s State, from, to Square, mover Piece) (bool, Square, error) {
	if s.Board[to.Row][to.Col] != Empty {
		return false, Square{}, fmt.Errorf("destination square is occupied")
	}
	dr := to.Row - from.Row
	dc := to.Col - from.Col
	if abs(dc) != abs(dr) {
		return false, Square{}, fmt.Errorf("move must be diagonal")
	}
	if !mover.isKing() {
		forward := -1
		if mover.isBlack() {
			forward = 1
		}
		if dr != forward && dr != 2*forward {
			return false, Square{}, fmt.Errorf("men may not move backward")
		}
	}

	switch abs(dr) {
	case 1:
		return false, Square{}, nil
	case 2:
		mid := Square{Row: from.Row + dr/2, Col: from.Col + dc/2}
		midPiece := s.Board[mid.Row][mid.Col]
		if midPiece == Empty {
			return false, Square{}, fmt.Errorf("no piece to capture")
		}
		if (mover.isRed() && midPiece.isRed()) || (mover.isBlack() && midPiece.isBlack()) {
			return false, Square{}, fmt.Errorf("cannot capture your own piece")
		}
		return true, mid, nil
	default:
		return false, Square{}, fmt.Errorf("illegal move distance")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// allJumpsFor returns every available jump for the given player's side,
// used to enforce the mandatory-capture rule.
func allJumpsFor(s State, id players.ID) []Square {
	var out []Square
	for row := 0; row < boardSize; row++ {
		for col := 0; col < boardSize; col++ {
			piece := s.Board[row][col]
			if piece == Empty {
				continue
			}
			if mySide(id, s) == redSide && !piece.isRed() {
				continue
			}
			if mySide(id, s) == blackSide && !piece.isBlack() {
				continue
			}
			sq := Square{Row: row, Col: col}
			out = append(out, allJumpsFromSquare(s, sq, piece)...)
		}
	}
	return out
}

func allJumpsFromSquare(s State, from Square, piece Piece) []Square {
	var out []Square
	for _, d := range directions {
		if !piece.isKing() {
			forward := -1
			if piece.isBlack() {
				forward = 1
			}
			if d[0] != forward {
				continue
			}
		}
		mid := Square{Row: from.Row + d[0], Col: from.Col + d[1]}
		to := Square{Row: from.Row + 2*d[0], Col: from.Col + 2*d[1]}
		if !mid.inBounds() || !to.inBounds() {
			continue
		}
		midPiece := s.Board[mid.Row][mid.Col]
		if midPiece == Empty {
			continue
		}
		if (piece.isRed() && midPiece.isRed()) || (piece.isBlack() && midPiece.isBlack()) {
			continue
		}
		if s.Board[to.Row][to.Col] != Empty {
			continue
		}
		out = append(out, to)
	}
	return out
}

// applyTermination sets terminal/winner once the side to move has no
// pieces or no legal moves remaining.
func applyTermination(s *State) {
	toMoveSide := mySide(s.ToMove, *s)

	hasPiece := false
	hasMove := false
	for row := 0; row < boardSize && !hasMove; row++ {
		for col := 0; col < boardSize; col++ {
			piece := s.Board[row][col]
			if piece == Empty {
				continue
			}
			if toMoveSide == redSide && !piece.isRed() {
				continue
			}
			if toMoveSide == blackSide && !piece.isBlack() {
				continue
			}
			hasPiece = true
			sq := Square{Row: row, Col: col}
			if len(allJumpsFromSquare(*s, sq, piece)) > 0 {
				hasMove = true
				break
			}
			if hasSimpleMove(*s, sq, piece) {
				hasMove = true
				break
			}
		}
	}

	if !hasPiece || !hasMove {
		s.terminal = true
		if toMoveSide == redSide {
			s.winner = s.BlackID
			s.winnerName = "black"
		} else {
			s.winner = s.RedID
			s.winnerName = "red"
		}
	}
}

func hasSimpleMove(s State, from Square, piece Piece) bool {
	for _, d := range directions {
		if !piece.isKing() {
			forward := -1
			if piece.isBlack() {
				forward = 1
			}
			if d[0] != forward {
				continue
			}
		}
		to := Square{Row: from.Row + d[0], Col: from.Col + d[1]}
		if !to.inBounds() {
			continue
		}
		if s.Board[to.Row][to.Col] == Empty {
			return true
		}
	}
	return false
}
