/*
 * file: rules.go
 * package: rules
 * description:
 *     The polymorphism boundary of the server: a GameState blob, a
 *     Strategy per command type, and the Plugin contract a game module
 *     implements once per GameId. Strategies are pure; the state container
 *     is the only thing that ever replaces state, and it does so by value.
 */
package rules

import (
	"github.com/juan10024/tictactoe-test/internal/core/players"
)

// GameState is the opaque blob a plugin defines. Implementations MUST be
// treated as immutable once handed to a StateContainer: a strategy's
// Execute MUST NOT mutate the state it receives, it must return a new
// value representing the next state.
type GameState interface {
	// IsTerminal reports whether the game has concluded. Plugins that
	// implement Inspector are consulted in preference to this method.
	IsTerminal() bool
}

// TerminalStatus is the result of consulting a plugin's optional Inspector
// hook.
type TerminalStatus struct {
	Terminal      bool
	WinnerID      players.ID
	WinnerName    string
	RoundComplete bool
}

// Inspector is an optional hook a GameState can implement to report
// termination details richer than a bare boolean.
type Inspector interface {
	Inspect() TerminalStatus
}

// RoomContext is handed to Plugin.Create exactly once, at game start.
type RoomContext struct {
	RoomID   string
	Players  []players.Record
	Metadata map[string]string
	Options  map[string]any
}

// CommandContext is handed to a Strategy's Execute call.
type CommandContext struct {
	State    GameState
	Players  *players.Set
	PlayerID players.ID
	Payload  map[string]any
}

// Outcome is what a Strategy returns. Exactly one of NextState/Undo or
// Err should be meaningful: a non-nil Err causes rejection with no state
// change: NextState and Undo are ignored in that case.
type Outcome struct {
	NextState GameState
	Undo      func() GameState
	Err       error
}

// Rejected is a convenience constructor for a Strategy that refuses a
// command (e.g. "not your turn").
func Rejected(reason string) Outcome {
	return Outcome{Err: rejectionError(reason)}
}

type rejectionError string

func (r rejectionError) Error() string { return string(r) }

// Strategy is a pure evaluator for one command type.
type Strategy interface {
	Execute(ctx CommandContext) Outcome
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(ctx CommandContext) Outcome

func (f StrategyFunc) Execute(ctx CommandContext) Outcome { return f(ctx) }

// Plugin is the rules module for one GameId.
type Plugin interface {
	GameID() string
	Name() string
	Category() string
	MinPlayers() int
	MaxPlayers() int

	// Create is invoked exactly once per game start and returns the
	// initial state plus the command-type -> strategy table for this run.
	Create(ctx RoomContext) (GameState, map[string]Strategy)
}

// CommandDescriptor is the normalized shape of a submitted command.
type CommandDescriptor struct {
	Type     string
	Payload  map[string]any
	PlayerID players.ID
}
