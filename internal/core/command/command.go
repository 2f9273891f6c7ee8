/*
 * file: command.go
 * package: command
 * description:
 *     Per-room Command Bus: resolves the rules-plugin strategy for an
 *     inbound command, applies it atomically against the State Container,
 *     and appends an undo record. The bus publishes no commandExecuted or
 *     commandUndone event of its own; observers see each dispatch and undo
 *     only as the State Container's Change. Callers are expected to invoke Dispatch/UndoLast only from within the
 *     owning room's single-writer queue (see internal/core/room); the bus
 *     itself only guards its own undo stack.
 */
package command

import (
	"sync"

	"github.com/juan10024/tictactoe-test/internal/core/apperr"
	"github.com/juan10024/tictactoe-test/internal/core/players"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
	"github.com/juan10024/tictactoe-test/internal/core/state"
)

// undoRecord is a descriptor paired with the closure that reverses it.
type undoRecord struct {
	descriptor rules.CommandDescriptor
	undoFn     func() rules.GameState
}

// Bus is the Command Bus (component D) for one active game.
type Bus struct {
	container  *state.Container
	playerSet  *players.Set
	strategies map[string]rules.Strategy

	mu        sync.Mutex
	undoStack []undoRecord
	isTerminal bool
}

// New constructs a Bus bound to a container, player set, and the
// strategy table the plugin returned from Create.
func New(container *state.Container, playerSet *players.Set, strategies map[string]rules.Strategy) *Bus {
	return &Bus{
		container:  container,
		playerSet:  playerSet,
		strategies: strategies,
	}
}

// Dispatch normalizes, validates, and applies one command descriptor.
func (b *Bus) Dispatch(descriptor rules.CommandDescriptor) (state.Change, error) {
	if descriptor.Type == "" {
		return state.Change{}, apperr.Validation("missing_type", "command type is required")
	}
	if descriptor.Payload == nil {
		descriptor.Payload = map[string]any{}
	}
	if descriptor.PlayerID == "" {
		return state.Change{}, apperr.Validation("missing_player", "player id is required")
	}

	b.mu.Lock()
	terminal := b.isTerminal
	b.mu.Unlock()
	if terminal {
		return state.Change{}, apperr.GameNotActive("game_already_over", "the game in this room has already ended")
	}

	strategy, ok := b.strategies[descriptor.Type]
	if !ok {
		return state.Change{}, apperr.Validation("unknown_command", "command type is not recognized by the active rules plugin")
	}

	snapshot, _ := b.container.Snapshot()
	outcome := strategy.Execute(rules.CommandContext{
		State:    snapshot,
		Players:  b.playerSet,
		PlayerID: descriptor.PlayerID,
		Payload:  descriptor.Payload,
	})

	if outcome.Err != nil {
		return state.Change{}, apperr.RulesRejection(outcome.Err.Error())
	}

	change := b.container.Replace(outcome.NextState, map[string]any{"command": descriptor})

	b.mu.Lock()
	if outcome.Undo != nil {
		b.undoStack = append(b.undoStack, undoRecord{descriptor: descriptor, undoFn: outcome.Undo})
	}
	if becameTerminal(outcome.NextState) {
		b.isTerminal = true
	}
	b.mu.Unlock()

	return change, nil
}

// UndoLast pops the top undo record and replaces state with its result.
// If playerID is non-empty and does not match the popped descriptor's
// issuer, the record is pushed back and the call fails.
func (b *Bus) UndoLast(playerID players.ID) (state.Change, error) {
	b.mu.Lock()
	if len(b.undoStack) == 0 {
		b.mu.Unlock()
		return state.Change{}, apperr.NotFound("nothing_to_undo", "there is no command to undo")
	}
	top := b.undoStack[len(b.undoStack)-1]
	if playerID != "" && top.descriptor.PlayerID != playerID {
		b.mu.Unlock()
		return state.Change{}, apperr.Authorization("undo_not_owner", "only the player who issued the command may undo it")
	}
	b.undoStack = b.undoStack[:len(b.undoStack)-1]
	b.isTerminal = false
	b.mu.Unlock()

	next := top.undoFn()
	change := b.container.Replace(next, map[string]any{"undo": top.descriptor})
	return change, nil
}

func becameTerminal(s rules.GameState) bool {
	if s == nil {
		return false
	}
	if inspector, ok := s.(rules.Inspector); ok {
		return inspector.Inspect().Terminal
	}
	return s.IsTerminal()
}
