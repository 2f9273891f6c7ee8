package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/tictactoe-test/internal/core/apperr"
	"github.com/juan10024/tictactoe-test/internal/core/players"
	"github.com/juan10024/tictactoe-test/internal/core/rules"
	"github.com/juan10024/tictactoe-test/internal/core/state"
)

type counterState struct {
	value    int
	terminal bool
}

func (c counterState) IsTerminal() bool { return c.terminal }

func newTestBus(strategies map[string]rules.Strategy) (*Bus, *state.Container) {
	container := state.New(counterState{value: 0})
	set := players.NewSet(1, 4)
	return New(container, set, strategies), container
}

func TestBus_DispatchRejectsUnknownCommandType(t *testing.T) {
	bus, container := newTestBus(map[string]rules.Strategy{})

	_, err := bus.Dispatch(rules.CommandDescriptor{Type: "nope", PlayerID: "a"})
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindValidation))

	_, v := container.Snapshot()
	assert.Equal(t, uint64(0), v, "rejected command must leave version untouched")
}

func TestBus_DispatchRequiresTypeAndPlayerID(t *testing.T) {
	bus, _ := newTestBus(map[string]rules.Strategy{})

	_, err := bus.Dispatch(rules.CommandDescriptor{PlayerID: "a"})
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindValidation))

	_, err = bus.Dispatch(rules.CommandDescriptor{Type: "increment"})
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindValidation))
}

func TestBus_RulesRejectionLeavesStateUntouched(t *testing.T) {
	strategies := map[string]rules.Strategy{
		"increment": rules.StrategyFunc(func(ctx rules.CommandContext) rules.Outcome {
			return rules.Rejected("not your turn")
		}),
	}
	bus, container := newTestBus(strategies)

	before, beforeVersion := container.Snapshot()
	_, err := bus.Dispatch(rules.CommandDescriptor{Type: "increment", PlayerID: "a"})
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindRulesRejection))
	assert.Equal(t, "not your turn", err.(*apperr.Error).Message)

	after, afterVersion := container.Snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, beforeVersion, afterVersion)
}

func incrementStrategy() rules.Strategy {
	return rules.StrategyFunc(func(ctx rules.CommandContext) rules.Outcome {
		cur := ctx.State.(counterState)
		next := counterState{value: cur.value + 1}
		return rules.Outcome{
			NextState: next,
			Undo: func() rules.GameState {
				return cur
			},
		}
	})
}

func TestBus_DispatchAppliesAndVersionsOnSuccess(t *testing.T) {
	bus, container := newTestBus(map[string]rules.Strategy{"increment": incrementStrategy()})

	change, err := bus.Dispatch(rules.CommandDescriptor{Type: "increment", PlayerID: "a"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), change.Version)
	assert.Equal(t, counterState{value: 1}, change.State)

	state, version := container.Snapshot()
	assert.Equal(t, counterState{value: 1}, state)
	assert.Equal(t, uint64(1), version)
}

func TestBus_UndoRoundTripRestoresPriorState(t *testing.T) {
	bus, container := newTestBus(map[string]rules.Strategy{"increment": incrementStrategy()})

	before, _ := container.Snapshot()
	_, err := bus.Dispatch(rules.CommandDescriptor{Type: "increment", PlayerID: "a"})
	require.NoError(t, err)

	_, err = bus.UndoLast("a")
	require.NoError(t, err)

	after, version := container.Snapshot()
	assert.Equal(t, before, after, "undo must restore the pre-dispatch state")
	assert.Equal(t, uint64(2), version, "undo is a forward replacement, not a version rewind")
}

func TestBus_UndoRejectsNonOwner(t *testing.T) {
	bus, _ := newTestBus(map[string]rules.Strategy{"increment": incrementStrategy()})

	_, err := bus.Dispatch(rules.CommandDescriptor{Type: "increment", PlayerID: "a"})
	require.NoError(t, err)

	_, err = bus.UndoLast("b")
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindAuthorization))

	// Record must still be on the stack: owner can still undo afterwards.
	_, err = bus.UndoLast("a")
	require.NoError(t, err)
}

func TestBus_UndoWithNoHistoryFails(t *testing.T) {
	bus, _ := newTestBus(map[string]rules.Strategy{"increment": incrementStrategy()})

	_, err := bus.UndoLast("a")
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindNotFound))
}

func TestBus_DispatchAfterTerminalFails(t *testing.T) {
	strategies := map[string]rules.Strategy{
		"finish": rules.StrategyFunc(func(ctx rules.CommandContext) rules.Outcome {
			return rules.Outcome{NextState: counterState{value: 1, terminal: true}}
		}),
	}
	bus, _ := newTestBus(strategies)

	_, err := bus.Dispatch(rules.CommandDescriptor{Type: "finish", PlayerID: "a"})
	require.NoError(t, err)

	_, err = bus.Dispatch(rules.CommandDescriptor{Type: "finish", PlayerID: "a"})
	require.Error(t, err)
	assert.True(t, apperr.As(err, apperr.KindGameNotActive))
}
